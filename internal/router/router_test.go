package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode, AllowOrigins: []string{"https://cms.example.com"}},
		JWT:    config.JWTConfig{SecretKey: "secret", Issuer: "go-cms"},
	}
	return InitRouter(NewRouterConfig(cfg, handlers.NewUploadHandler(nil, 1024), handlers.NewAdminHandler(nil)))
}

func TestPingAndNoRoute(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/upload/init"},
		{http.MethodPut, "/api/v1/upload/u1/chunks/0"},
		{http.MethodGet, "/api/v1/upload/u1/progress"},
		{http.MethodPost, "/api/v1/upload/u1/merge"},
		{http.MethodDelete, "/api/v1/upload/u1"},
		{http.MethodPost, "/api/v1/admin/upload/sweep"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/upload/u1/chunks/0", nil)
	req.Header.Set("Origin", "https://cms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", handlers.ChunkHashHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://cms.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
