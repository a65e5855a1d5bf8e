package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newEngine(cfg *config.JWTConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		id, _ := utils.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	r.GET("/admin", AuthMiddleware(cfg), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.JWTConfig{SecretKey: "secret", Issuer: "go-cms"}
	r := newEngine(cfg)

	user, err := utils.GenerateToken(7, "alice", "", cfg.SecretKey, cfg.Issuer, time.Hour)
	require.NoError(t, err)
	admin, err := utils.GenerateToken(1, "root", utils.RoleAdmin, cfg.SecretKey, cfg.Issuer, time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(7, "alice", "", cfg.SecretKey, cfg.Issuer, -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken(7, "alice", "", "other", cfg.Issuer, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := utils.GenerateToken(7, "alice", "", cfg.SecretKey, "someone-else", time.Hour)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, do(r, "/me", ""))
	require.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage"))
	require.Equal(t, http.StatusUnauthorized, do(r, "/me", expired))
	require.Equal(t, http.StatusUnauthorized, do(r, "/me", foreign))
	require.Equal(t, http.StatusUnauthorized, do(r, "/me", wrongIssuer))
	require.Equal(t, http.StatusOK, do(r, "/me", user))

	require.Equal(t, http.StatusForbidden, do(r, "/admin", user))
	require.Equal(t, http.StatusNoContent, do(r, "/admin", admin))
}
