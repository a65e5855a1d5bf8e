package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeUploadService struct {
	lastOwner uint64
	lastChunk *models.PutChunkRequest
	lastMeta  models.FinalizeMetadata
	err       error
}

func (f *fakeUploadService) Init(_ context.Context, ownerID uint64, req *models.UploadInitRequest) (*models.UploadInitResponse, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadInitResponse{UploadID: "u1", ChunkSize: 4, TotalChunks: int((req.FileSize + 3) / 4)}, nil
}

func (f *fakeUploadService) PutChunk(_ context.Context, ownerID uint64, req *models.PutChunkRequest) (*models.PutChunkResponse, error) {
	f.lastOwner = ownerID
	f.lastChunk = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PutChunkResponse{ChunkIndex: req.ChunkIndex, ChunkSize: int64(len(req.Payload))}, nil
}

func (f *fakeUploadService) Progress(_ context.Context, ownerID uint64, uploadID string) (*models.UploadProgress, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadProgress{UploadID: uploadID, Status: models.UploadStatusActive}, nil
}

func (f *fakeUploadService) Get(_ context.Context, ownerID uint64, uploadID string) (*models.UploadSession, error) {
	f.lastOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadSession{UploadID: uploadID, OwnerID: ownerID}, nil
}

func (f *fakeUploadService) Merge(_ context.Context, ownerID uint64, _ string, meta models.FinalizeMetadata) (*models.MergeResponse, error) {
	f.lastOwner = ownerID
	f.lastMeta = meta
	if f.err != nil {
		return nil, f.err
	}
	return &models.MergeResponse{Artifact: models.ArtifactRef{Key: "media/u1/a.bin"}}, nil
}

func (f *fakeUploadService) Cancel(_ context.Context, ownerID uint64, _ string) error {
	f.lastOwner = ownerID
	return f.err
}

func (f *fakeUploadService) Sweep(context.Context) (*models.SweepResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SweepResponse{CleanedCount: 3}, nil
}

func newTestEngine(svc *fakeUploadService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUploadHandler(svc, 8)
	g := r.Group("/uploads", func(c *gin.Context) {
		c.Set("userID", uint64(42))
		c.Next()
	})
	g.POST("/init", h.Init)
	g.PUT("/:upload_id/chunks/:index", h.PutChunk)
	g.GET("/:upload_id/progress", h.Progress)
	g.GET("/:upload_id", h.Get)
	g.POST("/:upload_id/merge", h.Merge)
	g.DELETE("/:upload_id", h.Cancel)
	r.POST("/admin/sweep", NewAdminHandler(svc).SweepUploads)
	return r
}

func serve(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, xerr.Response) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp xerr.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestInitHandler(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	body := `{"fileName":"a.bin","fileSize":10,"mimeType":"application/octet-stream"}`
	w, resp := serve(r, httptest.NewRequest(http.MethodPost, "/uploads/init", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, xerr.SuccessCode, resp.Code)
	require.Equal(t, uint64(42), svc.lastOwner)

	w, resp = serve(r, httptest.NewRequest(http.MethodPost, "/uploads/init", strings.NewReader(`{"fileName":`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, xerr.InvalidParamsCode, resp.Code)
}

func TestPutChunkRawBody(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	req := httptest.NewRequest(http.MethodPut, "/uploads/u1/chunks/2", bytes.NewReader([]byte("abcd")))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(ChunkHashHeader, "sha256:00")
	w, _ := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u1", svc.lastChunk.UploadID)
	require.Equal(t, 2, svc.lastChunk.ChunkIndex)
	require.Equal(t, []byte("abcd"), svc.lastChunk.Payload)
	require.Equal(t, "sha256:00", svc.lastChunk.ChunkHash)
}

func TestPutChunkMultipart(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("chunk", "part")
	require.NoError(t, err)
	_, err = fw.Write([]byte("xyz"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("chunkHash", "md5:11"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/uploads/u1/chunks/0", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, _ := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []byte("xyz"), svc.lastChunk.Payload)
	require.Equal(t, "md5:11", svc.lastChunk.ChunkHash)
}

func TestPutChunkRejectsBadInput(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	w, resp := serve(r, httptest.NewRequest(http.MethodPut, "/uploads/u1/chunks/-1", strings.NewReader("a")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, xerr.InvalidParamsCode, resp.Code)

	w, resp = serve(r, httptest.NewRequest(http.MethodPut, "/uploads/u1/chunks/0", strings.NewReader("123456789")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, xerr.ChunkSizeInvalidCode, resp.Code)
	require.Nil(t, svc.lastChunk)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{xerr.NewUploadError(xerr.KindNotFound, "missing"), http.StatusNotFound, xerr.UploadSessionNotFoundCode},
		{xerr.NewUploadError(xerr.KindExpired, "old"), http.StatusGone, xerr.UploadSessionExpiredCode},
		{xerr.NewUploadError(xerr.KindAlreadyMerging, "busy"), http.StatusConflict, xerr.UploadMergingCode},
		{xerr.NewUploadError(xerr.KindIntegrityMismatch, "bad"), http.StatusUnprocessableEntity, xerr.HashMismatchCode},
		{xerr.NewUploadError(xerr.KindFinalizeFailed, "down"), http.StatusBadGateway, xerr.FinalizeFailedCode},
	}
	for _, tc := range cases {
		svc := &fakeUploadService{err: tc.err}
		r := newTestEngine(svc)
		w, resp := serve(r, httptest.NewRequest(http.MethodGet, "/uploads/u1/progress", nil))
		require.Equal(t, tc.status, w.Code, tc.err.Error())
		require.Equal(t, tc.code, resp.Code, tc.err.Error())
	}
}

func TestIncompleteMergeListsMissingChunks(t *testing.T) {
	svc := &fakeUploadService{err: xerr.Incomplete([]int{1, 3})}
	r := newTestEngine(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/uploads/u1/merge", nil))
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Code int              `json:"code"`
		Data xerr.ErrorDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, xerr.ChunkMissingCode, resp.Code)
	require.Equal(t, xerr.KindIncompleteUpload, resp.Data.Kind)
	require.Equal(t, []int{1, 3}, resp.Data.MissingChunks)
}

func TestMergeMetadata(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	w, _ := serve(r, httptest.NewRequest(http.MethodPost, "/uploads/u1/merge", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, svc.lastMeta)

	w, _ = serve(r, httptest.NewRequest(http.MethodPost, "/uploads/u1/merge", strings.NewReader(`{"title":"Movie"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `"Movie"`, string(svc.lastMeta["title"]))

	w, resp := serve(r, httptest.NewRequest(http.MethodPost, "/uploads/u1/merge", strings.NewReader(`[1,2]`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, xerr.InvalidParamsCode, resp.Code)
}

func TestCancelAndSweep(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	w, _ := serve(r, httptest.NewRequest(http.MethodDelete, "/uploads/u1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := serve(r, httptest.NewRequest(http.MethodPost, "/admin/sweep", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 3, data["cleanedCount"])
}

func TestPutChunkMultipartBodyIsBounded(t *testing.T) {
	svc := &fakeUploadService{}
	r := newTestEngine(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("chunk", "part")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 2*multipartOverhead))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/uploads/u1/chunks/0", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, resp := serve(r, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEqual(t, xerr.SuccessCode, resp.Code)
	require.Nil(t, svc.lastChunk, "oversized multipart bodies never reach the service")
}
