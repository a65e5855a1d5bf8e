package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/3Eeeecho/go-cms/internal/pkg/utils"
	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/3Eeeecho/go-cms/internal/services/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChunkHashHeader 分片校验和的请求头，格式 algo:hex 或纯 hex
const ChunkHashHeader = "X-Chunk-Hash"

// multipartOverhead multipart 请求中除分片内容外允许的额外字节（边界、字段头、chunkHash 等）
const multipartOverhead = 64 << 10

type UploadHandler struct {
	uploadService upload.UploadService
	maxChunkSize  int64
}

func NewUploadHandler(uploadService upload.UploadService, maxChunkSize int64) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, maxChunkSize: maxChunkSize}
}

// Init 处理上传初始化请求
// @Summary 初始化分片上传
// @Description 创建上传会话并返回分片参数
// @Tags 分片上传
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UploadInitRequest true "上传初始化参数"
// @Success 200 {object} xerr.Response{data=models.UploadInitResponse} "上传初始化成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Failure 500 {object} xerr.Response "内部服务器错误"
// @Router /api/v1/upload/init [post]
func (h *UploadHandler) Init(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req models.UploadInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid request body")
		return
	}

	resp, err := h.uploadService.Init(c.Request.Context(), currentUserID, &req)
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Upload initialized successfully", resp)
}

// PutChunk 处理分片上传请求
// @Summary 上传文件分片
// @Description 请求体为分片原始字节，也可以用 multipart 的 chunk 字段上传。重复上传同一分片会覆盖之前的内容
// @Tags 分片上传
// @Accept application/octet-stream
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传会话ID"
// @Param index path int true "分片索引，从 0 开始"
// @Param X-Chunk-Hash header string false "分片校验和"
// @Param chunk formData file false "分片内容 (multipart)"
// @Param chunkHash formData string false "分片校验和 (multipart)"
// @Success 200 {object} xerr.Response{data=models.PutChunkResponse} "分片上传成功"
// @Failure 400 {object} xerr.Response "分片大小或校验和错误"
// @Failure 404 {object} xerr.Response "会话不存在"
// @Failure 409 {object} xerr.Response "会话状态不允许上传"
// @Failure 410 {object} xerr.Response "会话已过期"
// @Router /api/v1/upload/{upload_id}/chunks/{index} [put]
func (h *UploadHandler) PutChunk(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid chunk index")
		return
	}

	payload, hash, err := h.readChunk(c)
	if err != nil {
		xerr.RespondError(c, err)
		return
	}

	resp, err := h.uploadService.PutChunk(c.Request.Context(), currentUserID, &models.PutChunkRequest{
		UploadID:   c.Param("upload_id"),
		ChunkIndex: index,
		Payload:    payload,
		ChunkHash:  hash,
	})
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Chunk uploaded successfully", resp)
}

// readChunk 读取分片内容，超过最大分片大小时直接拒绝，不把整个请求体读进内存
func (h *UploadHandler) readChunk(c *gin.Context) ([]byte, string, error) {
	hash := c.GetHeader(ChunkHashHeader)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if h.maxChunkSize > 0 {
			// 解析表单前就限制请求体大小，超大的请求不会落到临时文件
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxChunkSize+multipartOverhead)
		}
		fileHeader, err := c.FormFile("chunk")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, "", tooLarge(h.maxChunkSize)
			}
			return nil, "", xerr.NewUploadError(xerr.KindInvalidArgument, "chunk file not found")
		}
		if h.maxChunkSize > 0 && fileHeader.Size > h.maxChunkSize {
			return nil, "", tooLarge(h.maxChunkSize)
		}
		f, err := fileHeader.Open()
		if err != nil {
			return nil, "", xerr.WrapUploadError(xerr.KindInvalidArgument, err, "failed to open chunk file")
		}
		defer f.Close()
		body = f
		if formHash := c.PostForm("chunkHash"); formHash != "" {
			hash = formHash
		}
	}
	if h.maxChunkSize > 0 {
		body = io.LimitReader(body, h.maxChunkSize+1)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		logger.Warn("PutChunk: failed to read chunk body", zap.Error(err))
		return nil, "", xerr.WrapUploadError(xerr.KindInvalidArgument, err, "failed to read chunk body")
	}
	if h.maxChunkSize > 0 && int64(len(payload)) > h.maxChunkSize {
		return nil, "", tooLarge(h.maxChunkSize)
	}
	return payload, hash, nil
}

func tooLarge(limit int64) error {
	return xerr.NewUploadError(xerr.KindInvalidChunkSize, "chunk exceeds the limit of %d bytes", limit)
}

// Progress 查询上传进度
// @Summary 查询上传进度
// @Tags 分片上传
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传会话ID"
// @Success 200 {object} xerr.Response{data=models.UploadProgress} "查询成功"
// @Failure 404 {object} xerr.Response "会话不存在"
// @Failure 410 {object} xerr.Response "会话已过期"
// @Router /api/v1/upload/{upload_id}/progress [get]
func (h *UploadHandler) Progress(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	resp, err := h.uploadService.Progress(c.Request.Context(), currentUserID, c.Param("upload_id"))
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Progress retrieved successfully", resp)
}

// Get 查询上传会话
// @Summary 查询上传会话详情
// @Tags 分片上传
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传会话ID"
// @Success 200 {object} xerr.Response{data=models.UploadSession} "查询成功"
// @Failure 404 {object} xerr.Response "会话不存在"
// @Failure 410 {object} xerr.Response "会话已过期"
// @Router /api/v1/upload/{upload_id} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	session, err := h.uploadService.Get(c.Request.Context(), currentUserID, c.Param("upload_id"))
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Upload session retrieved successfully", session)
}

// Merge 合并分片并发布文件
// @Summary 合并分片
// @Description 所有分片到齐后合并为完整文件并登记到媒体库。请求体为可选的媒体元数据
// @Tags 分片上传
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传会话ID"
// @Param request body models.FinalizeMetadata false "媒体元数据"
// @Success 200 {object} xerr.Response{data=models.MergeResponse} "合并成功"
// @Failure 409 {object} xerr.Response "分片不完整或正在合并"
// @Failure 422 {object} xerr.Response "整文件校验失败"
// @Failure 502 {object} xerr.Response "媒体库登记失败，可重试"
// @Router /api/v1/upload/{upload_id}/merge [post]
func (h *UploadHandler) Merge(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var meta models.FinalizeMetadata
	if err := c.ShouldBindJSON(&meta); err != nil && !errors.Is(err, io.EOF) {
		xerr.AbortWithError(c, http.StatusBadRequest, xerr.InvalidParamsCode, "Invalid finalize metadata")
		return
	}

	resp, err := h.uploadService.Merge(c.Request.Context(), currentUserID, c.Param("upload_id"), meta)
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Upload merged successfully", resp)
}

// Cancel 取消上传
// @Summary 取消上传
// @Description 取消未完成的上传并清理已上传的分片
// @Tags 分片上传
// @Produce json
// @Security BearerAuth
// @Param upload_id path string true "上传会话ID"
// @Success 200 {object} xerr.Response "取消成功"
// @Failure 404 {object} xerr.Response "会话不存在"
// @Failure 409 {object} xerr.Response "会话已结束或正在合并"
// @Router /api/v1/upload/{upload_id} [delete]
func (h *UploadHandler) Cancel(c *gin.Context) {
	currentUserID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	uploadID := c.Param("upload_id")
	if err := h.uploadService.Cancel(c.Request.Context(), currentUserID, uploadID); err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Upload cancelled successfully", gin.H{"uploadId": uploadID})
}
