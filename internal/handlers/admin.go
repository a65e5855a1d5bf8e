package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-cms/internal/pkg/xerr"
	"github.com/3Eeeecho/go-cms/internal/services/upload"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	uploadService upload.UploadService
}

func NewAdminHandler(uploadService upload.UploadService) *AdminHandler {
	return &AdminHandler{uploadService: uploadService}
}

// SweepUploads 立即执行一次过期会话清理
// @Summary 清理过期上传
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response{data=models.SweepResponse} "清理完成"
// @Failure 403 {object} xerr.Response "无权限"
// @Failure 500 {object} xerr.Response "清理失败"
// @Router /api/v1/admin/upload/sweep [post]
func (h *AdminHandler) SweepUploads(c *gin.Context) {
	resp, err := h.uploadService.Sweep(c.Request.Context())
	if err != nil {
		xerr.RespondError(c, err)
		return
	}
	xerr.Success(c, http.StatusOK, "Sweep finished", resp)
}
