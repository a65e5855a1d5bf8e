package xerr

import "errors"

var (
	// 通用错误
	ErrInternalServer = errors.New("服务器内部错误")

	// 客户端请求错误
	ErrInvalidParams    = errors.New("无效的请求参数")
	ErrFileTooLarge     = errors.New("上传文件过大，超出限制")
	ErrChunkMissing     = errors.New("部分上传分片丢失，请重新上传")
	ErrHashMismatch     = errors.New("文件哈希值校验失败")
	ErrChunkSizeInvalid = errors.New("分片大小与会话不符")
	ErrChunkHashInvalid = errors.New("分片校验和不匹配")

	// 认证与授权错误
	ErrUnauthorized     = errors.New("用户未授权")
	ErrTokenInvalid     = errors.New("认证 Token 无效或已过期")
	ErrPermissionDenied = errors.New("您没有操作此资源的权限")

	// 上传会话
	ErrUploadSessionNotFound = errors.New("上传会话不存在")
	ErrUploadSessionExpired  = errors.New("上传会话已过期")
	ErrUploadStateConflict   = errors.New("上传会话当前状态不允许该操作")
	ErrUploadMerging         = errors.New("上传会话正在合并中")
	ErrFinalizeFailed        = errors.New("文件登记到媒体库失败")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
)
