package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode    = 40000 // 无效的请求参数
	ValidationFailedCode = 40001 // 参数验证失败
	FileTooLargeCode     = 40003 // 文件过大
	FileNameInvalidCode  = 40004 // 文件名无效
	ChunkMissingCode     = 40011 // 上传分片丢失
	HashMismatchCode     = 40012 // 文件Hash不匹配
	ChunkSizeInvalidCode = 40013 // 分片大小与会话不符
	ChunkHashInvalidCode = 40014 // 分片校验和不匹配

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode = 40100 // 通用未授权
	TokenInvalidCode = 40101 // Token 无效或过期

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode        = 40300 // 通用无权限
	PermissionDeniedCode = 40301 // 权限不足 (细分)

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode              = 40400 // 通用资源未找到
	UploadSessionNotFoundCode = 40406 // 上传会话不存在

	// --- 业务逻辑冲突系列 (409xx) ---
	UploadStateConflictCode = 40905 // 会话状态不允许该操作
	UploadMergingCode       = 40906 // 会话正在合并

	// --- 资源已失效系列 (410xx) ---
	UploadSessionExpiredCode = 41001 // 上传会话已过期

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（如MinIO）
	MQErrorCode             = 50003 // 消息队列操作失败
	FinalizeFailedCode      = 50004 // 媒体库登记失败
)
