package xerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 上传流程的错误类别，客户端可以据此决定重试策略
type Kind string

const (
	KindInvalidArgument   Kind = "InvalidArgument"
	KindNotFound          Kind = "NotFound"
	KindExpired           Kind = "Expired"
	KindInvalidState      Kind = "InvalidState"
	KindInvalidChunkSize  Kind = "InvalidChunkSize"
	KindChecksumMismatch  Kind = "ChecksumMismatch"
	KindIncompleteUpload  Kind = "IncompleteUpload"
	KindIntegrityMismatch Kind = "IntegrityMismatch"
	KindAlreadyMerging    Kind = "AlreadyMerging"
	KindFinalizeFailed    Kind = "FinalizeFailed"
	KindStorageError      Kind = "StorageError"
)

type kindInfo struct {
	sentinel   error
	code       int
	httpStatus int
}

var kinds = map[Kind]kindInfo{
	KindInvalidArgument:   {ErrInvalidParams, InvalidParamsCode, http.StatusBadRequest},
	KindNotFound:          {ErrUploadSessionNotFound, UploadSessionNotFoundCode, http.StatusNotFound},
	KindExpired:           {ErrUploadSessionExpired, UploadSessionExpiredCode, http.StatusGone},
	KindInvalidState:      {ErrUploadStateConflict, UploadStateConflictCode, http.StatusConflict},
	KindInvalidChunkSize:  {ErrChunkSizeInvalid, ChunkSizeInvalidCode, http.StatusBadRequest},
	KindChecksumMismatch:  {ErrChunkHashInvalid, ChunkHashInvalidCode, http.StatusBadRequest},
	KindIncompleteUpload:  {ErrChunkMissing, ChunkMissingCode, http.StatusConflict},
	KindIntegrityMismatch: {ErrHashMismatch, HashMismatchCode, http.StatusUnprocessableEntity},
	KindAlreadyMerging:    {ErrUploadMerging, UploadMergingCode, http.StatusConflict},
	KindFinalizeFailed:    {ErrFinalizeFailed, FinalizeFailedCode, http.StatusBadGateway},
	KindStorageError:      {ErrStorageError, StorageErrorCode, http.StatusInternalServerError},
}

// UploadError 上传流程返回给调用方的错误，全部可由客户端恢复
type UploadError struct {
	Kind    Kind
	Message string
	Missing []int // 仅 IncompleteUpload 时有值
	Err     error // 底层错误，可为空
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, xerr.ErrChunkMissing) 之类的判断对 UploadError 生效
func (e *UploadError) Is(target error) bool {
	info, ok := kinds[e.Kind]
	return ok && info.sentinel == target
}

// Code 对应的业务码
func (e *UploadError) Code() int {
	if info, ok := kinds[e.Kind]; ok {
		return info.code
	}
	return InternalServerErrorCode
}

// HTTPStatus 对应的 HTTP 状态码
func (e *UploadError) HTTPStatus() int {
	if info, ok := kinds[e.Kind]; ok {
		return info.httpStatus
	}
	return http.StatusInternalServerError
}

// NewUploadError 创建一个 UploadError
func NewUploadError(kind Kind, format string, args ...any) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapUploadError 包裹底层错误
func WrapUploadError(kind Kind, err error, format string, args ...any) *UploadError {
	return &UploadError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Incomplete 创建 IncompleteUpload 错误，携带缺失的分片序号
func Incomplete(missing []int) *UploadError {
	return &UploadError{
		Kind:    KindIncompleteUpload,
		Message: fmt.Sprintf("%d chunk(s) missing", len(missing)),
		Missing: missing,
	}
}

// KindOf 取出错误类别，非 UploadError 返回空串
func KindOf(err error) Kind {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
