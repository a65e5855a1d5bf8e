package models

import (
	"encoding/json"
	"time"
)

// UploadInitRequest 定义了初始化分片上传的请求体
type UploadInitRequest struct {
	FileName    string  `json:"fileName" binding:"required"`
	FileSize    int64   `json:"fileSize" binding:"required"`
	MimeType    string  `json:"mimeType" binding:"required"`
	ChunkSize   *int64  `json:"chunkSize"`   // 不传则使用默认分片大小
	ExpiryHours *int    `json:"expiryHours"` // 不传则使用默认有效期
	FileHash    string  `json:"fileHash"`    // 可选的整文件校验和，合并时校验
	SiteID      *uint64 `json:"siteId"`
}

// UploadInitResponse 定义了初始化分片上传的响应体
type UploadInitResponse struct {
	UploadID    string    `json:"uploadId"`
	ChunkSize   int64     `json:"chunkSize"`
	TotalChunks int       `json:"totalChunks"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PutChunkRequest 上传单个分片
type PutChunkRequest struct {
	UploadID   string
	ChunkIndex int
	Payload    []byte
	ChunkHash  string // 可选，格式 algo:hex 或纯 hex
}

// PutChunkResponse 分片上传结果，附带当前进度
type PutChunkResponse struct {
	ChunkIndex     int         `json:"chunkIndex"`
	ChunkSize      int64       `json:"chunkSize"`
	Status         ChunkStatus `json:"status"`
	Progress       float64     `json:"progress"`
	UploadedChunks int         `json:"uploadedChunks"`
	TotalChunks    int         `json:"totalChunks"`
}

// UploadProgress 上传进度快照
type UploadProgress struct {
	UploadID       string       `json:"uploadId"`
	Status         UploadStatus `json:"status"`
	Progress       float64      `json:"progress"`
	UploadedChunks int          `json:"uploadedChunks"`
	TotalChunks    int          `json:"totalChunks"`
	MissingChunks  []int        `json:"missingChunks,omitempty"`
}

// FinalizeMetadata 合并完成后交给媒体库的元数据，内容对上传流程不透明
type FinalizeMetadata map[string]json.RawMessage

// ArtifactRef 已发布文件的引用
type ArtifactRef struct {
	Key         string `json:"key"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"contentType"`
}

// MergeResponse 合并结果
type MergeResponse struct {
	Artifact        ArtifactRef `json:"artifact"`
	FinalizedEntity any         `json:"finalizedEntity"`
}

// SweepResponse 手动触发清理的结果
type SweepResponse struct {
	CleanedCount int `json:"cleanedCount"`
}
