package models

import (
	"time"
)

// ChunkStatus 分片状态
type ChunkStatus string

const (
	ChunkStatusReceived ChunkStatus = "received" // 长度校验通过，客户端未提供校验和
	ChunkStatusVerified ChunkStatus = "verified" // 客户端校验和比对通过
	ChunkStatusRejected ChunkStatus = "rejected" // 合并时发现存储内容与记录不一致，需要重传
)

// Accepted 可以参与合并的分片
func (s ChunkStatus) Accepted() bool {
	return s == ChunkStatusReceived || s == ChunkStatusVerified
}

// Chunk 对应 upload_chunks 表，(upload_id, chunk_index) 唯一
type Chunk struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement" json:"-"`
	UploadID   string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_chunk_upload_index" json:"upload_id"`
	ChunkIndex int         `gorm:"not null;uniqueIndex:idx_chunk_upload_index" json:"chunk_index"`
	Size       int64       `gorm:"type:bigint;not null" json:"size"`
	Checksum   string      `gorm:"type:varchar(160);not null" json:"checksum"` // 服务端记录的摘要, algo:hex
	Status     ChunkStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	StoredAt   string      `gorm:"type:varchar(1024);not null" json:"-"` // 存储后端的对象 key
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定 GORM 使用的表名
func (Chunk) TableName() string {
	return "upload_chunks"
}
