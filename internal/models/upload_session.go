package models

import (
	"time"
)

// UploadStatus 上传会话状态
type UploadStatus string

const (
	UploadStatusActive    UploadStatus = "active"    // 接收分片中
	UploadStatusMerging   UploadStatus = "merging"   // 合并中，拒绝新的分片写入
	UploadStatusCompleted UploadStatus = "completed" // 已合并并交付给媒体库
	UploadStatusCancelled UploadStatus = "cancelled" // 客户端取消
	UploadStatusExpired   UploadStatus = "expired"   // 超过有效期，被清理
)

// uploadTransitions 状态迁移表，未列出的迁移都是非法的。
// 终态 (completed/cancelled/expired) 没有任何出边。
var uploadTransitions = map[UploadStatus][]UploadStatus{
	UploadStatusActive:  {UploadStatusMerging, UploadStatusCancelled, UploadStatusExpired},
	UploadStatusMerging: {UploadStatusCompleted, UploadStatusActive, UploadStatusExpired},
}

// Valid 判断状态值是否合法
func (s UploadStatus) Valid() bool {
	switch s {
	case UploadStatusActive, UploadStatusMerging, UploadStatusCompleted, UploadStatusCancelled, UploadStatusExpired:
		return true
	}
	return false
}

// IsTerminal 终态不可再迁移
func (s UploadStatus) IsTerminal() bool {
	return s.Valid() && len(uploadTransitions[s]) == 0
}

// CanTransitionTo 检查 s -> next 是否在迁移表中
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	for _, to := range uploadTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// SourcesOf 返回所有可以迁移到 next 的状态，用于条件更新的 WHERE status IN (...)
func SourcesOf(next UploadStatus) []UploadStatus {
	var from []UploadStatus
	for _, s := range []UploadStatus{UploadStatusActive, UploadStatusMerging} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// UploadSession 对应 upload_sessions 表，一次分片上传的会话
type UploadSession struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement" json:"-"`
	UploadID     string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"upload_id"` // 随机生成，不可猜测
	OwnerID      uint64       `gorm:"not null;index" json:"owner_id"`
	SiteID       *uint64      `gorm:"default:null;index" json:"site_id,omitempty"` // 多站点时的租户ID
	FileName     string       `gorm:"type:varchar(255);not null" json:"file_name"`
	DeclaredSize int64        `gorm:"type:bigint;not null" json:"declared_size"`
	MimeType     string       `gorm:"type:varchar(128);not null" json:"mime_type"`
	ChunkSize    int64        `gorm:"type:bigint;not null" json:"chunk_size"`
	TotalChunks  int          `gorm:"not null" json:"total_chunks"`
	FileChecksum *string      `gorm:"type:varchar(160);default:null" json:"file_checksum,omitempty"` // 可选的整文件校验和, 格式 algo:hex
	Status       UploadStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Revision     int64        `gorm:"not null;default:0" json:"-"` // 每次分片提交自增，配合条件更新串行化分片写入与状态迁移
	ArtifactKey  *string      `gorm:"type:varchar(1024);default:null" json:"artifact_key,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt    time.Time    `gorm:"not null;index" json:"expires_at"`
	CompletedAt  *time.Time   `gorm:"default:null" json:"completed_at,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (UploadSession) TableName() string {
	return "upload_sessions"
}

// ExpectedChunkSize 返回第 index 个分片应有的字节数，最后一个分片可能更短
func (s *UploadSession) ExpectedChunkSize(index int) int64 {
	if index < 0 || index >= s.TotalChunks {
		return -1
	}
	if index == s.TotalChunks-1 {
		return s.DeclaredSize - s.ChunkSize*int64(s.TotalChunks-1)
	}
	return s.ChunkSize
}

// LapsedAt 会话在 now 时刻是否已经过期。
// 只有 active/merging 会因为 TTL 过期，终态会话保持原状态。
func (s *UploadSession) LapsedAt(now time.Time) bool {
	if s.Status == UploadStatusExpired {
		return true
	}
	if s.Status != UploadStatusActive && s.Status != UploadStatusMerging {
		return false
	}
	return now.After(s.ExpiresAt)
}

// TotalChunksFor 计算 ceil(size / chunkSize)
func TotalChunksFor(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}
