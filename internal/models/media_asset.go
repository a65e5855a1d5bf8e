package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaAsset 对应 media_assets 表。合并完成的文件在这里登记后，归媒体库所有。
type MediaAsset struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID       string         `gorm:"type:varchar(36);unique;not null" json:"uuid"`
	UploadID   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"upload_id"` // 同一次上传只登记一次
	OwnerID    uint64         `gorm:"not null;index" json:"owner_id"`
	SiteID     *uint64        `gorm:"default:null;index" json:"site_id,omitempty"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	FileName   string         `gorm:"type:varchar(255);not null" json:"file_name"`
	MimeType   string         `gorm:"type:varchar(128);not null" json:"mime_type"`
	Size       int64          `gorm:"type:bigint;not null" json:"size"`
	StorageKey string         `gorm:"type:varchar(1024);not null" json:"storage_key"`
	Checksum   string         `gorm:"type:varchar(160);not null" json:"checksum"`
	Visibility string         `gorm:"type:varchar(20);not null;default:'private'" json:"visibility"`
	Categories datatypes.JSON `json:"categories,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"` // 客户端传入的 finalizeMetadata 原样保存
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (MediaAsset) TableName() string {
	return "media_assets"
}
