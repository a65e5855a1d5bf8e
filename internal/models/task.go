package models

import "time"

// UploadFinalizedEvent 合并完成后发布到 RabbitMQ 的消息体，供转码等下游服务消费
type UploadFinalizedEvent struct {
	AssetID     uint64    `json:"asset_id"`
	AssetUUID   string    `json:"asset_uuid"`
	UploadID    string    `json:"upload_id"`
	OwnerID     uint64    `json:"owner_id"`
	SiteID      *uint64   `json:"site_id,omitempty"`
	StorageKey  string    `json:"storage_key"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	FinalizedAt time.Time `json:"finalized_at"`
}
