package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultUploadConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultUploadConfig().Validate())

	cfg := DefaultUploadConfig()
	cfg.LockBackend = "redis"
	require.NoError(t, cfg.Validate())
}

func TestUploadConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadConfig)
	}{
		{"min chunk zero", func(u *UploadConfig) { u.MinChunkSize = 0 }},
		{"max below min", func(u *UploadConfig) { u.MaxChunkSize = u.MinChunkSize - 1 }},
		{"default above max", func(u *UploadConfig) { u.DefaultChunkSize = u.MaxChunkSize + 1 }},
		{"max ttl below default", func(u *UploadConfig) { u.MaxTTL = u.DefaultTTL - time.Second }},
		{"redis lock shorter than merge", func(u *UploadConfig) {
			u.LockBackend = "redis"
			u.LockTTL = 10 * time.Minute
			u.MergeTimeout = 30 * time.Minute
		}},
		{"redis lock equal to merge", func(u *UploadConfig) {
			u.LockBackend = "redis"
			u.LockTTL = u.MergeTimeout
		}},
		{"redis merge unbounded", func(u *UploadConfig) {
			u.LockBackend = "redis"
			u.MergeTimeout = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultUploadConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestMemoryLockIgnoresLockTTL(t *testing.T) {
	cfg := DefaultUploadConfig()
	cfg.LockTTL = time.Minute
	require.NoError(t, cfg.Validate())
}
