package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUploadStatusTransitions(t *testing.T) {
	all := []UploadStatus{UploadStatusActive, UploadStatusMerging, UploadStatusCompleted, UploadStatusCancelled, UploadStatusExpired}
	allowed := map[[2]UploadStatus]bool{
		{UploadStatusActive, UploadStatusMerging}:    true,
		{UploadStatusActive, UploadStatusCancelled}:  true,
		{UploadStatusActive, UploadStatusExpired}:    true,
		{UploadStatusMerging, UploadStatusCompleted}: true,
		{UploadStatusMerging, UploadStatusActive}:    true,
		{UploadStatusMerging, UploadStatusExpired}:   true,
	}
	for _, from := range all {
		for _, to := range all {
			require.Equal(t, allowed[[2]UploadStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	require.True(t, UploadStatusCompleted.IsTerminal())
	require.True(t, UploadStatusCancelled.IsTerminal())
	require.True(t, UploadStatusExpired.IsTerminal())
	require.False(t, UploadStatusMerging.IsTerminal())
	require.False(t, UploadStatus("bogus").IsTerminal())
	require.False(t, UploadStatus("bogus").Valid())

	require.ElementsMatch(t, []UploadStatus{UploadStatusActive, UploadStatusMerging}, SourcesOf(UploadStatusExpired))
	require.Equal(t, []UploadStatus{UploadStatusMerging}, SourcesOf(UploadStatusCompleted))
}

func TestChunkLayout(t *testing.T) {
	s := &UploadSession{DeclaredSize: 10_000_000, ChunkSize: 4_000_000}
	s.TotalChunks = TotalChunksFor(s.DeclaredSize, s.ChunkSize)
	require.Equal(t, 3, s.TotalChunks)
	require.Equal(t, int64(4_000_000), s.ExpectedChunkSize(0))
	require.Equal(t, int64(4_000_000), s.ExpectedChunkSize(1))
	require.Equal(t, int64(2_000_000), s.ExpectedChunkSize(2))
	require.Equal(t, int64(-1), s.ExpectedChunkSize(3))
	require.Equal(t, int64(-1), s.ExpectedChunkSize(-1))

	require.Equal(t, 1, TotalChunksFor(1, 5))
	require.Equal(t, 2, TotalChunksFor(10, 5))
	require.Equal(t, 0, TotalChunksFor(0, 5))
}

func TestLapsedAt(t *testing.T) {
	now := time.Now()
	s := &UploadSession{Status: UploadStatusActive, ExpiresAt: now}
	require.False(t, s.LapsedAt(now))
	require.True(t, s.LapsedAt(now.Add(time.Nanosecond)))

	s.Status = UploadStatusCompleted
	require.False(t, s.LapsedAt(now.Add(time.Hour)), "completed sessions never lapse")

	s.Status = UploadStatusExpired
	require.True(t, s.LapsedAt(now.Add(-time.Hour)))
}
