package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/setup"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := setup.InitDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "repo.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { setup.CloseDatabase(db) })
	return db
}

func newSession(id string, expires time.Time) *models.UploadSession {
	return &models.UploadSession{
		UploadID:     id,
		OwnerID:      1,
		FileName:     "movie.mp4",
		DeclaredSize: 10_000_000,
		MimeType:     "video/mp4",
		ChunkSize:    4_000_000,
		TotalChunks:  3,
		Status:       models.UploadStatusActive,
		ExpiresAt:    expires.UTC(),
	}
}

func TestSessionRepositoryTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, newSession("s1", time.Now().Add(time.Hour))))

	_, err := repo.FindByUploadID(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))

	ok, err := repo.BumpRevision(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CompareAndSwapStatus(ctx, "s1", []models.UploadStatus{models.UploadStatusActive}, models.UploadStatusMerging)
	require.NoError(t, err)
	require.True(t, ok)

	// second swap from the same source loses
	ok, err = repo.CompareAndSwapStatus(ctx, "s1", []models.UploadStatus{models.UploadStatusActive}, models.UploadStatusMerging)
	require.NoError(t, err)
	require.False(t, ok)

	// chunk commits are refused once merging
	ok, err = repo.BumpRevision(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.CompareAndSwapStatus(ctx, "s1", []models.UploadStatus{models.UploadStatusCompleted}, models.UploadStatusActive)
	require.Error(t, err, "transitions out of a terminal state are rejected before touching the table")

	ok, err = repo.MarkCompleted(ctx, "s1", "artifacts/x/movie.mp4", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	s, err := repo.FindByUploadID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, models.UploadStatusCompleted, s.Status)
	require.Equal(t, int64(1), s.Revision)
	require.NotNil(t, s.ArtifactKey)
	require.NotNil(t, s.CompletedAt)
}

func TestSessionRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newSession("old", now.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, newSession("fresh", now.Add(time.Hour))))
	done := newSession("done", now.Add(-time.Hour))
	done.Status = models.UploadStatusCompleted
	require.NoError(t, repo.Create(ctx, done))

	lapsed, err := repo.ListLapsed(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, lapsed, 1)
	require.Equal(t, "old", lapsed[0].UploadID)

	terminal, err := repo.ListTerminalBefore(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, terminal, 1)
	require.Equal(t, "done", terminal[0].UploadID)

	require.NoError(t, repo.Delete(ctx, "done"))
	_, err = repo.FindByUploadID(ctx, "done")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestChunkRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepository(newTestDB(t))

	put := func(index int, key string, status models.ChunkStatus) {
		require.NoError(t, repo.Upsert(ctx, &models.Chunk{
			UploadID:   "u1",
			ChunkIndex: index,
			Size:       4,
			Checksum:   "sha256:" + key,
			Status:     status,
			StoredAt:   key,
		}))
	}
	put(2, "a", models.ChunkStatusReceived)
	put(0, "b", models.ChunkStatusVerified)
	put(2, "c", models.ChunkStatusVerified)

	c, err := repo.Find(ctx, "u1", 2)
	require.NoError(t, err)
	require.Equal(t, "c", c.StoredAt)
	require.Equal(t, models.ChunkStatusVerified, c.Status)

	indices, err := repo.AcceptedIndices(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, indices)

	require.NoError(t, repo.MarkRejected(ctx, "u1", 0))
	chunks, err := repo.ListAccepted(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, 2, chunks[0].ChunkIndex)

	n, err := repo.DeleteByUploadID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	_, err = repo.Find(ctx, "u1", 2)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestTransactionManagerRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	sessions := NewSessionRepository(db)

	boom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := sessions.WithTx(tx).Create(ctx, newSession("tx", time.Now().Add(time.Hour))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = sessions.FindByUploadID(ctx, "tx")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMediaRepositoryRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepository(newTestDB(t))

	asset := &models.MediaAsset{
		UUID: "11111111-1111-1111-1111-111111111111", UploadID: "u1", OwnerID: 1,
		Title: "movie", FileName: "movie.mp4", MimeType: "video/mp4", Size: 10,
		StorageKey: "artifacts/a/movie.mp4", Checksum: "sha256:00", Visibility: "private",
	}
	first, err := repo.Register(ctx, asset)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again := *asset
	again.ID = 0
	again.UUID = "22222222-2222-2222-2222-222222222222"
	again.StorageKey = "artifacts/b/movie.mp4"
	second, err := repo.Register(ctx, &again)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, asset.UUID, second.UUID)
	require.Equal(t, "artifacts/b/movie.mp4", second.StorageKey)

	_, err = repo.FindByUploadID(ctx, "nope")
	require.True(t, errors.Is(err, ErrNotFound))
}
