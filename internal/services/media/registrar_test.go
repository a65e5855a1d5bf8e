package media

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/3Eeeecho/go-cms/internal/config"
	"github.com/3Eeeecho/go-cms/internal/models"
	"github.com/3Eeeecho/go-cms/internal/pkg/mq"
	"github.com/3Eeeecho/go-cms/internal/repositories"
	"github.com/3Eeeecho/go-cms/internal/setup"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.UploadFinalizedEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(queue string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, v.(models.UploadFinalizedEvent))
	return nil
}

func newRegistrar(t *testing.T, pub mq.Publisher) *Registrar {
	t.Helper()
	db, err := setup.InitDatabase(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "media.db")})
	require.NoError(t, err)
	t.Cleanup(func() { setup.CloseDatabase(db) })
	return NewRegistrar(repositories.NewMediaRepository(db), pub, "media_finalized_queue")
}

func testSession() *models.UploadSession {
	return &models.UploadSession{UploadID: "u1", OwnerID: 7, FileName: "movie.mp4", MimeType: "video/mp4"}
}

func testArtifact() models.ArtifactRef {
	return models.ArtifactRef{Key: "artifacts/x/movie.mp4", Size: 10, Checksum: "sha256:ab", ContentType: "video/mp4"}
}

func TestFinalizeRegistersAssetAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	r := newRegistrar(t, pub)

	meta := models.FinalizeMetadata{
		"title":      json.RawMessage(`"Holiday"`),
		"visibility": json.RawMessage(`"public"`),
		"categories": json.RawMessage(`["travel","2024"]`),
	}
	out, err := r.Finalize(context.Background(), testSession(), testArtifact(), meta)
	require.NoError(t, err)

	asset := out.(*models.MediaAsset)
	require.NotZero(t, asset.ID)
	require.Equal(t, "Holiday", asset.Title)
	require.Equal(t, "public", asset.Visibility)
	require.Equal(t, uint64(7), asset.OwnerID)
	require.JSONEq(t, `["travel","2024"]`, string(asset.Categories))

	require.Len(t, pub.events, 1)
	require.Equal(t, asset.ID, pub.events[0].AssetID)
	require.Equal(t, "u1", pub.events[0].UploadID)
}

func TestFinalizeDefaultsAndIdempotence(t *testing.T) {
	r := newRegistrar(t, &recordingPublisher{err: errors.New("broker down")})

	first, err := r.Finalize(context.Background(), testSession(), testArtifact(), nil)
	require.NoError(t, err, "publish failures are not fatal")
	require.Equal(t, "movie", first.(*models.MediaAsset).Title)
	require.Equal(t, "private", first.(*models.MediaAsset).Visibility)

	second, err := r.Finalize(context.Background(), testSession(), testArtifact(), nil)
	require.NoError(t, err)
	require.Equal(t, first.(*models.MediaAsset).ID, second.(*models.MediaAsset).ID)
}

func TestFinalizeRejectsBadMetadata(t *testing.T) {
	r := newRegistrar(t, nil)
	_, err := r.Finalize(context.Background(), testSession(), testArtifact(),
		models.FinalizeMetadata{"visibility": json.RawMessage(`"everyone"`)})
	require.Error(t, err)
}
