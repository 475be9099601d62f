package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

func TestFileCatalogRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	repo := NewFileCatalogRepository()

	_, err := repo.Load(ctx, path)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	c := &models.Catalog{
		Version: "1.0",
		Talents: []models.Talent{{
			ID:           "talent_a",
			Name:         "A <b>",
			ThumbnailURL: "/morpheus/thumbnail/talent_a",
		}},
	}
	require.NoError(t, repo.Save(ctx, path, c))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "A <b>")
	assert.NotContains(t, string(raw), "thumbnail_url")

	got, err := repo.Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, got.Talents, 1)
	assert.Equal(t, "talent_a", got.Talents[0].ID)
	assert.Empty(t, got.Talents[0].ThumbnailURL)
	// The caller's catalog keeps its response fields.
	assert.NotEmpty(t, c.Talents[0].ThumbnailURL)
}

func TestFileCatalogRepository_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileCatalogRepository().Load(context.Background(), path)
	assert.True(t, apperr.Is(err, apperr.KindStorage))
}

func TestFileCatalogRepository_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	repo := NewFileCatalogRepository()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(context.Background(), path, &models.Catalog{Version: "1.0"}))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFileSnapshotRepository(filepath.Join(t.TempDir(), "remote_snapshot.json"))

	_, _, err := repo.LoadSnapshot(ctx)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, repo.SaveSnapshot(ctx, &models.Catalog{
		Version: "1.0",
		Talents: []models.Talent{{ID: "r1", Name: "Remote"}},
	}, at))

	c, fetchedAt, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, at.Equal(fetchedAt))
	require.Len(t, c.Talents, 1)
	assert.Equal(t, "r1", c.Talents[0].ID)
}

func TestFileAuthRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".patreon_auth.json")
	repo := NewFileAuthRepository(path)

	_, err := repo.LoadAuth(ctx, "dev-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, repo.SaveAuth(ctx, "dev-1", &models.PatreonAuth{AccessToken: "one"}))
	require.NoError(t, repo.SaveAuth(ctx, "dev-2", &models.PatreonAuth{AccessToken: "two"}))

	a, err := repo.LoadAuth(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "one", a.AccessToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, repo.DeleteAuth(ctx, "dev-1"))
	require.NoError(t, repo.DeleteAuth(ctx, "dev-1"))
	_, err = repo.LoadAuth(ctx, "dev-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	b, err := repo.LoadAuth(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, "two", b.AccessToken)
}

func TestDeviceIDFile_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".device_id")
	d := NewDeviceIDFile(path)

	id, err := d.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	again, err := NewDeviceIDFile(path).GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestDeviceIDFile_ExistingValueTrimmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".device_id")
	require.NoError(t, os.WriteFile(path, []byte("  fixed-id\n"), 0o600))

	id, err := NewDeviceIDFile(path).GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestUIStateFile_Merge(t *testing.T) {
	ctx := context.Background()
	u := NewUIStateFile(filepath.Join(t.TempDir(), "ui_state.json"))

	_, ok, err := u.Get(ctx, "g_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, u.Merge(ctx, "g_1", map[string]any{"page": 2.0, "name_filter": "ann"}))
	require.NoError(t, u.Merge(ctx, "g_1", map[string]any{"page": 3.0}))

	st, ok, err := u.Get(ctx, "g_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.0, st["page"])
	assert.Equal(t, "ann", st["name_filter"])
}
