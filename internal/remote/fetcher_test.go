package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/repository"
)

const catalogJSON = `{
  "version": "1.0",
  "talents": [
    {"id": "remote_001", "name": "Ada", "image_path": "images/ada.jpg"},
    {"id": "../../etc/passwd", "name": "Evil"},
    {"id": "remote_002", "name": "Bo", "image_path": "https://cdn.example.com/bo.jpg"}
  ]
}`

func newSnapshots(t *testing.T) *repository.FileSnapshotRepository {
	return repository.NewFileSnapshotRepository(filepath.Join(t.TempDir(), ".remote_catalog_cache.json"))
}

func TestFetcher_SuccessDropsInvalidIDsAndSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	snaps := newSnapshots(t)
	fixed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	f := NewFetcher(NewHTTPSource(httpclient.New(nil), srv.URL), snaps, WithClock(func() time.Time { return fixed }))

	c, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Talents, 2)
	assert.Equal(t, "remote_001", c.Talents[0].ID)
	assert.Equal(t, "remote_002", c.Talents[1].ID)

	snap, at, err := snaps.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, fixed.Equal(at))
	assert.Len(t, snap.Talents, 2)
}

func TestFetcher_FallsBackToSnapshot(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	snaps := newSnapshots(t)
	require.NoError(t, snaps.SaveSnapshot(context.Background(), &models.Catalog{
		Version: "1.0",
		Talents: []models.Talent{{ID: "cached_1", Name: "Cached"}},
	}, time.Now()))

	f := NewFetcher(NewHTTPSource(httpclient.New(nil), srv.URL), snaps)
	c, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Talents, 1)
	assert.Equal(t, "cached_1", c.Talents[0].ID)
	assert.Equal(t, int32(1), calls.Load(), "fetch must not retry")
}

func TestFetcher_MalformedDocumentFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(NewHTTPSource(httpclient.New(nil), srv.URL), newSnapshots(t))
	_, err := f.Fetch(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}

type sourceFunc func(ctx context.Context) ([]byte, error)

func (f sourceFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

func TestFetcher_NoSnapshotIsNetworkError(t *testing.T) {
	src := sourceFunc(func(context.Context) ([]byte, error) { return nil, errors.New("connection refused") })
	f := NewFetcher(src, newSnapshots(t))

	c, err := f.Fetch(context.Background())
	assert.Nil(t, c)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}

func TestFetcher_AppliesTimeout(t *testing.T) {
	src := sourceFunc(func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := NewFetcher(src, newSnapshots(t), WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestObjectSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/morpheus-catalog/catalog.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	src, err := NewObjectSource(ObjectConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "morpheus-catalog",
		PathStyle: true,
	})
	require.NoError(t, err)

	f := NewFetcher(src, newSnapshots(t))
	c, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Talents, 2)
}

func TestAbsoluteImageURLs(t *testing.T) {
	in := []models.Talent{
		{ID: "a", ImagePath: "images/a.jpg"},
		{ID: "b", ImagePath: "https://cdn.example.com/b.jpg"},
		{ID: "c"},
	}
	out := AbsoluteImageURLs(in, "https://store.example.com/catalog/")

	assert.Equal(t, "https://store.example.com/catalog/images/a.jpg", out[0].ImagePath)
	assert.Equal(t, out[0].ImagePath, out[0].ThumbnailURL)
	assert.Equal(t, out[0].ImagePath, out[0].FullImageURL)
	assert.Equal(t, "https://cdn.example.com/b.jpg", out[1].FullImageURL)
	assert.Empty(t, out[2].ThumbnailURL)
	assert.Equal(t, "images/a.jpg", in[0].ImagePath, "input must not be mutated")
}

func TestImageURL_Priority(t *testing.T) {
	assert.Equal(t, "p", ImageURL(models.Talent{ImagePath: "p", FullImageURL: "f", ThumbnailURL: "t"}))
	assert.Equal(t, "f", ImageURL(models.Talent{FullImageURL: "f", ThumbnailURL: "t"}))
	assert.Equal(t, "t", ImageURL(models.Talent{ThumbnailURL: "t"}))
	assert.Empty(t, ImageURL(models.Talent{}))
}
