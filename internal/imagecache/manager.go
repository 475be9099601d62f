// Package imagecache keeps a local on-disk copy of remotely hosted talent
// images. A talent id maps to <dir>/<id>.jpg and the existence of that file
// is the whole index; entries are never evicted.
package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/metrics"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/remote"
	"github.com/atinyakov/TalentKeeper/internal/securepath"
)

const (
	// MaxConcurrentFetches is the number of image downloads allowed in flight
	// across the whole process.
	MaxConcurrentFetches = 4
	// FetchTimeout is the budget of one image download.
	FetchTimeout = 30 * time.Second
)

// Manager resolves talent ids to cached image files, downloading missing
// images with bounded concurrency. Use one Manager per process.
type Manager struct {
	dir     string
	client  *httpclient.Client
	limit   int
	sem     *semaphore.Weighted
	group   singleflight.Group
	timeout time.Duration
	log     *zap.Logger

	wg sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTimeout overrides FetchTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithMaxConcurrent overrides MaxConcurrentFetches.
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

// New creates a Manager storing images under dir.
func New(dir string, client *httpclient.Client, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image cache dir: %w", err)
	}
	m := &Manager{
		dir:     dir,
		client:  client,
		limit:   MaxConcurrentFetches,
		timeout: FetchTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sem = semaphore.NewWeighted(int64(m.limit))
	return m, nil
}

// Path returns the cache file of id. Invalid ids are rejected before any
// path is built.
func (m *Manager) Path(id string) (string, error) {
	if !models.ValidID(id) {
		return "", fmt.Errorf("invalid talent id %q", id)
	}
	return securepath.Join(m.dir, id+".jpg")
}

// Cached reports whether the image of id is on disk.
func (m *Manager) Cached(id string) bool {
	p, err := m.Path(id)
	if err != nil {
		return false
	}
	return fileExists(p)
}

// Resolve returns the cached file for id, downloading it from url first if
// needed. Concurrent calls for the same id share one download, which runs
// detached from any caller's cancellation and is bounded by the fetch timeout.
// Every failure yields ("", false) and leaves nothing at the destination.
func (m *Manager) Resolve(ctx context.Context, id, url string) (string, bool) {
	dst, err := m.Path(id)
	if err != nil {
		m.log.Warn("rejected image cache id", zap.String("id", id))
		return "", false
	}
	if fileExists(dst) {
		metrics.ImageCacheLookups.WithLabelValues("hit").Inc()
		return dst, true
	}
	metrics.ImageCacheLookups.WithLabelValues("miss").Inc()
	if url == "" {
		return "", false
	}

	flightCtx := context.WithoutCancel(ctx)
	_, err, _ = m.group.Do(id, func() (any, error) {
		// Another flight may have finished between the check above and here.
		if fileExists(dst) {
			return nil, nil
		}
		if err := m.sem.Acquire(flightCtx, 1); err != nil {
			return nil, err
		}
		defer m.sem.Release(1)
		return nil, m.download(flightCtx, url, dst)
	})
	if err != nil {
		m.log.Warn("failed to cache image", zap.String("id", id), zap.String("url", url), zap.Error(err))
		return "", false
	}
	return dst, true
}

func (m *Manager) download(ctx context.Context, url, dst string) (err error) {
	metrics.ImageFetchesInFlight.Inc()
	start := time.Now()
	defer func() {
		metrics.ImageFetchesInFlight.Dec()
		metrics.ImageFetchDuration.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ImageFetches.WithLabelValues(outcome).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpclient.StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	tmp, err := os.CreateTemp(m.dir, ".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("read image body: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	m.log.Debug("cached image", zap.String("path", dst))
	return nil
}

// ResolveBatch resolves the images of talents concurrently and returns the
// id to path mapping of the successes. Talents without an image URL are
// skipped.
func (m *Manager) ResolveBatch(ctx context.Context, talents []models.Talent) map[string]string {
	var (
		mu  sync.Mutex
		out = make(map[string]string, len(talents))
	)
	p := pool.New().WithMaxGoroutines(m.limit)
	for _, t := range talents {
		id, url := t.ID, remote.ImageURL(t)
		if id == "" || url == "" {
			continue
		}
		p.Go(func() {
			if path, ok := m.Resolve(ctx, id, url); ok {
				mu.Lock()
				out[id] = path
				mu.Unlock()
			}
		})
	}
	p.Wait()
	return out
}

// Prefetch downloads the missing images of talents in the background. The
// work is detached from ctx cancellation so it survives the request that
// queued it; Wait blocks until it is done.
func (m *Manager) Prefetch(ctx context.Context, talents []models.Talent) {
	pending := make([]models.Talent, 0, len(talents))
	for _, t := range talents {
		if !m.Cached(t.ID) && remote.ImageURL(t) != "" {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		got := m.ResolveBatch(detached, pending)
		m.log.Debug("prefetch finished", zap.Int("requested", len(pending)), zap.Int("cached", len(got)))
	}()
}

// Wait blocks until every queued prefetch has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (m *Manager) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
