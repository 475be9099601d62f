// Package service provides the talent catalog business logic, delegating
// persistence to repository interfaces and remote access to injected clients.
package service

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/catalog"
	"github.com/atinyakov/TalentKeeper/internal/models"
	"github.com/atinyakov/TalentKeeper/internal/remote"
	"github.com/atinyakov/TalentKeeper/internal/securepath"
)

const (
	// DefaultRoutePrefix is where the HTTP surface is mounted; image URLs
	// handed to clients point below it.
	DefaultRoutePrefix = "/morpheus"

	// DefaultCatalogPath is the editable catalog, relative to the data directory.
	DefaultCatalogPath = "catalog/catalog.json"

	thumbnailsDir = ".thumbnails"
	imagesDir     = "images"
	tempUploadDir = ".temp_uploads"
)

// CatalogRepository loads and saves whole catalog documents.
type CatalogRepository interface {
	Load(ctx context.Context, path string) (*models.Catalog, error)
	Save(ctx context.Context, path string, c *models.Catalog) error
}

// RemoteCatalog supplies the remote catalog.
type RemoteCatalog interface {
	Fetch(ctx context.Context) (*models.Catalog, error)
}

// ImageCache resolves remote images to local files.
type ImageCache interface {
	Cached(id string) bool
	Path(id string) (string, error)
	Prefetch(ctx context.Context, talents []models.Talent)
}

// AccessChecker decides whether a device may browse the remote catalog.
type AccessChecker interface {
	Check(ctx context.Context, deviceID string) models.AccessDecision
}

// ThumbnailMaker renders a thumbnail of src into dst.
type ThumbnailMaker interface {
	Make(src, dst string) error
}

// Config holds the TalentService settings.
type Config struct {
	// DataDir is the root every client-supplied path is resolved against.
	DataDir string
	// CatalogBaseURL resolves relative image paths of the remote catalog.
	CatalogBaseURL string
	// RoutePrefix defaults to DefaultRoutePrefix.
	RoutePrefix string
}

// ListQuery selects a page of talents.
type ListQuery struct {
	Filter       models.FilterSpec
	Page         int
	PageSize     int
	UseRemote    bool
	DeviceID     string
	CatalogPath  string
	ImagesFolder string
}

// ListResult is one page of talents.
type ListResult struct {
	Talents       []models.Talent `json:"talents"`
	TotalPages    int             `json:"total_pages"`
	CurrentPage   int             `json:"current_page"`
	TotalCount    int             `json:"total_count"`
	Source        string          `json:"source"`
	Authenticated *bool           `json:"authenticated,omitempty"`
	ShowCTA       bool            `json:"show_cta,omitempty"`
}

// TalentService lists and edits talents from the local and remote catalogs.
type TalentService struct {
	dataDir     string
	baseURL     string
	routePrefix string

	catalogs CatalogRepository
	remote   RemoteCatalog
	images   ImageCache
	gate     AccessChecker
	thumbs   ThumbnailMaker

	log *zap.Logger
	now func() time.Time

	// mu serializes catalog read-modify-write cycles.
	mu sync.Mutex
}

// Option configures a TalentService.
type Option func(*TalentService)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *TalentService) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TalentService) { s.now = now }
}

// NewTalentService wires a TalentService.
func NewTalentService(
	cfg Config,
	catalogs CatalogRepository,
	remoteCatalog RemoteCatalog,
	images ImageCache,
	gate AccessChecker,
	thumbs ThumbnailMaker,
	opts ...Option,
) *TalentService {
	s := &TalentService{
		dataDir:     cfg.DataDir,
		baseURL:     cfg.CatalogBaseURL,
		routePrefix: strings.TrimRight(cfg.RoutePrefix, "/"),
		catalogs:    catalogs,
		remote:      remoteCatalog,
		images:      images,
		gate:        gate,
		thumbs:      thumbs,
		log:         zap.NewNop(),
		now:         time.Now,
	}
	if s.routePrefix == "" {
		s.routePrefix = DefaultRoutePrefix
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List dispatches to ListRemote or ListLocal.
func (s *TalentService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.UseRemote {
		return s.ListRemote(ctx, q)
	}
	return s.ListLocal(ctx, q)
}

// ListRemote returns a page of the remote catalog. The access gate runs
// first; a denied device gets an empty page flagged with show_cta and no
// error. Images already cached are served locally and the rest of the page
// is queued for download.
func (s *TalentService) ListRemote(ctx context.Context, q ListQuery) (*ListResult, error) {
	if d := s.gate.Check(ctx, q.DeviceID); !d.Authenticated {
		denied := false
		return &ListResult{
			Talents:       []models.Talent{},
			CurrentPage:   1,
			Source:        "remote",
			Authenticated: &denied,
			ShowCTA:       true,
		}, nil
	}

	c, err := s.remote.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	filtered := remote.AbsoluteImageURLs(catalog.Filter(c.Talents, q.Filter), s.baseURL)
	page, err := catalog.Paginate(filtered, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}

	missing := make([]models.Talent, 0, len(page.Items))
	for i := range page.Items {
		t := &page.Items[i]
		if s.images.Cached(t.ID) {
			cached := s.routePrefix + "/cached_image/" + t.ID
			t.ThumbnailURL = cached
			t.FullImageURL = cached
			continue
		}
		missing = append(missing, *t)
	}
	if len(missing) > 0 {
		s.images.Prefetch(ctx, missing)
	}

	granted := true
	return &ListResult{
		Talents:       page.Items,
		TotalPages:    page.TotalPages,
		CurrentPage:   q.Page,
		TotalCount:    page.TotalCount,
		Source:        "remote",
		Authenticated: &granted,
	}, nil
}

// ListLocal returns a page of a local catalog. A missing catalog is created
// from the images folder, or from the sample talents when the folder holds
// no images.
func (s *TalentService) ListLocal(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.CatalogPath == "" || q.ImagesFolder == "" {
		return nil, apperr.InvalidArgument("Missing catalog_path or images_folder")
	}
	catalogPath, err := securepath.Resolve(s.dataDir, q.CatalogPath)
	if err != nil {
		return nil, err
	}
	imagesPath, err := securepath.Resolve(s.dataDir, q.ImagesFolder)
	if err != nil {
		return nil, err
	}

	c, err := s.loadOrBootstrap(ctx, catalogPath, imagesPath)
	if err != nil {
		return nil, err
	}

	valid := make([]models.Talent, 0, len(c.Talents))
	for _, t := range c.Talents {
		if models.ValidID(t.ID) {
			valid = append(valid, t)
		}
	}

	page, err := catalog.Paginate(catalog.Filter(valid, q.Filter), q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}

	params := url.Values{"catalog_path": {q.CatalogPath}, "images_folder": {q.ImagesFolder}}.Encode()
	for i := range page.Items {
		t := &page.Items[i]
		if strings.HasPrefix(t.ImagePath, "http") {
			t.ThumbnailURL = t.ImagePath
			t.FullImageURL = t.ImagePath
			continue
		}
		t.ThumbnailURL = s.routePrefix + "/thumbnail/" + t.ID + "?" + params
		t.FullImageURL = s.routePrefix + "/image/" + t.ID + "?" + params
	}

	return &ListResult{
		Talents:     page.Items,
		TotalPages:  page.TotalPages,
		CurrentPage: q.Page,
		TotalCount:  page.TotalCount,
		Source:      "local",
	}, nil
}

func (s *TalentService) loadOrBootstrap(ctx context.Context, catalogPath, imagesPath string) (*models.Catalog, error) {
	c, err := s.catalogs.Load(ctx, catalogPath)
	if err == nil {
		return c, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have written it meanwhile.
	if c, err := s.catalogs.Load(ctx, catalogPath); err == nil {
		return c, nil
	}

	now := s.now()
	c, err = catalog.Scan(filepath.Dir(catalogPath), imagesPath, now)
	if err != nil || len(c.Talents) == 0 {
		if err != nil {
			s.log.Warn("failed to scan images folder", zap.String("images_folder", imagesPath), zap.Error(err))
		}
		c = catalog.Sample(now)
	}
	if err := s.catalogs.Save(ctx, catalogPath, c); err != nil {
		s.log.Warn("failed to save generated catalog", zap.String("catalog_path", catalogPath), zap.Error(err))
	} else {
		s.log.Info("generated catalog", zap.String("catalog_path", catalogPath), zap.Int("talents", len(c.Talents)))
	}
	return c, nil
}
