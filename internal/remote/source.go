package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
)

// maxCatalogSize bounds the catalog document read from any source.
const maxCatalogSize = 32 << 20

// Source returns the raw remote catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource reads the catalog from a public content URL.
type HTTPSource struct {
	client *httpclient.Client
	url    string
}

// NewHTTPSource creates a source that GETs url.
func NewHTTPSource(client *httpclient.Client, url string) *HTTPSource {
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := s.client.Get(ctx, s.url, httpclient.WithHeader("Accept", "application/json"))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.StatusError{StatusCode: resp.StatusCode, URL: s.url}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.url, err)
	}
	return data, nil
}

// ObjectConfig locates the catalog in an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	UseSSL    bool   `json:"use_ssl"`
	// PathStyle forces path-style bucket addressing, which most
	// self-hosted and Supabase endpoints require.
	PathStyle bool `json:"path_style"`
}

// ObjectSource reads the catalog object from a bucket.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
}

// NewObjectSource creates a bucket-backed source.
func NewObjectSource(cfg ObjectConfig) (*ObjectSource, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "catalog.json"
	}
	return &ObjectSource{client: client, bucket: cfg.Bucket, key: key}, nil
}

func (s *ObjectSource) Fetch(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s.key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", s.key, err)
	}
	return data, nil
}
