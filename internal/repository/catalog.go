package repository

import (
	"context"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

// FileCatalogRepository loads and saves catalog documents on the local filesystem.
type FileCatalogRepository struct{}

// NewFileCatalogRepository creates a FileCatalogRepository.
func NewFileCatalogRepository() *FileCatalogRepository {
	return &FileCatalogRepository{}
}

// Load reads the catalog at path. A missing file yields a NotFound error,
// an unreadable or malformed one a StorageError.
func (r *FileCatalogRepository) Load(_ context.Context, path string) (*models.Catalog, error) {
	var c models.Catalog
	if err := readJSON(path, "catalog", &c); err != nil {
		return nil, err
	}
	if c.Talents == nil {
		c.Talents = []models.Talent{}
	}
	return &c, nil
}

// Save writes the whole catalog to path atomically. Response-only fields
// are never persisted.
func (r *FileCatalogRepository) Save(_ context.Context, path string, c *models.Catalog) error {
	out := *c
	out.Talents = make([]models.Talent, len(c.Talents))
	for i, t := range c.Talents {
		out.Talents[i] = t.Stored()
	}
	return writeJSONAtomic(path, out, 0o644)
}
