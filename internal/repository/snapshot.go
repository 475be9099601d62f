package repository

import (
	"context"
	"time"

	"github.com/atinyakov/TalentKeeper/internal/models"
)

// Snapshot is the last remote catalog fetched successfully.
type Snapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Catalog   models.Catalog `json:"catalog"`
}

// FileSnapshotRepository keeps the remote catalog snapshot in a single file.
type FileSnapshotRepository struct {
	path string
}

// NewFileSnapshotRepository creates a repository backed by path.
func NewFileSnapshotRepository(path string) *FileSnapshotRepository {
	return &FileSnapshotRepository{path: path}
}

// SaveSnapshot replaces the stored snapshot.
func (r *FileSnapshotRepository) SaveSnapshot(_ context.Context, c *models.Catalog, fetchedAt time.Time) error {
	return writeJSONAtomic(r.path, Snapshot{FetchedAt: fetchedAt, Catalog: *c}, 0o644)
}

// LoadSnapshot returns the stored snapshot, or NotFound when none exists.
func (r *FileSnapshotRepository) LoadSnapshot(_ context.Context) (*models.Catalog, time.Time, error) {
	var s Snapshot
	if err := readJSON(r.path, "catalog snapshot", &s); err != nil {
		return nil, time.Time{}, err
	}
	return &s.Catalog, s.FetchedAt, nil
}
