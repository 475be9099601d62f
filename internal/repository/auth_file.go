package repository

import (
	"context"
	"sync"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

// FileAuthRepository keeps Patreon OAuth sessions in one JSON file keyed by device id.
// It is the default store when no database is configured.
type FileAuthRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileAuthRepository creates a repository backed by path.
func NewFileAuthRepository(path string) *FileAuthRepository {
	return &FileAuthRepository{path: path}
}

func (r *FileAuthRepository) readAll() (map[string]*models.PatreonAuth, error) {
	all := map[string]*models.PatreonAuth{}
	if err := readJSON(r.path, "patreon sessions", &all); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return map[string]*models.PatreonAuth{}, nil
		}
		return nil, err
	}
	return all, nil
}

// LoadAuth returns the session stored for deviceID, or NotFound.
func (r *FileAuthRepository) LoadAuth(_ context.Context, deviceID string) (*models.PatreonAuth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}
	a, ok := all[deviceID]
	if !ok || a == nil {
		return nil, apperr.NotFound("patreon session")
	}
	return a, nil
}

// SaveAuth inserts or replaces the session of deviceID.
func (r *FileAuthRepository) SaveAuth(_ context.Context, deviceID string, a *models.PatreonAuth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return err
	}
	all[deviceID] = a
	return writeJSONAtomic(r.path, all, 0o600)
}

// DeleteAuth removes the session of deviceID.
func (r *FileAuthRepository) DeleteAuth(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[deviceID]; !ok {
		return nil
	}
	delete(all, deviceID)
	return writeJSONAtomic(r.path, all, 0o600)
}
