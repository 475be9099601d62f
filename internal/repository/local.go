package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// DeviceIDFile persists the identity of this installation.
type DeviceIDFile struct {
	path string
	mu   sync.Mutex
}

// NewDeviceIDFile creates a DeviceIDFile backed by path.
func NewDeviceIDFile(path string) *DeviceIDFile {
	return &DeviceIDFile{path: path}
}

// GetOrCreate returns the stored device id, generating and persisting a new
// UUID when the file is missing or empty.
func (d *DeviceIDFile) GetOrCreate(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", apperr.Storage("read device id", err)
	}

	id := uuid.NewString()
	if err := writeFileAtomic(d.path, []byte(id), 0o600); err != nil {
		return "", err
	}
	return id, nil
}

// UIStateFile stores per-node UI state, keyed "<gallery_id>_<node_id>".
type UIStateFile struct {
	path string
	mu   sync.Mutex
}

// NewUIStateFile creates a UIStateFile backed by path.
func NewUIStateFile(path string) *UIStateFile {
	return &UIStateFile{path: path}
}

func (u *UIStateFile) readAll() (map[string]map[string]any, error) {
	all := map[string]map[string]any{}
	if err := readJSON(u.path, "ui state", &all); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return map[string]map[string]any{}, nil
		}
		return nil, err
	}
	return all, nil
}

// Get returns the state stored under key and whether it existed.
func (u *UIStateFile) Get(_ context.Context, key string) (map[string]any, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	all, err := u.readAll()
	if err != nil {
		return nil, false, err
	}
	st, ok := all[key]
	return st, ok, nil
}

// Merge shallow-merges state into the state stored under key.
func (u *UIStateFile) Merge(_ context.Context, key string, state map[string]any) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	all, err := u.readAll()
	if err != nil {
		return err
	}
	cur := all[key]
	if cur == nil {
		cur = map[string]any{}
	}
	for k, v := range state {
		cur[k] = v
	}
	all[key] = cur
	return writeJSONAtomic(u.path, all, 0o644)
}
