package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// UIStateRepository stores per-node UI state.
type UIStateRepository interface {
	Get(ctx context.Context, key string) (map[string]any, bool, error)
	Merge(ctx context.Context, key string, state map[string]any) error
}

// UIStateService keys UI state by gallery and node.
type UIStateService struct {
	repo UIStateRepository
}

// NewUIStateService creates a UIStateService.
func NewUIStateService(repo UIStateRepository) *UIStateService {
	return &UIStateService{repo: repo}
}

// DefaultUIState is returned for nodes that never stored a state.
func DefaultUIState() map[string]any {
	return map[string]any{
		"selected_talent_id": "",
		"filters": map[string]any{
			"name":      "",
			"tags":      "",
			"logic":     "OR",
			"gender":    "",
			"age_group": "",
			"ethnicity": "",
		},
	}
}

func uiStateKey(galleryID, nodeID string) (string, error) {
	if galleryID == "" || nodeID == "" {
		return "", apperr.InvalidArgument("node_id or gallery_id required")
	}
	return fmt.Sprintf("%s_%s", galleryID, nodeID), nil
}

// Get returns the stored state of a node, or DefaultUIState.
func (s *UIStateService) Get(ctx context.Context, galleryID, nodeID string) (map[string]any, error) {
	key, err := uiStateKey(galleryID, nodeID)
	if err != nil {
		return nil, err
	}
	st, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultUIState(), nil
	}
	return st, nil
}

// Merge shallow-merges state into the stored state of a node.
func (s *UIStateService) Merge(ctx context.Context, galleryID, nodeID string, state map[string]any) error {
	key, err := uiStateKey(galleryID, nodeID)
	if err != nil {
		return err
	}
	return s.repo.Merge(ctx, key, state)
}
