package uc

import (
	"context"
	"fmt"

	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// ToggleVisibility flips whether a study shows on the dashboard.
type ToggleVisibility struct {
	repo Repository
	id   string
}

func NewToggleVisibility(repo Repository, id string) *ToggleVisibility {
	return &ToggleVisibility{repo: repo, id: id}
}

// Execute returns the new visibility.
func (uc *ToggleVisibility) Execute(ctx context.Context) (bool, error) {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return false, err
	}
	visible := !s.Visible
	if err := uc.repo.SetVisible(ctx, s.ID, visible); err != nil {
		return false, fmt.Errorf("failed to set visibility: %w", err)
	}
	logger.FromContext(ctx).Info("Study visibility changed", "study_id", s.ID, "visible", visible)
	return visible, nil
}
