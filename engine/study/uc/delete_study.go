package uc

import (
	"context"
	"fmt"

	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// DeleteStudy removes a study row and its directory.
type DeleteStudy struct {
	repo   Repository
	layers LayerStore
	files  FileStore
	id     string
}

func NewDeleteStudy(repo Repository, layers LayerStore, files FileStore, id string) *DeleteStudy {
	return &DeleteStudy{repo: repo, layers: layers, files: files, id: id}
}

func (uc *DeleteStudy) Execute(ctx context.Context) error {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return err
	}
	// The per-study database must be closed before its file goes away.
	uc.layers.Release(s.ID)
	if err := uc.repo.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}
	if err := uc.files.Remove(s.ID); err != nil {
		return fmt.Errorf("removing study directory: %w", err)
	}
	logger.FromContext(ctx).Info("Study deleted", "study_id", s.ID)
	return nil
}
