package uc

import (
	"context"
	"fmt"
	"time"

	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// UpdateStudy changes the editable fields of a study. The id and directory
// are kept when the name changes.
type UpdateStudy struct {
	repo  Repository
	id    string
	input *study.UpdateInput
}

func NewUpdateStudy(repo Repository, id string, input *study.UpdateInput) *UpdateStudy {
	return &UpdateStudy{repo: repo, id: id, input: input}
}

func (uc *UpdateStudy) Execute(ctx context.Context) (*study.Study, error) {
	if err := uc.input.Validate(); err != nil {
		return nil, err
	}
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return nil, err
	}
	s.Apply(uc.input)
	s.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update study: %w", err)
	}
	logger.FromContext(ctx).Info("Study updated", "study_id", s.ID, "name", s.Name)
	return s, nil
}
