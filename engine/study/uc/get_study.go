package uc

import (
	"context"

	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// GetStudy loads one study.
type GetStudy struct {
	repo Repository
	id   string
}

func NewGetStudy(repo Repository, id string) *GetStudy {
	return &GetStudy{repo: repo, id: id}
}

func (uc *GetStudy) Execute(ctx context.Context) (*study.Study, error) {
	return uc.repo.Get(ctx, uc.id)
}
