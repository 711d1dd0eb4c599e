package uc

import (
	"context"
	"fmt"

	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// ListStudies returns the catalog ordered by name.
type ListStudies struct {
	repo   Repository
	filter study.ListFilter
}

func NewListStudies(repo Repository, filter study.ListFilter) *ListStudies {
	return &ListStudies{repo: repo, filter: filter}
}

func (uc *ListStudies) Execute(ctx context.Context) ([]*study.Study, error) {
	studies, err := uc.repo.List(ctx, uc.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	return studies, nil
}
