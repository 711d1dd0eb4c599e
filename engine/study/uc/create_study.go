package uc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// CreateStudy registers a study and prepares its directory and database.
type CreateStudy struct {
	repo   Repository
	layers LayerStore
	files  FileStore
	input  *study.CreateInput
}

// NewCreateStudy creates a new create study use case
func NewCreateStudy(repo Repository, layers LayerStore, files FileStore, input *study.CreateInput) *CreateStudy {
	return &CreateStudy{repo: repo, layers: layers, files: files, input: input}
}

// Execute validates the input and creates the study. The directory is removed
// again when a later step fails.
func (uc *CreateStudy) Execute(ctx context.Context) (s *study.Study, err error) {
	log := logger.FromContext(ctx)
	if err := uc.input.Validate(); err != nil {
		return nil, err
	}
	id := study.NewID(uc.input.Name)
	if _, err := uc.repo.Get(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", study.ErrStudyExists, id)
	} else if !errors.Is(err, study.ErrStudyNotFound) {
		return nil, fmt.Errorf("checking existing study: %w", err)
	}
	exists, err := uc.files.Exists(id)
	if err != nil {
		return nil, fmt.Errorf("checking study directory: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: directory %s is already in use", study.ErrStudyExists, id)
	}

	dir, err := uc.files.Create(id)
	if err != nil {
		return nil, fmt.Errorf("creating study directory: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		uc.layers.Release(id)
		if rmErr := uc.files.Remove(id); rmErr != nil {
			log.Warn("Failed to remove study directory after error", "study_id", id, "error", rmErr)
		}
	}()

	now := time.Now().UTC()
	s = &study.Study{
		ID:          id,
		Name:        uc.input.Name,
		Description: uc.input.Description,
		Lat:         uc.input.Lat,
		Lon:         uc.input.Lon,
		Visible:     false,
		DirPath:     dir,
		DBPath:      filepath.Join(dir, id+".db"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = uc.layers.Init(ctx, s); err != nil {
		return nil, fmt.Errorf("initializing study database: %w", err)
	}
	if err = uc.repo.Create(ctx, s); err != nil {
		if errors.Is(err, study.ErrStudyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create study: %w", err)
	}
	log.Info("Study created", "study_id", s.ID, "name", s.Name)
	return s, nil
}
