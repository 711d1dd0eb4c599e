package uc

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/systragroup/SG-DataDashboard/engine/geo"
	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// Repository persists the study catalog.
type Repository interface {
	Create(ctx context.Context, s *study.Study) error
	Get(ctx context.Context, id string) (*study.Study, error)
	List(ctx context.Context, filter study.ListFilter) ([]*study.Study, error)
	Update(ctx context.Context, s *study.Study) error
	SetVisible(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
}

// LayerStore persists imported layers in the per-study database.
type LayerStore interface {
	Init(ctx context.Context, s *study.Study) error
	SaveOutline(ctx context.Context, s *study.Study, rec *study.LayerRecord) error
	SaveZones(ctx context.Context, s *study.Study, rec *study.LayerRecord, partition *geo.ZonePartition) error
	GetLayer(ctx context.Context, s *study.Study, kind study.LayerKind) (*study.LayerRecord, error)
	ListZones(ctx context.Context, s *study.Study, filter study.ZoneFilter) ([]study.StoredZone, error)
	ClearLayer(ctx context.Context, s *study.Study, kind study.LayerKind) error
	Release(id string)
}

// StagedFile is an upload written to the study directory but not yet kept.
type StagedFile struct {
	StudyID string
	Name    string
	Path    string
	Size    int64
	Head    []byte
}

// FileStore manages study directories.
type FileStore interface {
	Create(id string) (string, error)
	Remove(id string) error
	Exists(id string) (bool, error)
	Stage(id, name string, r io.Reader) (*StagedFile, error)
	Commit(staged *StagedFile, kind study.LayerKind) (string, error)
	Discard(staged *StagedFile) error
	Open(staged *StagedFile) (afero.File, error)
	LocalPath(staged *StagedFile) (string, func(), error)
	RemoveKind(id string, kind study.LayerKind) error
	ListFiles(id string) ([]study.StoredFile, error)
	OpenFile(id string, kind study.LayerKind, name string) (afero.File, os.FileInfo, error)
}
