package uc

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// GetLayer returns the stored record of one layer kind.
type GetLayer struct {
	repo   Repository
	layers LayerStore
	id     string
	kind   study.LayerKind
}

func NewGetLayer(repo Repository, layers LayerStore, id string, kind study.LayerKind) *GetLayer {
	return &GetLayer{repo: repo, layers: layers, id: id, kind: kind}
}

func (uc *GetLayer) Execute(ctx context.Context) (*study.LayerRecord, error) {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return nil, err
	}
	return uc.layers.GetLayer(ctx, s, uc.kind)
}

// ZoneListing groups the zones of a study by state.
type ZoneListing struct {
	Record  *study.LayerRecord `json:"layer"`
	Clean   []study.StoredZone `json:"clean"`
	Unclean []study.StoredZone `json:"unclean"`
}

// ListZones returns the stored zones of a study.
type ListZones struct {
	repo   Repository
	layers LayerStore
	id     string
	filter study.ZoneFilter
}

func NewListZones(repo Repository, layers LayerStore, id string, filter study.ZoneFilter) *ListZones {
	return &ListZones{repo: repo, layers: layers, id: id, filter: filter}
}

func (uc *ListZones) Execute(ctx context.Context) (*ZoneListing, error) {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return nil, err
	}
	rec, err := uc.layers.GetLayer(ctx, s, study.KindZones)
	if err != nil {
		return nil, err
	}
	zones, err := uc.layers.ListZones(ctx, s, uc.filter)
	if err != nil {
		return nil, fmt.Errorf("listing zones: %w", err)
	}
	out := &ZoneListing{Record: rec, Clean: []study.StoredZone{}, Unclean: []study.StoredZone{}}
	for _, z := range zones {
		if z.Clean {
			out.Clean = append(out.Clean, z)
		} else {
			out.Unclean = append(out.Unclean, z)
		}
	}
	return out, nil
}

// ClearLayer drops an imported layer and its raw files.
type ClearLayer struct {
	repo   Repository
	layers LayerStore
	files  FileStore
	id     string
	kind   study.LayerKind
}

func NewClearLayer(repo Repository, layers LayerStore, files FileStore, id string, kind study.LayerKind) *ClearLayer {
	return &ClearLayer{repo: repo, layers: layers, files: files, id: id, kind: kind}
}

func (uc *ClearLayer) Execute(ctx context.Context) error {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return err
	}
	if err := uc.layers.ClearLayer(ctx, s, uc.kind); err != nil {
		return fmt.Errorf("clearing %s: %w", uc.kind, err)
	}
	if err := uc.files.RemoveKind(s.ID, uc.kind); err != nil {
		return fmt.Errorf("removing %s files: %w", uc.kind, err)
	}
	logger.FromContext(ctx).Info("Study layer cleared", "study_id", s.ID, "kind", uc.kind)
	return nil
}

// ListFiles returns the raw files kept for a study.
type ListFiles struct {
	repo  Repository
	files FileStore
	id    string
}

func NewListFiles(repo Repository, files FileStore, id string) *ListFiles {
	return &ListFiles{repo: repo, files: files, id: id}
}

func (uc *ListFiles) Execute(ctx context.Context) ([]study.StoredFile, error) {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return nil, err
	}
	return uc.files.ListFiles(s.ID)
}

// OpenedFile is a kept raw file ready to be streamed.
type OpenedFile struct {
	File afero.File
	Info os.FileInfo
}

// OpenFile opens one kept raw file of a study. The caller closes it.
type OpenFile struct {
	repo  Repository
	files FileStore
	id    string
	kind  study.LayerKind
	name  string
}

func NewOpenFile(repo Repository, files FileStore, id string, kind study.LayerKind, name string) *OpenFile {
	return &OpenFile{repo: repo, files: files, id: id, kind: kind, name: name}
}

func (uc *OpenFile) Execute(ctx context.Context) (*OpenedFile, error) {
	s, err := uc.repo.Get(ctx, uc.id)
	if err != nil {
		return nil, err
	}
	f, info, err := uc.files.OpenFile(s.ID, uc.kind, uc.name)
	if err != nil {
		return nil, err
	}
	return &OpenedFile{File: f, Info: info}, nil
}
