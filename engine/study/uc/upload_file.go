package uc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/systragroup/SG-DataDashboard/engine/geo"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// UploadOptions tune how an uploaded file is read.
type UploadOptions struct {
	Layer     string `form:"layer"`
	IDField   string `form:"id_field"`
	NameField string `form:"name_field"`
	EPSG      int    `form:"epsg"`
}

// UploadInput is one uploaded file for a study.
type UploadInput struct {
	StudyID  string
	Kind     study.LayerKind
	FileName string
	Content  io.Reader
	Options  UploadOptions
}

// UploadResult summarises an import.
type UploadResult struct {
	Kind       study.LayerKind `json:"kind"`
	FileName   string          `json:"file_name"`
	Format     geo.Format      `json:"format"`
	SourceEPSG int             `json:"source_epsg"`
	Features   int             `json:"features"`
	Clean      int             `json:"clean"`
	Unclean    int             `json:"unclean"`
	Fields     []string        `json:"fields"`
	Bounds     *study.Bounds   `json:"bounds,omitempty"`
}

// FieldsError reports the columns a layer offers when the requested ones are
// missing, so a client can retry.
type FieldsError struct {
	Fields []string
	Err    error
}

func (e *FieldsError) Error() string {
	return fmt.Sprintf("%v (available: %s)", e.Err, strings.Join(e.Fields, ", "))
}

func (e *FieldsError) Unwrap() error { return e.Err }

// UploadStudyFile stores an outline or zones file for a study.
type UploadStudyFile struct {
	repo   Repository
	layers LayerStore
	files  FileStore
	input  *UploadInput
}

func NewUploadStudyFile(repo Repository, layers LayerStore, files FileStore, input *UploadInput) *UploadStudyFile {
	return &UploadStudyFile{repo: repo, layers: layers, files: files, input: input}
}

// Execute stages the upload, reads it, stores the layer and keeps the raw
// file. The staged copy is discarded on any failure.
func (uc *UploadStudyFile) Execute(ctx context.Context) (*UploadResult, error) {
	log := logger.FromContext(ctx)
	in := uc.input
	if in.Kind == study.KindZones && (strings.TrimSpace(in.Options.IDField) == "" ||
		strings.TrimSpace(in.Options.NameField) == "") {
		return nil, study.ErrZoneFieldsRequired
	}
	s, err := uc.repo.Get(ctx, in.StudyID)
	if err != nil {
		return nil, err
	}
	staged, err := uc.files.Stage(s.ID, in.FileName, in.Content)
	if err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	result, err := uc.importStaged(ctx, s, staged)
	if err != nil {
		if dErr := uc.files.Discard(staged); dErr != nil {
			log.Warn("Failed to discard staged upload", "study_id", s.ID, "path", staged.Path, "error", dErr)
		}
		return nil, err
	}
	if _, err := uc.files.Commit(staged, in.Kind); err != nil {
		return nil, fmt.Errorf("keeping upload: %w", err)
	}
	log.Info("Study file imported",
		"study_id", s.ID,
		"kind", result.Kind,
		"format", result.Format,
		"features", result.Features,
		"source_epsg", result.SourceEPSG,
	)
	return result, nil
}

func (uc *UploadStudyFile) importStaged(
	ctx context.Context,
	s *study.Study,
	staged *StagedFile,
) (*UploadResult, error) {
	in := uc.input
	format, err := geo.DetectFormat(staged.Head, staged.Name)
	if err != nil {
		return nil, err
	}
	layer, err := uc.readLayer(ctx, staged, format)
	if err != nil {
		return nil, err
	}
	if len(layer.Features) == 0 {
		return nil, geo.ErrEmptyLayer
	}
	rec := &study.LayerRecord{
		Kind:         in.Kind,
		FileName:     staged.Name,
		Format:       string(format),
		SourceEPSG:   layer.SourceCRS,
		FeatureCount: len(layer.Features),
		Bounds:       layerBounds(layer),
		ImportedAt:   time.Now().UTC(),
	}
	result := &UploadResult{
		Kind:       in.Kind,
		FileName:   staged.Name,
		Format:     format,
		SourceEPSG: layer.SourceCRS,
		Features:   len(layer.Features),
		Fields:     layer.Fields,
		Bounds:     rec.Bounds,
	}
	switch in.Kind {
	case study.KindOutline:
		if rec.GeoJSON, err = layer.FeatureCollection(); err != nil {
			return nil, err
		}
		if err := uc.layers.SaveOutline(ctx, s, rec); err != nil {
			return nil, fmt.Errorf("saving outline: %w", err)
		}
	case study.KindZones:
		partition, err := geo.NormalizeZones(layer, strings.TrimSpace(in.Options.IDField),
			strings.TrimSpace(in.Options.NameField))
		if err != nil {
			if errors.Is(err, geo.ErrFieldNotFound) {
				return nil, &FieldsError{Fields: layer.Fields, Err: geo.ErrFieldNotFound}
			}
			return nil, err
		}
		rec.IDField, rec.NameField = partition.IDField, partition.NameField
		if err := uc.layers.SaveZones(ctx, s, rec, partition); err != nil {
			return nil, fmt.Errorf("saving zones: %w", err)
		}
		result.Clean, result.Unclean = len(partition.Clean), len(partition.Unclean)
	default:
		return nil, fmt.Errorf("%w: %q", study.ErrInvalidKind, in.Kind)
	}
	return result, nil
}

func (uc *UploadStudyFile) readLayer(ctx context.Context, staged *StagedFile, format geo.Format) (*geo.Layer, error) {
	opts := geo.ReadOptions{EPSG: uc.input.Options.EPSG, Layer: strings.TrimSpace(uc.input.Options.Layer)}
	switch format {
	case geo.FormatShapefile:
		f, err := uc.files.Open(staged)
		if err != nil {
			return nil, fmt.Errorf("opening staged upload: %w", err)
		}
		defer f.Close()
		set, err := geo.OpenShapefileArchive(f, staged.Size)
		if err != nil {
			return nil, err
		}
		return geo.ReadShapefile(set, opts)
	case geo.FormatGeoPackage:
		path, cleanup, err := uc.files.LocalPath(staged)
		if err != nil {
			return nil, fmt.Errorf("locating staged upload: %w", err)
		}
		defer cleanup()
		return geo.ReadGeoPackage(ctx, path, opts)
	}
	return nil, geo.ErrUnsupportedFormat
}

func layerBounds(layer *geo.Layer) *study.Bounds {
	b := layer.Bounds()
	if b == nil {
		return nil
	}
	return &study.Bounds{MinLon: b.Min(0), MinLat: b.Min(1), MaxLon: b.Max(0), MaxLat: b.Max(1)}
}
