package uc

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/systragroup/SG-DataDashboard/engine/geo"
	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// MockRepository implements Repository for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *study.Study) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*study.Study, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*study.Study)
	return s, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter study.ListFilter) ([]*study.Study, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]*study.Study)
	return out, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, s *study.Study) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) SetVisible(ctx context.Context, id string, visible bool) error {
	return m.Called(ctx, id, visible).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockLayerStore implements LayerStore for testing
type MockLayerStore struct {
	mock.Mock
}

func (m *MockLayerStore) Init(ctx context.Context, s *study.Study) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockLayerStore) SaveOutline(ctx context.Context, s *study.Study, rec *study.LayerRecord) error {
	return m.Called(ctx, s, rec).Error(0)
}

func (m *MockLayerStore) SaveZones(
	ctx context.Context,
	s *study.Study,
	rec *study.LayerRecord,
	partition *geo.ZonePartition,
) error {
	return m.Called(ctx, s, rec, partition).Error(0)
}

func (m *MockLayerStore) GetLayer(ctx context.Context, s *study.Study, kind study.LayerKind) (*study.LayerRecord, error) {
	args := m.Called(ctx, s, kind)
	rec, _ := args.Get(0).(*study.LayerRecord)
	return rec, args.Error(1)
}

func (m *MockLayerStore) ListZones(ctx context.Context, s *study.Study, filter study.ZoneFilter) ([]study.StoredZone, error) {
	args := m.Called(ctx, s, filter)
	out, _ := args.Get(0).([]study.StoredZone)
	return out, args.Error(1)
}

func (m *MockLayerStore) ClearLayer(ctx context.Context, s *study.Study, kind study.LayerKind) error {
	return m.Called(ctx, s, kind).Error(0)
}

func (m *MockLayerStore) Release(id string) {
	m.Called(id)
}

// MockFileStore implements FileStore for testing
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Create(id string) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Remove(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockFileStore) Exists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileStore) Stage(id, name string, r io.Reader) (*StagedFile, error) {
	args := m.Called(id, name, r)
	staged, _ := args.Get(0).(*StagedFile)
	return staged, args.Error(1)
}

func (m *MockFileStore) Commit(staged *StagedFile, kind study.LayerKind) (string, error) {
	args := m.Called(staged, kind)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Discard(staged *StagedFile) error {
	return m.Called(staged).Error(0)
}

func (m *MockFileStore) Open(staged *StagedFile) (afero.File, error) {
	args := m.Called(staged)
	f, _ := args.Get(0).(afero.File)
	return f, args.Error(1)
}

func (m *MockFileStore) LocalPath(staged *StagedFile) (string, func(), error) {
	args := m.Called(staged)
	return args.String(0), func() {}, args.Error(1)
}

func (m *MockFileStore) RemoveKind(id string, kind study.LayerKind) error {
	return m.Called(id, kind).Error(0)
}

func (m *MockFileStore) ListFiles(id string) ([]study.StoredFile, error) {
	args := m.Called(id)
	out, _ := args.Get(0).([]study.StoredFile)
	return out, args.Error(1)
}

func (m *MockFileStore) OpenFile(id string, kind study.LayerKind, name string) (afero.File, os.FileInfo, error) {
	args := m.Called(id, kind, name)
	f, _ := args.Get(0).(afero.File)
	info, _ := args.Get(1).(os.FileInfo)
	return f, info, args.Error(2)
}
