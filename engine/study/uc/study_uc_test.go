package uc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/systragroup/SG-DataDashboard/engine/study"
)

func TestCreateStudy(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create an invisible study with derived paths", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		repo.On("Get", ctx, "lyon-centre").Return(nil, study.ErrStudyNotFound)
		files.On("Exists", "lyon-centre").Return(false, nil)
		files.On("Create", "lyon-centre").Return("/data/lyon-centre", nil)
		layers.On("Init", ctx, mock.AnythingOfType("*study.Study")).Return(nil)
		repo.On("Create", ctx, mock.AnythingOfType("*study.Study")).Return(nil)

		s, err := NewCreateStudy(repo, layers, files, &study.CreateInput{
			Name: " Lyon Centre ", Description: "hyper-centre", Lat: 45.76, Lon: 4.83,
		}).Execute(ctx)

		require.NoError(t, err)
		assert.Equal(t, "lyon-centre", s.ID)
		assert.Equal(t, "Lyon Centre", s.Name)
		assert.False(t, s.Visible)
		assert.Equal(t, "/data/lyon-centre", s.DirPath)
		assert.Equal(t, "/data/lyon-centre/lyon-centre.db", s.DBPath)
		assert.False(t, s.CreatedAt.IsZero())
		repo.AssertExpectations(t)
		layers.AssertExpectations(t)
		files.AssertExpectations(t)
	})

	t.Run("Should reject a name whose id is taken", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		repo.On("Get", ctx, "lyon").Return(&study.Study{ID: "lyon"}, nil)

		_, err := NewCreateStudy(repo, layers, files, &study.CreateInput{Name: "LYON"}).Execute(ctx)

		assert.ErrorIs(t, err, study.ErrStudyExists)
		files.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("Should reject an orphan directory with the same id", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		repo.On("Get", ctx, "lyon").Return(nil, study.ErrStudyNotFound)
		files.On("Exists", "lyon").Return(true, nil)

		_, err := NewCreateStudy(repo, layers, files, &study.CreateInput{Name: "Lyon"}).Execute(ctx)

		assert.ErrorIs(t, err, study.ErrStudyExists)
	})

	t.Run("Should validate before touching storage", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}

		_, err := NewCreateStudy(repo, layers, files, &study.CreateInput{Name: "x", Lat: 120}).Execute(ctx)

		assert.ErrorIs(t, err, study.ErrInvalidStudy)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("Should remove the directory when the insert fails", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		repo.On("Get", ctx, "nantes").Return(nil, study.ErrStudyNotFound)
		files.On("Exists", "nantes").Return(false, nil)
		files.On("Create", "nantes").Return("/data/nantes", nil)
		layers.On("Init", ctx, mock.Anything).Return(nil)
		repo.On("Create", ctx, mock.Anything).Return(errors.New("disk full"))
		layers.On("Release", "nantes").Return()
		files.On("Remove", "nantes").Return(nil)

		_, err := NewCreateStudy(repo, layers, files, &study.CreateInput{Name: "Nantes"}).Execute(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		files.AssertCalled(t, "Remove", "nantes")
		layers.AssertCalled(t, "Release", "nantes")
	})
}

func TestUpdateStudy(t *testing.T) {
	ctx := context.Background()

	t.Run("Should keep the id when the name changes", func(t *testing.T) {
		repo := &MockRepository{}
		existing := &study.Study{ID: "lille", Name: "Lille", DirPath: "/data/lille"}
		repo.On("Get", ctx, "lille").Return(existing, nil)
		repo.On("Update", ctx, existing).Return(nil)

		s, err := NewUpdateStudy(repo, "lille", &study.UpdateInput{
			Name: "Lille Métropole", Description: "MEL", Lat: 50.63, Lon: 3.06,
		}).Execute(ctx)

		require.NoError(t, err)
		assert.Equal(t, "lille", s.ID)
		assert.Equal(t, "Lille Métropole", s.Name)
		assert.Equal(t, "/data/lille", s.DirPath)
		assert.Equal(t, 3.06, s.Lon)
	})

	t.Run("Should return not found for unknown ids", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("Get", ctx, "nope").Return(nil, study.ErrStudyNotFound)

		_, err := NewUpdateStudy(repo, "nope", &study.UpdateInput{Name: "Nope"}).Execute(ctx)

		assert.ErrorIs(t, err, study.ErrStudyNotFound)
	})
}

func TestToggleVisibility(t *testing.T) {
	ctx := context.Background()

	t.Run("Should flip and return the new state", func(t *testing.T) {
		repo := &MockRepository{}
		repo.On("Get", ctx, "metz").Return(&study.Study{ID: "metz", Visible: false}, nil)
		repo.On("SetVisible", ctx, "metz", true).Return(nil)

		visible, err := NewToggleVisibility(repo, "metz").Execute(ctx)

		require.NoError(t, err)
		assert.True(t, visible)
		repo.AssertExpectations(t)
	})
}

func TestDeleteStudy(t *testing.T) {
	ctx := context.Background()

	t.Run("Should release the database before removing files", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		var order []string
		repo.On("Get", ctx, "brest").Return(&study.Study{ID: "brest"}, nil)
		layers.On("Release", "brest").Run(func(mock.Arguments) { order = append(order, "release") }).Return()
		repo.On("Delete", ctx, "brest").Run(func(mock.Arguments) { order = append(order, "delete") }).Return(nil)
		files.On("Remove", "brest").Run(func(mock.Arguments) { order = append(order, "remove") }).Return(nil)

		err := NewDeleteStudy(repo, layers, files, "brest").Execute(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"release", "delete", "remove"}, order)
	})

	t.Run("Should return not found for unknown ids", func(t *testing.T) {
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		repo.On("Get", ctx, "nope").Return(nil, study.ErrStudyNotFound)

		err := NewDeleteStudy(repo, layers, files, "nope").Execute(ctx)

		assert.ErrorIs(t, err, study.ErrStudyNotFound)
		files.AssertNotCalled(t, "Remove", mock.Anything)
	})
}

func TestListStudies(t *testing.T) {
	t.Run("Should pass the filter to the repository", func(t *testing.T) {
		ctx := context.Background()
		repo := &MockRepository{}
		repo.On("List", ctx, study.ListFilter{VisibleOnly: true}).Return([]*study.Study{{ID: "a"}}, nil)

		out, err := NewListStudies(repo, study.ListFilter{VisibleOnly: true}).Execute(ctx)

		require.NoError(t, err)
		assert.Len(t, out, 1)
	})
}

func TestListZones(t *testing.T) {
	t.Run("Should split zones by state", func(t *testing.T) {
		ctx := context.Background()
		repo, layers := &MockRepository{}, &MockLayerStore{}
		s := &study.Study{ID: "caen"}
		repo.On("Get", ctx, "caen").Return(s, nil)
		layers.On("GetLayer", ctx, s, study.KindZones).Return(&study.LayerRecord{Kind: study.KindZones}, nil)
		layers.On("ListZones", ctx, s, study.ZoneFilter{}).Return([]study.StoredZone{
			{ZoneID: "1", Clean: true}, {ZoneID: "", Clean: false, Reason: "missing_id"}, {ZoneID: "2", Clean: true},
		}, nil)

		out, err := NewListZones(repo, layers, "caen", study.ZoneFilter{}).Execute(ctx)

		require.NoError(t, err)
		assert.Len(t, out.Clean, 2)
		assert.Len(t, out.Unclean, 1)
	})
}

func TestClearLayer(t *testing.T) {
	t.Run("Should drop the layer and its files", func(t *testing.T) {
		ctx := context.Background()
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		s := &study.Study{ID: "caen"}
		repo.On("Get", ctx, "caen").Return(s, nil)
		layers.On("ClearLayer", ctx, s, study.KindOutline).Return(nil)
		files.On("RemoveKind", "caen", study.KindOutline).Return(nil)

		err := NewClearLayer(repo, layers, files, "caen", study.KindOutline).Execute(ctx)

		require.NoError(t, err)
		layers.AssertExpectations(t)
		files.AssertExpectations(t)
	})
	t.Run("Should keep the files when the layer cannot be cleared", func(t *testing.T) {
		ctx := context.Background()
		repo, layers, files := &MockRepository{}, &MockLayerStore{}, &MockFileStore{}
		s := &study.Study{ID: "caen"}
		repo.On("Get", ctx, "caen").Return(s, nil)
		layers.On("ClearLayer", ctx, s, study.KindZones).Return(errors.New("locked"))

		err := NewClearLayer(repo, layers, files, "caen", study.KindZones).Execute(ctx)

		require.Error(t, err)
		files.AssertNotCalled(t, "RemoveKind", mock.Anything, mock.Anything)
	})
}

func TestOpenFile(t *testing.T) {
	t.Run("Should not touch files of an unknown study", func(t *testing.T) {
		ctx := context.Background()
		repo, files := &MockRepository{}, &MockFileStore{}
		repo.On("Get", ctx, "nope").Return(nil, study.ErrStudyNotFound)

		_, err := NewOpenFile(repo, files, "nope", study.KindZones, "zones.zip").Execute(ctx)

		assert.ErrorIs(t, err, study.ErrStudyNotFound)
		files.AssertNotCalled(t, "OpenFile", mock.Anything, mock.Anything, mock.Anything)
	})
	t.Run("Should pass through a missing file", func(t *testing.T) {
		ctx := context.Background()
		repo, files := &MockRepository{}, &MockFileStore{}
		repo.On("Get", ctx, "caen").Return(&study.Study{ID: "caen"}, nil)
		missing := errors.New("file not found")
		files.On("OpenFile", "caen", study.KindZones, "zones.zip").Return(nil, nil, missing)

		_, err := NewOpenFile(repo, files, "caen", study.KindZones, "zones.zip").Execute(ctx)

		assert.ErrorIs(t, err, missing)
	})
}
