package appstate

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/filestore"
	"github.com/systragroup/SG-DataDashboard/engine/infra/monitoring"
	"github.com/systragroup/SG-DataDashboard/engine/infra/sqlite"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// BaseDeps are the stores every request handler works with.
type BaseDeps struct {
	Catalog *sqlite.Store
	Studies *sqlite.StudyRepo
	Layers  *sqlite.LayerStore
	Files   *filestore.Store
}

func NewBaseDeps(
	catalog *sqlite.Store,
	studies *sqlite.StudyRepo,
	layers *sqlite.LayerStore,
	files *filestore.Store,
) BaseDeps {
	return BaseDeps{
		Catalog: catalog,
		Studies: studies,
		Layers:  layers,
		Files:   files,
	}
}

type State struct {
	BaseDeps
	Config     *config.Config
	Monitoring *monitoring.Service
}

func NewState(cfg *config.Config, deps BaseDeps, mon *monitoring.Service) (*State, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Studies == nil || deps.Layers == nil || deps.Files == nil {
		return nil, fmt.Errorf("study stores are required")
	}
	return &State{
		BaseDeps:   deps,
		Config:     cfg,
		Monitoring: mon,
	}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
