package server

import (
	"context"
	"fmt"

	"github.com/systragroup/SG-DataDashboard/engine/infra/filestore"
	"github.com/systragroup/SG-DataDashboard/engine/infra/monitoring"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/appstate"
	"github.com/systragroup/SG-DataDashboard/engine/infra/sqlite"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

// SetupDependencies opens the data directory, the catalog and the per-study
// handle cache. The returned cleanup closes them in reverse order.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*appstate.State, func(), error) {
	log := logger.FromContext(ctx)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*appstate.State, func(), error) {
		cleanup()
		return nil, nil, err
	}

	files, err := filestore.NewOS(cfg.Storage.DataDir)
	if err != nil {
		return fail(err)
	}
	catalog, err := sqlite.NewStore(ctx, &sqlite.Config{
		Path:        cfg.Storage.CatalogPath(),
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to open catalog: %w", err))
	}
	cleanups = append(cleanups, func() {
		if err := catalog.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error("Failed to close catalog", "error", err)
		}
	})
	if err := sqlite.ApplyMigrations(ctx, catalog.DB(), sqlite.CatalogMigrations); err != nil {
		return fail(err)
	}
	layers, err := sqlite.NewLayerStore(cfg.Storage.StudyCacheSize, cfg.Storage.BusyTimeout)
	if err != nil {
		return fail(err)
	}
	layers.OnOpen(func(id string) {
		log.Debug("Opened study database", "study", id)
	})
	cleanups = append(cleanups, layers.Close)

	studies := sqlite.NewStudyRepo(catalog.DB())
	mon, err := monitoring.NewMonitoringService(ctx, cfg.Monitoring)
	if err != nil {
		return fail(err)
	}
	if err := mon.RegisterStudyCounter(studies); err != nil {
		return fail(err)
	}
	state, err := appstate.NewState(cfg, appstate.NewBaseDeps(catalog, studies, layers, files), mon)
	if err != nil {
		return fail(err)
	}
	log.Info("Storage ready", "data_dir", files.Root(), "catalog", catalog.Path())
	return state, cleanup, nil
}
