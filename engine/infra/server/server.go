package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/appstate"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

type Server struct {
	Config *config.Config
	state  *appstate.State
	router *gin.Engine
}

// NewServer builds the gin engine around an initialized application state.
func NewServer(ctx context.Context, cfg *config.Config, state *appstate.State) (*Server, error) {
	if cfg == nil || state == nil {
		return nil, fmt.Errorf("config and state are required")
	}
	s := &Server{Config: cfg, state: state}
	if err := s.buildRouter(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(ctx context.Context) error {
	if s.Config.Runtime.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger.FromContext(ctx)))
	if s.Config.Server.CORSEnabled {
		router.Use(CORSMiddleware())
	}
	router.Use(s.state.Monitoring.GinMiddleware())
	router.Use(appstate.StateMiddleware(s.state))
	if err := RegisterRoutes(router, s.state); err != nil {
		return err
	}
	s.router = router
	return nil
}

func (s *Server) createHTTPServer() *http.Server {
	addr := s.Config.Server.FullAddress()
	logger.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.Config.Server.ReadTimeout,
		ReadTimeout:       s.Config.Server.ReadTimeout,
		WriteTimeout:      s.Config.Server.WriteTimeout,
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Debug("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server shutdown completed successfully")
	return nil
}
