package cli

import (
	"github.com/spf13/cobra"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
)

// ServeCmd starts the dashboard web server.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard web server",
		RunE:  handleServeCmd,
	}
	cmd.Flags().String("host", "", "Host to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Bool("cors", false, "Allow cross-origin requests")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics")
	cmd.Flags().Int64("max-upload", 0, "Largest accepted upload in bytes")
	cmd.Flags().Int("default-zoom", 0, "Initial zoom of the maps")
	return cmd
}

func handleServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	state, cleanup, err := server.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	srv, err := server.NewServer(ctx, cfg, state)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
