package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
	"github.com/systragroup/SG-DataDashboard/pkg/version"
)

type logCloserKey struct{}

// RootCmd builds the sgdash command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sgdash",
		Short:        "Geographic study dashboard",
		Version:      version.Get().String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return closeLogOutput(cmd.Context())
		},
	}
	addGlobalFlags(root.PersistentFlags())
	root.AddCommand(ServeCmd(), StudiesCmd())
	return root
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "sgdash.yaml", "Path to the YAML configuration file")
	flags.String("env-file", ".env", "Path to a dotenv file loaded before configuration")
	flags.String("data-dir", "", "Directory holding the catalog and study folders")
	flags.String("environment", "", "Runtime environment (development, staging, production)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("log-file", "", "Also write logs to this rotated file")
}

// mergedFlags returns the flags visible to cmd, persistent and inherited
// ones included, even before cobra has parsed the command line.
func mergedFlags(cmd *cobra.Command) *pflag.FlagSet {
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.PersistentFlags())
	flags.AddFlagSet(cmd.InheritedFlags())
	return flags
}

// SetupGlobalConfig loads the dotenv file and the layered configuration,
// initializes logging and stores both in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := mergedFlags(cmd)
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := flags.GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := loadConfig(ctx, cmd, configFile)
	if err != nil {
		return err
	}
	logSource, err := flags.GetBool("log-source")
	if err != nil {
		return fmt.Errorf("failed to get log-source flag: %w", err)
	}
	closer, err := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, logSource, cfg.Runtime.LogFile)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	ctx = context.WithValue(ctx, logCloserKey{}, closer)
	cmd.SetContext(ctx)
	logger.Debug("Configuration loaded", "config_file", configFile, "data_dir", cfg.Storage.DataDir)
	return nil
}

// loadConfig merges defaults, the YAML file, the environment and the flags
// the user set explicitly, in increasing precedence.
func loadConfig(ctx context.Context, cmd *cobra.Command, configFile string) (*config.Config, error) {
	var sources []config.Source
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	cliFlags := make(map[string]any)
	extractCLIFlags(cmd, cliFlags)
	if len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}
	cfg, err := config.NewService().Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func closeLogOutput(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if closer, ok := ctx.Value(logCloserKey{}).(io.Closer); ok && closer != nil {
		return closer.Close()
	}
	return nil
}
