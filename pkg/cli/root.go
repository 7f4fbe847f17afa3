// pkg/cli/root.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the configuration shared by all subcommands. cfg is filled in
// by the root command's PersistentPreRunE once flags are parsed.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Error("Error executing command: %v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := config.New()

	rootCmd := &cobra.Command{
		Use:   "geomap",
		Short: "Plot photos, places and coordinates on interactive maps",
		Long: `A tool that reads GPS coordinates and camera details from image EXIF data
and renders them, together with geocoded places or raw coordinates, as
self-contained Leaflet maps on disk or in S3-compatible storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML, TOML or JSON config file")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	a.bind("log_level", flags.Lookup("log-level"))

	// Add commands
	rootCmd.AddCommand(
		newExtractCommand(a),
		newRenderCommand(a),
		newServeCommand(a),
		newLocateCommand(a),
		newMapsCommand(a),
	)

	return rootCmd
}

// load reads the configuration once the flags of cmd are parsed
func (a *app) load(cmd *cobra.Command) error {
	if err := a.bindFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.SetLevel(cfg.LogLevel)
	a.cfg = cfg
	return nil
}
