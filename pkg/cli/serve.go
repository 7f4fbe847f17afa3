package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/bstardust/geomap/internal/artifact"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/locate"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/web"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the map builder web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}

	defaults := config.New()
	flags := cmd.Flags()
	flags.String("addr", defaults.Server.Addr, "Address to listen on")
	flags.String("output-dir", defaults.Render.OutputDir, "Directory for maps when no bucket is configured")
	flags.Bool("open", defaults.Render.OpenBrowser, "Open the UI in the browser once listening")
	a.bind("server.addr", flags.Lookup("addr"))
	a.bind("render.output_dir", flags.Lookup("output-dir"))
	a.bind("render.open_browser", flags.Lookup("open"))

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	// the builder always gets a geocoder since the form offers place mode
	builder, closeGeocoder := a.builder(true)
	defer closeGeocoder()

	sink, disk, err := a.sinks(ctx)
	if err != nil {
		return err
	}

	srv := web.New(builder, sink, disk, locate.New(a.cfg.Locate), a.cfg.Server)

	if a.cfg.Render.OpenBrowser {
		if err := artifact.OpenBrowser("http://" + a.cfg.Server.Addr); err != nil {
			logger.Warn("%v", err)
		}
	}

	err = srv.ListenAndServe(ctx, a.cfg.Server.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
