package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/artifact"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/geo"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/bstardust/geomap/internal/mapbuild"
	"github.com/spf13/cobra"
)

func newRenderCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [flags] coords|places|images <args>...",
		Short: "Build a map and publish it to disk or S3",
		Long: `Build a map in one of three modes:

  coords  lat,lon pairs, e.g. "40.4406,-79.9959"
  places  place names resolved through Nominatim, e.g. "Paris, France"
  images  image files, folders, zip archives or globs`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := mapbuild.ParseMode(args[0])
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), a, mode, args[1:], cmd.OutOrStdout())
		},
	}

	defaults := config.New()
	flags := cmd.Flags()
	flags.String("output-dir", defaults.Render.OutputDir, "Directory for maps when no bucket is configured")
	flags.String("tiles-dir", defaults.Render.TilesDir, "Directory of offline map tiles")
	flags.Bool("open", defaults.Render.OpenBrowser, "Open the published map in the browser")
	flags.Int("preview-size", defaults.Extract.PreviewSize, "Edge of the photo previews in popups (0 disables)")
	flags.Bool("cluster", defaults.Render.Cluster, "Cluster nearby markers")
	flags.Bool("heatmap", defaults.Render.Heatmap, "Add a heat map layer")
	flags.Bool("measure", defaults.Render.Measure, "Add the measuring tool")
	flags.Bool("fullscreen", defaults.Render.Fullscreen, "Add the fullscreen control")
	a.bind("render.output_dir", flags.Lookup("output-dir"))
	a.bind("render.tiles_dir", flags.Lookup("tiles-dir"))
	a.bind("render.open_browser", flags.Lookup("open"))
	a.bind("extract.preview_size", flags.Lookup("preview-size"))
	for _, name := range []string{"cluster", "heatmap", "measure", "fullscreen"} {
		a.bind("render."+name, flags.Lookup(name))
	}

	return cmd
}

func runRender(ctx context.Context, a *app, mode mapbuild.Mode, args []string, out io.Writer) error {
	builder, closeGeocoder := a.builder(mode == mapbuild.ModePlaces)
	defer closeGeocoder()

	res, err := build(ctx, builder, mode, args)
	var noGPS *mapbuild.NoGPSError
	if errors.As(err, &noGPS) {
		return fmt.Errorf("none of the images contain GPS data: %s", strings.Join(noGPS.Files, ", "))
	}
	if err != nil {
		return err
	}

	for _, name := range res.Unlocated {
		logger.Warn("No GPS data in %s", name)
	}
	if res.Failures != nil {
		logger.Warn("Some inputs were skipped: %v", res.Failures)
	}

	var buf bytes.Buffer
	if err := res.Render(&buf); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}

	sink, _, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	art, err := sink.Publish(ctx, artifact.NewName(time.Now()), buf.Bytes())
	if err != nil {
		return err
	}

	logger.Info("Plotted %d location(s), %.1f km total, %.1f km average",
		len(res.Points), res.Distances.TotalKm, res.Distances.AverageKm)
	if _, err := fmt.Fprintln(out, art.Location); err != nil {
		return err
	}

	if a.cfg.Render.OpenBrowser {
		if err := artifact.OpenBrowser(art.Location); err != nil {
			logger.Warn("%v", err)
		}
	}
	return nil
}

func build(ctx context.Context, b *mapbuild.Builder, mode mapbuild.Mode, args []string) (*mapbuild.Result, error) {
	switch mode {
	case mapbuild.ModeCoords:
		points := make([]geo.Point, 0, len(args))
		for _, arg := range args {
			p, err := mapbuild.ParsePair(arg)
			if err != nil {
				return nil, err
			}
			points = append(points, p)
		}
		return b.FromCoordinates(ctx, points)

	case mapbuild.ModePlaces:
		return b.FromPlaces(ctx, args)

	default:
		set, err := photoset.New(ctx, args)
		if err != nil {
			return nil, err
		}
		defer set.Close()
		return b.FromImages(ctx, set)
	}
}
