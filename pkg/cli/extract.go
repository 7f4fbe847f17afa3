package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/bstardust/geomap/internal/adapter/photoset"
	"github.com/bstardust/geomap/internal/batch"
	"github.com/bstardust/geomap/internal/config"
	"github.com/bstardust/geomap/internal/metadata"
	"github.com/bstardust/geomap/internal/progress"
	"github.com/bstardust/geomap/internal/worker"
	"github.com/spf13/cobra"
)

func newExtractCommand(a *app) *cobra.Command {
	var format string
	var previewSize int
	defaults := config.New()

	cmd := &cobra.Command{
		Use:   "extract [flags] <image|folder|zip|glob>...",
		Short: "Print the GPS position and camera details of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown format %q, expected json or text", format)
			}
			// previews are off unless asked for here, whatever the config says
			a.cfg.Extract.PreviewSize = previewSize
			return runExtract(cmd.Context(), a, args, format, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", "json", "Output format (json, text)")
	flags.Int("concurrency", defaults.Extract.Concurrency, "Number of images processed in parallel")
	flags.IntVar(&previewSize, "preview-size", 0, "Embed a base64 JPEG preview of at most this many pixels (0 disables)")
	flags.Bool("reverse", defaults.Extract.Reverse, "Look up the address of every located image")
	a.bind("extract.concurrency", flags.Lookup("concurrency"))
	a.bind("extract.reverse", flags.Lookup("reverse"))

	return cmd
}

func runExtract(ctx context.Context, a *app, paths []string, format string, out io.Writer) error {
	set, err := photoset.New(ctx, paths)
	if err != nil {
		return err
	}
	defer set.Close()

	var reverser batch.Reverser
	if a.cfg.Extract.Reverse {
		client, closeFn := a.openGeocoder()
		defer closeFn()
		reverser = client
	}

	runner := batch.New(ctx, set, metadata.NewExtractor(a.cfg.Extract.PreviewSize),
		worker.NewPool(a.cfg.Extract.Concurrency), progress.New(), reverser)
	records, err := runner.Run()
	if err != nil {
		return err
	}

	if format == "text" {
		return writeText(out, records)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []*metadata.Record{}
	}
	return enc.Encode(records)
}

func writeText(out io.Writer, records []*metadata.Record) error {
	for i, rec := range records {
		if i > 0 {
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
		}

		fields := rec.ToMap()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			if k != "filename" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		if _, err := fmt.Fprintln(out, rec.Filename); err != nil {
			return err
		}
		if !rec.HasCoordinate() {
			if _, err := fmt.Fprintln(out, "  no GPS data"); err != nil {
				return err
			}
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(out, "  %-13s %s\n", k+":", fields[k]); err != nil {
				return err
			}
		}
	}
	return nil
}
