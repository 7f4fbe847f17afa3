package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bstardust/geomap/internal/artifact"
	"github.com/bstardust/geomap/internal/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func newMapsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maps",
		Short: "Manage published maps",
		Long:  `List or remove maps in the configured bucket, or in the output directory when no bucket is configured.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List published maps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, _, err := a.sinks(cmd.Context())
			if err != nil {
				return err
			}
			return listMaps(cmd.Context(), sink, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>...",
		Short: "Remove published maps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, _, err := a.sinks(cmd.Context())
			if err != nil {
				return err
			}
			return removeMaps(cmd.Context(), sink, args)
		},
	})

	return cmd
}

func listMaps(ctx context.Context, sink artifact.Sink, out io.Writer) error {
	maps, err := sink.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tLOCATION")
	for _, m := range maps {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", m.Name, m.Size, m.Modified.Local().Format("2006-01-02 15:04:05"), m.Location)
	}
	return tw.Flush()
}

// removeMaps removes every name it can and reports the ones that failed
func removeMaps(ctx context.Context, sink artifact.Sink, names []string) error {
	var errs *multierror.Error
	for _, name := range names {
		if err := sink.Remove(ctx, name); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		logger.Info("Removed %s", name)
	}
	return errs.ErrorOrNil()
}
