package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bstardust/geomap/internal/locate"
	"github.com/spf13/cobra"
)

func newLocateCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show the location maps use as home",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd.Context(), locate.New(a.cfg.Locate), asJSON, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&asJSON, "json", false, "Print the location as JSON")
	flags.Bool("geoclue", false, "Ask GeoClue over D-Bus before the IP services")
	a.bind("locate.geoclue", flags.Lookup("geoclue"))

	return cmd
}

type userLocator interface {
	Locate(ctx context.Context) (*locate.Location, error)
}

func runLocate(ctx context.Context, l userLocator, asJSON bool, out io.Writer) error {
	loc, err := l.Locate(ctx)
	if err != nil {
		return fmt.Errorf("could not detect location: %w", err)
	}

	if asJSON {
		return json.NewEncoder(out).Encode(loc)
	}
	_, err = fmt.Fprintf(out, "%s\n%.6f, %.6f (via %s)\n", loc.Label, loc.Lat, loc.Lon, loc.Source)
	return err
}
