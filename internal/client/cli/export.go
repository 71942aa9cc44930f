package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feltkeeper/feltkeeper/internal/client/services"
)

// NewExportCommand creates the export command: sessions as CSV.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "export {cash|mtt}",
		Short:     "Export sessions as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"cash", "mtt"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Engine.Hydrate(ctx); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch args[0] {
			case "cash":
				err = services.ExportCashSessionsCSV(w, app.Proj.CashSessions())
			case "mtt":
				err = services.ExportTournamentSessionsCSV(w, app.Proj.TournamentSessions())
			default:
				return fmt.Errorf("unknown collection %q", args[0])
			}
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
