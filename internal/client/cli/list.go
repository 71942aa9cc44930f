package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// NewListCommand creates the list command. Reads go through the hydrated
// projections, never straight to SQL.
func NewListCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list {cash|mtt|ledger|policies}",
		Short:     "List recorded entries",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"cash", "mtt", "ledger", "policies"},
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

			out := cmd.OutOrStdout()
			switch args[0] {
			case "cash":
				sessions := app.Proj.CashSessions()
				for _, s := range sessions {
					fmt.Fprintf(out, "%s  %s  %s/%s  net %s%s\n",
						s.ID, shortTs(s.StartTs), cents(s.SbCents), cents(s.BbCents),
						cents(s.Net()), dirtyMark(s.Dirty))
				}
				fmt.Fprintf(out, "%d cash sessions, bankroll %s\n",
					len(sessions), cents(models.Bankroll(sessions, app.Proj.LedgerEntries())))
			case "mtt":
				for _, s := range app.Proj.TournamentSessions() {
					fmt.Fprintf(out, "%s  %s  buyin %s  net %s%s\n",
						s.ID, shortTs(s.StartTs), cents(s.BuyinCents), cents(s.Net()), dirtyMark(s.Dirty))
				}
			case "ledger":
				for _, e := range app.Proj.LedgerEntries() {
					fmt.Fprintf(out, "%s  %s  %-10s  %s %s%s\n",
						e.ID, shortTs(e.OccurredAt), e.Type, cents(e.AmountCents), e.Currency, dirtyMark(e.Dirty))
				}
			case "policies":
				for _, p := range app.Proj.Policies() {
					fmt.Fprintf(out, "%s  %-20s  %s%s\n", p.ID, p.Name, p.Kind, dirtyMark(p.Dirty))
				}
			default:
				return fmt.Errorf("unknown collection %q", args[0])
			}
			return nil
		},
	}
	return cmd
}

func cents(v int64) string {
	return fmt.Sprintf("%.2f", float64(v)/100)
}

func shortTs(iso string) string {
	t, err := models.ParseISO(iso)
	if err != nil {
		return iso
	}
	return t.Format(time.DateTime)
}

// dirtyMark flags entries whose local write has not been confirmed pushed.
func dirtyMark(dirty bool) string {
	if dirty {
		return " *"
	}
	return ""
}
