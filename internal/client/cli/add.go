package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
)

// NewAddCommand creates the add command with its per-collection subcommands.
// Every add is a tracked write: it lands in the local store immediately and
// queues an intent for the next sync.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a session or bankroll movement",
	}
	cmd.AddCommand(newAddCashCommand(opts))
	cmd.AddCommand(newAddMttCommand(opts))
	cmd.AddCommand(newAddLedgerCommand(opts))
	return cmd
}

func newAddCashCommand(opts *RootOptions) *cobra.Command {
	var (
		start   string
		end     string
		venue   string
		game    string
		sb      int64
		bb      int64
		buyin   int64
		cashout int64
		tips    int64
		notes   string
		tags    []string
	)

	cmd := &cobra.Command{
		Use:   "cash",
		Short: "Record a cash-game session",
		Example: `  feltkeeper add cash --buyin 20000 --sb 100 --bb 200 --cashout 35000
  feltkeeper add cash --buyin 50000 --sb 500 --bb 1000 --venue "Local Club" --tag live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if start == "" {
				start = models.NowISO()
			}
			sess := &models.CashSession{
				StartTs:    start,
				SbCents:    sb,
				BbCents:    bb,
				BuyinCents: buyin,
				Tags:       tags,
			}
			setOptStr(&sess.EndTs, end)
			setOptStr(&sess.Venue, venue)
			setOptStr(&sess.Game, game)
			setOptStr(&sess.Notes, notes)
			if cmd.Flags().Changed("cashout") {
				sess.CashoutCents = &cashout
			}
			if cmd.Flags().Changed("tips") {
				sess.TipsCents = &tips
			}

			if err := app.Tracker.SaveCashSession(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded cash session %s (net %d cents)\n", sess.ID, sess.Net())
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "session start (RFC 3339, default now)")
	cmd.Flags().StringVar(&end, "end", "", "session end (RFC 3339)")
	cmd.Flags().StringVar(&venue, "venue", "", "venue name")
	cmd.Flags().StringVar(&game, "game", "", "game, e.g. NLH")
	cmd.Flags().Int64Var(&sb, "sb", 0, "small blind in cents")
	cmd.Flags().Int64Var(&bb, "bb", 0, "big blind in cents")
	cmd.Flags().Int64Var(&buyin, "buyin", 0, "total buy-in in cents")
	cmd.Flags().Int64Var(&cashout, "cashout", 0, "cash-out in cents")
	cmd.Flags().Int64Var(&tips, "tips", 0, "tips in cents")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("buyin")
	return cmd
}

func newAddMttCommand(opts *RootOptions) *cobra.Command {
	var (
		start     string
		venue     string
		game      string
		buyin     int64
		fee       int64
		reentries int64
		cash      int64
		bounties  int64
		position  int64
		field     int64
		notes     string
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "mtt",
		Short: "Record a tournament result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if start == "" {
				start = models.NowISO()
			}
			sess := &models.TournamentSession{
				StartTs:    start,
				BuyinCents: buyin,
				Reentries:  reentries,
				Tags:       tags,
			}
			setOptStr(&sess.Venue, venue)
			setOptStr(&sess.Game, game)
			setOptStr(&sess.Notes, notes)
			if cmd.Flags().Changed("fee") {
				sess.FeeCents = &fee
			}
			if cmd.Flags().Changed("cash") {
				sess.CashCents = &cash
			}
			if cmd.Flags().Changed("bounties") {
				sess.BountiesCents = &bounties
			}
			if cmd.Flags().Changed("position") {
				sess.Position = &position
			}
			if cmd.Flags().Changed("field") {
				sess.FieldSize = &field
			}

			if err := app.Tracker.SaveTournamentSession(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded tournament %s (net %d cents)\n", sess.ID, sess.Net())
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start time (RFC 3339, default now)")
	cmd.Flags().StringVar(&venue, "venue", "", "venue name")
	cmd.Flags().StringVar(&game, "game", "", "game, e.g. NLH")
	cmd.Flags().Int64Var(&buyin, "buyin", 0, "buy-in in cents")
	cmd.Flags().Int64Var(&fee, "fee", 0, "entry fee in cents")
	cmd.Flags().Int64Var(&reentries, "reentries", 0, "number of re-entries")
	cmd.Flags().Int64Var(&cash, "cash", 0, "winnings in cents")
	cmd.Flags().Int64Var(&bounties, "bounties", 0, "bounty winnings in cents")
	cmd.Flags().Int64Var(&position, "position", 0, "finishing position")
	cmd.Flags().Int64Var(&field, "field", 0, "field size")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("buyin")
	return cmd
}

func newAddLedgerCommand(opts *RootOptions) *cobra.Command {
	var (
		kind     string
		amount   int64
		currency string
		occurred string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record a bankroll movement",
		Example: `  feltkeeper add ledger --type deposit --amount 100000
  feltkeeper add ledger --type expense --amount -2500 --notes "travel"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			switch models.LedgerType(kind) {
			case models.LedgerDeposit, models.LedgerWithdrawal, models.LedgerTransfer,
				models.LedgerBonus, models.LedgerExpense:
			default:
				return fmt.Errorf("unknown ledger type %q", kind)
			}

			if occurred == "" {
				occurred = models.NowISO()
			}
			entry := &models.LedgerEntry{
				Type:        models.LedgerType(kind),
				AmountCents: amount,
				Currency:    currency,
				OccurredAt:  occurred,
			}
			setOptStr(&entry.Notes, notes)

			if err := app.Tracker.SaveLedgerEntry(ctx, entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s of %d cents (%s)\n", kind, amount, entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "", "deposit|withdrawal|transfer|bonus|expense")
	cmd.Flags().Int64Var(&amount, "amount", 0, "signed amount in cents")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVar(&occurred, "occurred", "", "when it happened (RFC 3339, default now)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func setOptStr(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}
