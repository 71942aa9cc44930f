package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command: one full reconciliation cycle.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes and pull remote updates",
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

			if watch {
				if interval <= 0 {
					interval = app.Cfg.SyncInterval
				}
				fmt.Fprintf(cmd.OutOrStdout(), "syncing every %s, ctrl-c to stop\n", interval)
				app.Engine.Kick()
				app.Engine.Run(ctx, interval)
				return nil
			}

			err = app.Engine.SyncNow(ctx)
			printEngineState(cmd, app)
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep syncing on an interval until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "sync interval for --watch (default from config)")
	return cmd
}

// NewStatusCommand creates the status command: engine and outbox state.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync state and queued changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return printStoreState(ctx, cmd, app)
		},
	}
}

func printEngineState(cmd *cobra.Command, app *App) {
	status, lastSynced, errMsg := app.Engine.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status:      %s\n", status)
	if !lastSynced.IsZero() {
		fmt.Fprintf(out, "last synced: %s\n", lastSynced.Format(time.RFC3339))
	}
	if errMsg != "" {
		fmt.Fprintf(out, "error:       %s\n", errMsg)
	}
}

func printStoreState(ctx context.Context, cmd *cobra.Command, app *App) error {
	pending, err := app.Store.Outbox.CountPending(ctx)
	if err != nil {
		return err
	}
	cur, err := app.Store.Cursor.Get(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "queued changes: %d\n", pending)
	if cur == "" {
		fmt.Fprintln(out, "cursor:         none (next sync is a full resync)")
	} else {
		fmt.Fprintf(out, "cursor:         %s\n", cur)
	}
	return nil
}
