package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command. Logging out wipes everything
// the next identity must not inherit: queued intents, the sync cursor, the
// in-memory caches and the stored token.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Engine.Logout(ctx); err != nil {
				return err
			}
			if err := os.Remove(app.Cfg.TokenPath); err != nil && !os.IsNotExist(err) {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
