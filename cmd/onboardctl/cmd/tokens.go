package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/discord-onboarding/internal/app"
)

func CleanupTokensCmd() *cobra.Command {
	var (
		olderThan int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete onboarding tokens older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.TokenService.Purge(ctx, days(olderThan), dryRun)
				if err != nil {
					return err
				}
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "would delete %d tokens older than %d days\n", n, olderThan)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d tokens older than %d days\n", n, olderThan)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&olderThan, "days", 1, "delete tokens created more than this many days ago")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count the tokens that would be deleted")
	return cmd
}
