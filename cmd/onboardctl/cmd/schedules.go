package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/discord-onboarding/internal/app"
)

func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder and kick pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Sweeper.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func PurgeSchedulesCmd() *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "purge-schedules",
		Short: "Delete inactive kick schedules older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.ScheduleService.Purge(ctx, days(olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d inactive schedules\n", n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&olderThan, "days", 30, "delete schedules deactivated more than this many days ago")
	return cmd
}

func AddOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-orphans",
		Short: "Start tracking guild members that are neither linked nor scheduled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if a.Bot == nil {
					return fmt.Errorf("DISCORD_BOT_TOKEN is required to list guild members")
				}
				result, err := a.ScheduleService.AddOrphaned(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
