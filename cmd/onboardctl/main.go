package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/templui/discord-onboarding/cmd/onboardctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Maintenance commands for the Discord onboarding bridge",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.CleanupTokensCmd())
	rootCmd.AddCommand(cmd.SweepCmd())
	rootCmd.AddCommand(cmd.PurgeSchedulesCmd())
	rootCmd.AddCommand(cmd.AddOrphansCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
