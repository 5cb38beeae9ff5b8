package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Polls the prices page and notifies webhooks on every change",
		Long: `Runs the poll loop until interrupted. Each cycle fetches the prices page,
extracts the 24K sell price, and when it differs from the last observed value
posts a payload to every configured webhook. Failed cycles are logged and the
loop keeps going.`,
		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := appInstance.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run watcher: %w", err)
	}
	appInstance.Logger().Info("watcher stopped")
	return nil
}
