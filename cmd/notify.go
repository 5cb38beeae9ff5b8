package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Sends one test notification to every configured webhook",
		Long: `Builds the same payloads the watcher would send for a change from
--previous to --price and posts them to every configured webhook. Omit
--previous to simulate the first observation.`,
		RunE: runNotifyCommand,
	}
	cmd.Flags().Float64("price", 0, "current price to announce")
	cmd.Flags().Float64("previous", 0, "previous price (omit for a first observation)")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func runNotifyCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	current, err := cmd.Flags().GetFloat64("price")
	if err != nil {
		return fmt.Errorf("read --price: %w", err)
	}
	var previous *float64
	if cmd.Flags().Changed("previous") {
		p, err := cmd.Flags().GetFloat64("previous")
		if err != nil {
			return fmt.Errorf("read --previous: %w", err)
		}
		previous = &p
	}

	if current < 0 {
		return fmt.Errorf("%w: --price must be >= 0, got %v", goldprice.ErrConfig, current)
	}
	if previous != nil && *previous < 0 {
		return fmt.Errorf("%w: --previous must be >= 0, got %v", goldprice.ErrConfig, *previous)
	}

	report := appInstance.Notify(cmd.Context(), current, previous)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "delivered=%d failed=%d\n", report.Delivered, report.Failed()); err != nil {
		return err
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d webhooks failed",
			goldprice.ErrDelivery, report.Failed(), report.Delivered+report.Failed())
	}
	return nil
}
