package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetches the prices page once and prints the extracted price",
		RunE:  runCheckCommand,
	}
}

func runCheckCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	price, err := appInstance.CheckPrice(cmd.Context())
	if err != nil {
		return fmt.Errorf("check price: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(price, 'f', -1, 64))
	return err
}
