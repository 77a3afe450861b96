package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// probePostalCode is looked up once to read the provider's quota headers.
const probePostalCode = "10115"

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the primary geocoder's remaining request quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("limits"); err != nil {
			return err
		}

		ors := newORSProvider(cfg)
		if _, err := ors.Postal(cmd.Context(), probePostalCode); err != nil {
			zap.L().Warn("limits: probe request failed", zap.Error(err))
		}

		rl, ok := ors.RateLimit()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "no rate limit headers received") //nolint:errcheck
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "limit: %s\nremaining: %s\nobserved: %s\n", //nolint:errcheck
			rl.Limit, rl.Remaining, rl.ObservedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}
