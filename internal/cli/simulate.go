package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateSaturation float64
	simulateMissed     uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Feed a synthetic unhealthy sample through the alert path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateSaturation < 0 {
			return errors.New("--saturation cannot be negative")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateSaturation, simulateMissed)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateSaturation, "saturation", 1.1, "Synthetic saturation ratio")
	simulateCmd.Flags().Uint64Var(&simulateMissed, "missed-blocks", 5, "Synthetic missed block count")
}
