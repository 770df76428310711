package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/app"
)

var (
	rewardsEpoch  uint64
	rewardsTotal  float64
	rewardsExport bool
)

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Estimate the reward split for one epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rewardsTotal <= 0 {
			return errors.New("--total must be greater than 0")
		}

		opts := app.RewardsOptions{
			Epoch:    rewardsEpoch,
			TotalADA: rewardsTotal,
			Export:   rewardsExport,
		}
		return getApp().Rewards(cmd.Context(), opts)
	},
}

func init() {
	rewardsCmd.Flags().Uint64Var(&rewardsEpoch, "epoch", 0, "Epoch to estimate (defaults to the previous epoch)")
	rewardsCmd.Flags().Float64Var(&rewardsTotal, "total", 0, "Total epoch rewards in ADA")
	rewardsCmd.Flags().BoolVar(&rewardsExport, "export", false, "Write the report to the export directory")
}
