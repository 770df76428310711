package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/config"
)

// rewardsReport is the per-pool reward split estimate for one epoch.
type rewardsReport struct {
	PoolID              string          `json:"pool_id"`
	PoolName            string          `json:"pool_name"`
	Epoch               uint64          `json:"epoch"`
	TotalRewardsADA     decimal.Decimal `json:"total_rewards_ada"`
	PoolShareADA        decimal.Decimal `json:"pool_share_ada"`
	DelegatorShareADA   decimal.Decimal `json:"delegator_share_ada"`
	DelegatorCount      uint64          `json:"delegator_count"`
	AvgPerDelegatorADA  decimal.Decimal `json:"avg_per_delegator_ada"`
	EffectiveMarginPct  decimal.Decimal `json:"effective_margin_pct"`
}

// Rewards estimates how an epoch's total rewards split between the
// operator and delegators, from the configured margin and fixed cost.
// Total rewards are an external input: the core never derives them.
func (a *App) Rewards(ctx context.Context, opts RewardsOptions) error {
	if len(a.Config.Pools) == 0 {
		return errors.New("no pools configured")
	}
	if opts.TotalADA <= 0 {
		return errors.New("--total must be greater than zero")
	}

	src := a.newSource()

	reports := make([]rewardsReport, 0, len(a.Config.Pools))
	for _, pool := range a.Config.Pools {
		sample, err := src.FetchCurrent(ctx, pool.PoolID)
		if err != nil {
			a.Logger.Warn().Err(err).Str("pool_id", pool.PoolID).Msg("skipping pool; metrics unavailable")
			continue
		}

		epoch := opts.Epoch
		if epoch == 0 {
			// Rewards settle for the previous epoch.
			if sample.Epoch > 0 {
				epoch = sample.Epoch - 1
			}
		}

		reports = append(reports, splitRewards(pool, epoch, opts.TotalADA, sample.DelegatorCount, a.Config.Rewards))
	}
	if len(reports) == 0 {
		return errors.New("no pool could be estimated")
	}

	printRewardsSummary(reports)

	if opts.Export {
		return exportRewards(reports, a.Config.Export.OutputDirectory)
	}
	return nil
}

func splitRewards(pool config.PoolConfig, epoch uint64, totalADA float64, delegators uint64, params config.RewardsConfig) rewardsReport {
	total := decimal.NewFromFloat(totalADA)
	fixed := decimal.NewFromFloat(params.FixedCostADA)
	margin := decimal.NewFromFloat(params.PoolMarginPct).Div(decimal.NewFromInt(100))

	// Fixed cost comes off the top; the margin applies to the remainder.
	afterFixed := total.Sub(fixed)
	if afterFixed.IsNegative() {
		afterFixed = decimal.Zero
		fixed = total
	}
	marginShare := afterFixed.Mul(margin)
	poolShare := fixed.Add(marginShare)
	delegatorShare := total.Sub(poolShare)

	avg := decimal.Zero
	if delegators > 0 {
		avg = delegatorShare.Div(decimal.NewFromUint64(delegators))
	}

	effectiveMargin := decimal.Zero
	if total.IsPositive() {
		effectiveMargin = poolShare.Div(total).Mul(decimal.NewFromInt(100))
	}

	return rewardsReport{
		PoolID:             pool.PoolID,
		PoolName:           pool.Name,
		Epoch:              epoch,
		TotalRewardsADA:    total.Round(6),
		PoolShareADA:       poolShare.Round(6),
		DelegatorShareADA:  delegatorShare.Round(6),
		DelegatorCount:     delegators,
		AvgPerDelegatorADA: avg.Round(6),
		EffectiveMarginPct: effectiveMargin.Round(2),
	}
}

func printRewardsSummary(reports []rewardsReport) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pool\tEpoch\tTotal\tPool Share\tDelegator Share\tDelegators\tAvg/Delegator\tEff. Margin")

	for _, rep := range reports {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s ADA\t%s ADA\t%s ADA\t%d\t%s ADA\t%s%%\n",
			rep.PoolName,
			rep.Epoch,
			rep.TotalRewardsADA.StringFixed(2),
			rep.PoolShareADA.StringFixed(2),
			rep.DelegatorShareADA.StringFixed(2),
			rep.DelegatorCount,
			rep.AvgPerDelegatorADA.StringFixed(4),
			rep.EffectiveMarginPct.StringFixed(1),
		)
	}
	writer.Flush()
}

func exportRewards(reports []rewardsReport, dir string) error {
	if dir == "" {
		return errors.New("export.output_directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}

	path := timestampedPath(dir, "rewards_report", time.Now())
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "rewards report exported to %s\n", path)
	return nil
}
