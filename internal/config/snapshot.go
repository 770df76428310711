package config

import (
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/trend"
)

// HealthThresholds converts the configured limits into the evaluator's
// threshold snapshot. The service captures this once per cycle so a
// concurrent config reload never produces a cycle judged against two
// different threshold sets.
func (c *Config) HealthThresholds() health.Thresholds {
	missed := c.Thresholds.MissedBlocksThreshold
	if missed < 0 {
		missed = 0
	}
	return health.Thresholds{
		SaturationThreshold:   c.Thresholds.SaturationThreshold,
		MissedBlocksThreshold: uint64(missed),
		MaxSyncLagSeconds:     c.Thresholds.MaxSyncLag.Seconds(),
		MaxResponseLatencyMS:  c.Thresholds.MaxResponseLatency.Milliseconds(),
	}
}

// TrendOptions builds the analyzer options snapshot for one cycle.
func (c *Config) TrendOptions() trend.Options {
	return trend.Options{
		WindowEpochs:       c.Trend.WindowEpochs,
		NoiseFloorPct:      c.Trend.NoiseFloorPct,
		VolatilityCVCutoff: c.Trend.VolatilityCVCutoff,
		Rewards: trend.RewardParams{
			PoolMarginPct:      c.Rewards.PoolMarginPct,
			BaseAnnualYieldPct: c.Rewards.BaseAnnualYieldPct,
		},
	}
}
