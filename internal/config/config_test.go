package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.App.Name != "poolwatch" {
		t.Fatalf("default app name wrong: %q", cfg.App.Name)
	}
	if cfg.Scheduler.Interval != 5*time.Minute {
		t.Fatalf("default interval wrong: %s", cfg.Scheduler.Interval)
	}
	if cfg.Thresholds.SaturationThreshold != 0.8 {
		t.Fatalf("default saturation threshold wrong: %f", cfg.Thresholds.SaturationThreshold)
	}
	if cfg.Thresholds.MissedBlocksThreshold != 3 {
		t.Fatalf("default missed-blocks threshold wrong: %d", cfg.Thresholds.MissedBlocksThreshold)
	}
	if cfg.Thresholds.MaxSyncLag != 2*time.Minute {
		t.Fatalf("default sync-lag tolerance wrong: %s", cfg.Thresholds.MaxSyncLag)
	}
	if cfg.Trend.WindowEpochs != 10 {
		t.Fatalf("default trend window wrong: %d", cfg.Trend.WindowEpochs)
	}
	if cfg.Trend.NoiseFloorPct != 1.0 {
		t.Fatalf("default noise floor wrong: %f", cfg.Trend.NoiseFloorPct)
	}
	if cfg.Rewards.FixedCostADA != 340.0 {
		t.Fatalf("default fixed cost wrong: %f", cfg.Rewards.FixedCostADA)
	}
	if cfg.Alerting.Enabled {
		t.Fatal("alerting must default off")
	}
	if cfg.Alerting.Retention != 720*time.Hour {
		t.Fatalf("default alert retention wrong: %s", cfg.Alerting.Retention)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := `
scheduler:
  interval: 1m
  pool_timeout: 10s
node:
  base_url: https://cardano-mainnet.example.com/api/v0
  project_id: testtoken
pools:
  - pool_id: pool1abc
    name: Alpha Pool
    ticker: ALPHA
  - pool_id: pool1def
    name: Bravo Pool
    ticker: BRAVO
thresholds:
  saturation_threshold: 0.9
  missed_blocks_threshold: 1
trend:
  window_epochs: 15
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Scheduler.Interval != time.Minute {
		t.Fatalf("interval not read: %s", cfg.Scheduler.Interval)
	}
	if cfg.Node.BaseURL != "https://cardano-mainnet.example.com/api/v0" {
		t.Fatalf("node base url not read: %q", cfg.Node.BaseURL)
	}
	if len(cfg.Pools) != 2 || cfg.Pools[1].Ticker != "BRAVO" {
		t.Fatalf("pools not read: %+v", cfg.Pools)
	}
	if cfg.Thresholds.SaturationThreshold != 0.9 {
		t.Fatalf("threshold override not read: %f", cfg.Thresholds.SaturationThreshold)
	}
	if cfg.Trend.WindowEpochs != 15 {
		t.Fatalf("trend override not read: %d", cfg.Trend.WindowEpochs)
	}
	// Untouched keys keep their defaults.
	if cfg.Thresholds.MaxResponseLatency != 2*time.Second {
		t.Fatalf("default response latency lost: %s", cfg.Thresholds.MaxResponseLatency)
	}
}

func validTestConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{Interval: 5 * time.Minute, PoolTimeout: 30 * time.Second},
		Thresholds: ThresholdsConfig{
			SaturationThreshold:   0.8,
			MissedBlocksThreshold: 3,
			MaxSyncLag:            2 * time.Minute,
			MaxResponseLatency:    2 * time.Second,
		},
		Trend:   TrendConfig{WindowEpochs: 10, NoiseFloorPct: 1.0, VolatilityCVCutoff: 0.1},
		Rewards: RewardsConfig{PoolMarginPct: 5.0, BaseAnnualYieldPct: 4.0},
		Export:  ExportConfig{OutputDirectory: "./reports", MaxDataPoints: 100000},
		Pools: []PoolConfig{
			{PoolID: "pool1abc", Name: "Alpha"},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"zero pool timeout", func(c *Config) { c.Scheduler.PoolTimeout = 0 }},
		{"zero saturation threshold", func(c *Config) { c.Thresholds.SaturationThreshold = 0 }},
		{"negative missed blocks", func(c *Config) { c.Thresholds.MissedBlocksThreshold = -1 }},
		{"negative sync lag", func(c *Config) { c.Thresholds.MaxSyncLag = -time.Second }},
		{"window under 2", func(c *Config) { c.Trend.WindowEpochs = 1 }},
		{"negative noise floor", func(c *Config) { c.Trend.NoiseFloorPct = -0.5 }},
		{"margin over 100", func(c *Config) { c.Rewards.PoolMarginPct = 120 }},
		{"zero max data points", func(c *Config) { c.Export.MaxDataPoints = 0 }},
		{"negative alert retention", func(c *Config) { c.Alerting.Retention = -time.Hour }},
		{"webhook enabled without url", func(c *Config) { c.Alerting.Webhook.Enabled = true }},
		{"empty pool id", func(c *Config) { c.Pools[0].PoolID = "" }},
		{"duplicate pool id", func(c *Config) {
			c.Pools = append(c.Pools, PoolConfig{PoolID: "pool1abc", Name: "Dup"})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("%s must be rejected", tc.name)
			}
		})
	}
}

func TestThresholdSnapshot(t *testing.T) {
	cfg := validTestConfig()
	th := cfg.HealthThresholds()

	if th.SaturationThreshold != 0.8 {
		t.Fatalf("saturation threshold not carried: %f", th.SaturationThreshold)
	}
	if th.MissedBlocksThreshold != 3 {
		t.Fatalf("missed-blocks threshold not carried: %d", th.MissedBlocksThreshold)
	}
	if th.MaxSyncLagSeconds != 120 {
		t.Fatalf("sync lag must convert to seconds, got %f", th.MaxSyncLagSeconds)
	}
	if th.MaxResponseLatencyMS != 2000 {
		t.Fatalf("latency must convert to milliseconds, got %d", th.MaxResponseLatencyMS)
	}

	opts := cfg.TrendOptions()
	if opts.WindowEpochs != 10 || opts.Rewards.PoolMarginPct != 5.0 {
		t.Fatalf("trend options not carried: %+v", opts)
	}
}
