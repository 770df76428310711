package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Node       NodeConfig       `mapstructure:"node"`
	Pools      []PoolConfig     `mapstructure:"pools"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Trend      TrendConfig      `mapstructure:"trend"`
	Rewards    RewardsConfig    `mapstructure:"rewards"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs check cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// NodeConfig covers pool metrics API access.
type NodeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ProjectID      string        `mapstructure:"project_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PoolConfig identifies one monitored stake pool.
type PoolConfig struct {
	PoolID string `mapstructure:"pool_id"`
	Name   string `mapstructure:"name"`
	Ticker string `mapstructure:"ticker"`
}

// ThresholdsConfig holds the health evaluation limits.
type ThresholdsConfig struct {
	SaturationThreshold   float64       `mapstructure:"saturation_threshold"`
	MissedBlocksThreshold int64         `mapstructure:"missed_blocks_threshold"`
	MaxSyncLag            time.Duration `mapstructure:"max_sync_lag"`
	MaxResponseLatency    time.Duration `mapstructure:"max_response_latency"`
}

// TrendConfig tunes the multi-epoch analyzer.
type TrendConfig struct {
	WindowEpochs       int     `mapstructure:"window_epochs"`
	NoiseFloorPct      float64 `mapstructure:"noise_floor_pct"`
	VolatilityCVCutoff float64 `mapstructure:"volatility_cv_cutoff"`
}

// RewardsConfig carries the reward-sharing parameters used by the ROI
// estimate. These are operator-supplied, never derived from chain data.
type RewardsConfig struct {
	PoolMarginPct      float64 `mapstructure:"pool_margin_pct"`
	FixedCostADA       float64 `mapstructure:"fixed_cost_ada"`
	BaseAnnualYieldPct float64 `mapstructure:"base_annual_yield_pct"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Retention bounds how long alert audit rows are kept. Zero disables
	// pruning.
	Retention time.Duration `mapstructure:"retention"`
	Webhook   WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig parameterises the webhook alert channel.
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets report export behaviour.
type ExportConfig struct {
	OutputDirectory string `mapstructure:"output_directory"`
	MaxDataPoints   int    `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "poolwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.pool_timeout", "30s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x706f6f6c))

	v.SetDefault("node.request_timeout", "10s")
	v.SetDefault("node.user_agent", "poolwatch/1.0")

	v.SetDefault("thresholds.saturation_threshold", 0.8)
	v.SetDefault("thresholds.missed_blocks_threshold", int64(3))
	v.SetDefault("thresholds.max_sync_lag", "120s")
	v.SetDefault("thresholds.max_response_latency", "2s")

	v.SetDefault("trend.window_epochs", 10)
	v.SetDefault("trend.noise_floor_pct", 1.0)
	v.SetDefault("trend.volatility_cv_cutoff", 0.1)

	v.SetDefault("rewards.pool_margin_pct", 5.0)
	v.SetDefault("rewards.fixed_cost_ada", 340.0)
	v.SetDefault("rewards.base_annual_yield_pct", 4.0)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.retention", "720h")
	v.SetDefault("alerting.webhook.enabled", false)
	v.SetDefault("alerting.webhook.timeout", "10s")

	v.SetDefault("export.output_directory", "./reports")
	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks on the configuration. A misconfiguration
// is fatal at startup; a running cycle never re-validates.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.PoolTimeout <= 0 {
		return fmt.Errorf("scheduler.pool_timeout must be greater than zero")
	}
	if c.Thresholds.SaturationThreshold <= 0 {
		return fmt.Errorf("thresholds.saturation_threshold must be greater than zero")
	}
	if c.Thresholds.MissedBlocksThreshold < 0 {
		return fmt.Errorf("thresholds.missed_blocks_threshold cannot be negative")
	}
	if c.Thresholds.MaxSyncLag < 0 {
		return fmt.Errorf("thresholds.max_sync_lag cannot be negative")
	}
	if c.Thresholds.MaxResponseLatency < 0 {
		return fmt.Errorf("thresholds.max_response_latency cannot be negative")
	}
	if c.Trend.WindowEpochs < 2 {
		return fmt.Errorf("trend.window_epochs must be at least 2")
	}
	if c.Trend.NoiseFloorPct < 0 {
		return fmt.Errorf("trend.noise_floor_pct cannot be negative")
	}
	if c.Trend.VolatilityCVCutoff < 0 {
		return fmt.Errorf("trend.volatility_cv_cutoff cannot be negative")
	}
	if c.Rewards.PoolMarginPct < 0 || c.Rewards.PoolMarginPct > 100 {
		return fmt.Errorf("rewards.pool_margin_pct must be between 0 and 100")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Retention < 0 {
		return fmt.Errorf("alerting.retention cannot be negative")
	}
	if c.Alerting.Webhook.Enabled && c.Alerting.Webhook.URL == "" {
		return fmt.Errorf("alerting.webhook.url must be set when the webhook channel is enabled")
	}

	seen := make(map[string]struct{}, len(c.Pools))
	for i, pool := range c.Pools {
		if pool.PoolID == "" {
			return fmt.Errorf("pools[%d].pool_id must not be empty", i)
		}
		if _, dup := seen[pool.PoolID]; dup {
			return fmt.Errorf("pools[%d].pool_id %q is configured twice", i, pool.PoolID)
		}
		seen[pool.PoolID] = struct{}{}
	}
	return nil
}
