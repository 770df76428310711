package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/alerting"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/config"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/report"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/scheduler"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/service"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/source"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSource() source.Source {
	return source.NewNodeAPI(source.NodeAPIOptions{
		BaseURL:   a.Config.Node.BaseURL,
		ProjectID: a.Config.Node.ProjectID,
		Timeout:   a.Config.Node.RequestTimeout,
		UserAgent: a.Config.Node.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Webhook.Enabled {
		cfg := a.Config.Alerting.Webhook
		return alerting.NewWebhookNotifier(cfg.URL, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) newExporter() report.Exporter {
	if a.Config.Export.OutputDirectory == "" {
		return nil
	}
	return report.NewJSONFile(a.Config.Export.OutputDirectory, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var sampleStore storage.SampleStore
	var verdictStore storage.VerdictStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		verdictStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, a.newSource(), sampleStore, verdictStore, alertStore, a.newNotifier(), a.newExporter(), a.Logger)

	a.Logger.Info().Int("pools", len(a.Config.Pools)).Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// AnalyzeOptions hold parameters for the trend analysis command.
type AnalyzeOptions struct {
	PoolID      string
	Epochs      int
	FromArchive bool
	JSONPath    string
	CSVPath     string
	PNGPath     string
}

// RewardsOptions configure the rewards estimate command.
type RewardsOptions struct {
	Epoch    uint64
	TotalADA float64
	Export   bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}
