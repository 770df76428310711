package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/alerting"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/config"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/report"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/scheduler"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/source"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/storage"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/trend"
)

// Service orchestrates collection, evaluation, persistence, alerting, and
// report export across all configured pools.
type Service struct {
	scheduler    *scheduler.Scheduler
	src          source.Source
	sampleStore  storage.SampleStore
	verdictStore storage.VerdictStore
	alertStore   storage.AlertStore
	notifier     alerting.Notifier
	exporter     report.Exporter
	logger       zerolog.Logger

	pools          []config.PoolConfig
	thresholds     health.Thresholds
	trendOpts      trend.Options
	poolTimeout    time.Duration
	alertsOn       bool
	alertRetention time.Duration
	locker         storage.AdvisoryLocker
	lockKey        int64
}

// New constructs the monitoring service. Threshold and trend settings are
// snapshotted here; the running service never re-reads configuration.
func New(
	cfg *config.Config,
	sched *scheduler.Scheduler,
	src source.Source,
	sampleStore storage.SampleStore,
	verdictStore storage.VerdictStore,
	alertStore storage.AlertStore,
	notifier alerting.Notifier,
	exporter report.Exporter,
	logger zerolog.Logger,
) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := sampleStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:      sched,
		src:            src,
		sampleStore:    sampleStore,
		verdictStore:   verdictStore,
		alertStore:     alertStore,
		notifier:       notifier,
		exporter:       exporter,
		logger:         logger.With().Str("component", "service").Logger(),
		pools:          cfg.Pools,
		thresholds:     cfg.HealthThresholds(),
		trendOpts:      cfg.TrendOptions(),
		poolTimeout:    cfg.Scheduler.PoolTimeout,
		alertsOn:       cfg.Alerting.Enabled,
		alertRetention: cfg.Alerting.Retention,
		locker:         locker,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the periodic monitoring loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.RunCycle)
}

// RunCycle executes one complete cycle over all configured pools.
//
// The cycle runs detached from the caller's cancellation: a shutdown
// signal stops the scheduler from starting new cycles, but a cycle
// already in flight finishes its adapter calls (bounded by the per-pool
// timeout), exports, and notifies before the process exits.
func (s *Service) RunCycle(ctx context.Context, cycleAt time.Time) error {
	if len(s.pools) == 0 {
		return fmt.Errorf("no pools configured")
	}
	ctx = context.WithoutCancel(ctx)

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycleAt).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	rep := s.collectCycle(ctx, cycleAt)

	s.persistCycle(ctx, rep)

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, rep); err != nil {
			s.logger.Error().Err(err).Time("cycle", cycleAt).Msg("failed to export cycle report")
		}
	}

	s.dispatchAlerts(ctx, rep)
	s.pruneAlerts(ctx, cycleAt)
	return nil
}

// pruneAlerts drops alert audit rows older than the configured retention.
func (s *Service) pruneAlerts(ctx context.Context, cycleAt time.Time) {
	if s.alertStore == nil || s.alertRetention <= 0 {
		return
	}
	cutoff := cycleAt.Add(-s.alertRetention)
	if err := s.alertStore.DeleteAlertsBefore(ctx, cutoff); err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to prune alert history")
	}
}

// CollectOnce runs a single collection and evaluation pass without going
// through the scheduler. Used by the one-shot check command.
func (s *Service) CollectOnce(ctx context.Context, cycleAt time.Time) report.CycleReport {
	return s.collectCycle(ctx, cycleAt)
}

// collectCycle fans out one goroutine per pool and fans every result back
// in before returning. Thresholds were snapshotted at construction and are
// read-only here, so the goroutines share no mutable state. Results keep
// the configured pool order regardless of completion order, and the report
// is only assembled once all pools have reported — a cycle is never
// partially visible downstream.
func (s *Service) collectCycle(ctx context.Context, cycleAt time.Time) report.CycleReport {
	results := make([]report.PoolReport, len(s.pools))

	var wg sync.WaitGroup
	for i, pool := range s.pools {
		wg.Add(1)
		go func(idx int, pool config.PoolConfig) {
			defer wg.Done()
			results[idx] = s.collectPool(ctx, pool, cycleAt)
		}(i, pool)
	}
	wg.Wait()

	return report.CycleReport{
		CycleAt:     cycleAt,
		CompletedAt: time.Now().UTC(),
		Pools:       results,
	}
}

// collectPool gathers, evaluates, and trend-analyzes a single pool. Every
// failure mode downgrades to a reportable verdict; nothing escapes to
// abort the cycle for other pools.
func (s *Service) collectPool(ctx context.Context, pool config.PoolConfig, cycleAt time.Time) report.PoolReport {
	poolCtx := ctx
	if s.poolTimeout > 0 {
		var cancel context.CancelFunc
		poolCtx, cancel = context.WithTimeout(ctx, s.poolTimeout)
		defer cancel()
	}

	rep := report.PoolReport{PoolID: pool.PoolID, PoolName: pool.Name}

	sample, err := s.src.FetchCurrent(poolCtx, pool.PoolID)
	if err == nil {
		// Out-of-contract data is discarded, not evaluated.
		err = sample.Validate()
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("pool_id", pool.PoolID).Msg("no usable sample this cycle")
		rep.Verdict = health.Unreachable(pool.PoolID, cycleAt, err)
		rep.TrendUnavailable = "node unreachable"
		return rep
	}

	rep.Verdict = health.Evaluate(sample, s.thresholds)

	history, histErr := s.fetchHistory(poolCtx, pool.PoolID, sample)
	if histErr != nil {
		s.logger.Warn().Err(histErr).Str("pool_id", pool.PoolID).Msg("history unavailable")
		rep.TrendUnavailable = fmt.Sprintf("history unavailable: %v", histErr)
		return rep
	}

	trendReport, trendErr := trend.Analyze(history, s.trendOpts)
	if trendErr != nil {
		s.logger.Warn().Err(trendErr).Str("pool_id", pool.PoolID).Msg("trend analysis unavailable")
		rep.TrendUnavailable = trendErr.Error()
		return rep
	}
	rep.Trend = &trendReport

	return rep
}

// fetchHistory pulls the trailing trend window ending at the current
// sample's epoch, then appends the current sample if the source has not
// recorded it yet.
func (s *Service) fetchHistory(ctx context.Context, poolID string, current health.MetricSample) ([]health.MetricSample, error) {
	window := uint64(s.trendOpts.WindowEpochs)
	if window < 2 {
		window = 2
	}

	from := uint64(0)
	if current.Epoch+1 > window {
		from = current.Epoch + 1 - window
	}

	history, err := s.src.FetchHistory(ctx, poolID, from, current.Epoch)
	if err != nil {
		return nil, err
	}

	if len(history) == 0 || history[len(history)-1].Epoch < current.Epoch {
		history = append(history, current)
	}
	return history, nil
}

func (s *Service) persistCycle(ctx context.Context, rep report.CycleReport) {
	for _, pool := range rep.Pools {
		if s.sampleStore != nil && pool.Verdict.Status != health.StatusUnknown {
			if err := s.sampleStore.UpsertSample(ctx, pool.Verdict.Sample); err != nil {
				s.logger.Error().Err(err).Str("pool_id", pool.PoolID).Msg("failed to persist sample")
			}
		}
		if s.verdictStore != nil {
			record := storage.VerdictRecord{
				PoolID:  pool.PoolID,
				CycleTS: rep.CycleAt,
				Status:  pool.Verdict.Status,
				Issues:  pool.Verdict.Issues,
				Sample:  pool.Verdict.Sample,
			}
			if _, err := s.verdictStore.UpsertVerdict(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("pool_id", pool.PoolID).Msg("failed to persist verdict")
			}
		}
	}
}

// dispatchAlerts notifies every pool whose verdict carries issues. Delivery
// failures are logged and dropped; the scheduler loop is never blocked by
// a sink.
func (s *Service) dispatchAlerts(ctx context.Context, rep report.CycleReport) {
	if !s.alertsOn || s.notifier == nil {
		return
	}

	for _, pool := range rep.Pools {
		if len(pool.Verdict.Issues) == 0 {
			continue
		}

		if s.alertStore != nil {
			record := storage.AlertRecord{
				PoolID:  pool.PoolID,
				CycleTS: rep.CycleAt,
				Status:  pool.Verdict.Status,
				Issues:  pool.Verdict.Issues,
			}
			if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("pool_id", pool.PoolID).Msg("failed to persist alert record")
			}
		}

		note := alerting.Notification{
			PoolID:   pool.PoolID,
			PoolName: pool.PoolName,
			Status:   pool.Verdict.Status,
			Issues:   pool.Verdict.Issues,
			CycleAt:  rep.CycleAt,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("pool_id", pool.PoolID).Msg("failed to dispatch alert")
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
