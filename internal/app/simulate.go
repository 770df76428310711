package app

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/service"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/source"
)

// SimulateAlert feeds a synthetic sample through the full evaluate and
// notify path without touching storage or the scheduler.
func (a *App) SimulateAlert(ctx context.Context, saturation float64, missedBlocks uint64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}
	if len(a.Config.Pools) == 0 {
		return errors.New("no pools configured")
	}

	pool := a.Config.Pools[0]
	sample := health.MetricSample{
		PoolID:          pool.PoolID,
		Epoch:           1,
		SaturationRatio: saturation,
		BlocksProduced:  0,
		BlocksExpected:  missedBlocks,
		DelegatorCount:  1,
		CollectedAt:     time.Now().UTC(),
	}

	cfg := *a.Config
	cfg.Pools = cfg.Pools[:1]

	svc := service.New(&cfg, nil, &staticSource{sample: sample}, nil, nil, nil, notifier, nil, a.Logger)
	return svc.RunCycle(ctx, time.Now().UTC().Truncate(a.Config.Scheduler.Interval))
}

// staticSource returns one fixed sample and a two-sample history built
// from it, enough to drive the service end to end in simulations.
type staticSource struct {
	sample health.MetricSample
}

func (s *staticSource) FetchCurrent(ctx context.Context, poolID string) (health.MetricSample, error) {
	sample := s.sample
	sample.PoolID = poolID
	return sample, nil
}

func (s *staticSource) FetchHistory(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error) {
	older := s.sample
	older.PoolID = poolID
	if older.Epoch > 0 {
		older.Epoch--
	}
	newer := s.sample
	newer.PoolID = poolID
	newer.Epoch = older.Epoch + 1
	return []health.MetricSample{older, newer}, nil
}

var _ source.Source = (*staticSource)(nil)
