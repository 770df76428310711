package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSampleSQL = `INSERT INTO metric_samples (
        pool_id,
        epoch,
        sync_lag_seconds,
        saturation_ratio,
        blocks_produced,
        blocks_expected,
        response_latency_ms,
        delegator_count,
        collected_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (pool_id, epoch) DO UPDATE
    SET
        sync_lag_seconds    = EXCLUDED.sync_lag_seconds,
        saturation_ratio    = EXCLUDED.saturation_ratio,
        blocks_produced     = EXCLUDED.blocks_produced,
        blocks_expected     = EXCLUDED.blocks_expected,
        response_latency_ms = EXCLUDED.response_latency_ms,
        delegator_count     = EXCLUDED.delegator_count,
        collected_at        = EXCLUDED.collected_at;`

	listSamplesSQL = `SELECT
        pool_id,
        epoch,
        sync_lag_seconds,
        saturation_ratio,
        blocks_produced,
        blocks_expected,
        response_latency_ms,
        delegator_count,
        collected_at
    FROM metric_samples
    WHERE pool_id = $1
      AND epoch >= $2
      AND epoch <= $3
    ORDER BY epoch;`

	latestSampleSQL = `SELECT
        pool_id,
        epoch,
        sync_lag_seconds,
        saturation_ratio,
        blocks_produced,
        blocks_expected,
        response_latency_ms,
        delegator_count,
        collected_at
    FROM metric_samples
    WHERE pool_id = $1
    ORDER BY epoch DESC
    LIMIT 1;`

	insertVerdictSQL = `INSERT INTO pool_verdicts (
        pool_id,
        cycle_ts,
        status,
        issues,
        sample
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (pool_id, cycle_ts) DO UPDATE
    SET status = EXCLUDED.status,
        issues = EXCLUDED.issues,
        sample = EXCLUDED.sample
    RETURNING id, created_at;`

	listRecentVerdictsSQL = `SELECT
        id,
        pool_id,
        cycle_ts,
        status,
        issues,
        sample,
        created_at
    FROM pool_verdicts
    ORDER BY cycle_ts DESC, pool_id
    LIMIT $1;`

	insertAlertSQL = `INSERT INTO alerts (
        pool_id,
        cycle_ts,
        status,
        issues
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        pool_id,
        cycle_ts,
        status,
        issues,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SampleStore defines operations for metric sample persistence.
type SampleStore interface {
	UpsertSample(ctx context.Context, sample health.MetricSample) error
	ListSamples(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error)
	LatestSample(ctx context.Context, poolID string) (health.MetricSample, error)
}

// VerdictStore defines operations for verdict persistence.
type VerdictStore interface {
	UpsertVerdict(ctx context.Context, record VerdictRecord) (VerdictRecord, error)
	ListRecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to samples, verdicts, and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSample persists or updates one observation.
func (s *Store) UpsertSample(ctx context.Context, sample health.MetricSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertSampleSQL,
		sample.PoolID,
		sample.Epoch,
		sample.SyncLagSeconds,
		sample.SaturationRatio,
		sample.BlocksProduced,
		sample.BlocksExpected,
		sample.ResponseLatencyMS,
		sample.DelegatorCount,
		sample.CollectedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert metric sample: %w", execErr)
	}
	return nil
}

// ListSamples lists a pool's samples within an inclusive epoch range,
// ordered oldest to newest.
func (s *Store) ListSamples(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesSQL, poolID, fromEpoch, toEpoch)
	if queryErr != nil {
		return nil, fmt.Errorf("list metric samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]health.MetricSample, 0)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// LatestSample returns the most recent observation for a pool.
func (s *Store) LatestSample(ctx context.Context, poolID string) (health.MetricSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return health.MetricSample{}, err
	}

	rows, queryErr := pool.Query(ctx, latestSampleSQL, poolID)
	if queryErr != nil {
		return health.MetricSample{}, fmt.Errorf("latest metric sample: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return health.MetricSample{}, rows.Err()
		}
		return health.MetricSample{}, pgx.ErrNoRows
	}
	return scanSample(rows)
}

// UpsertVerdict persists one per-pool cycle verdict.
func (s *Store) UpsertVerdict(ctx context.Context, record VerdictRecord) (VerdictRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return VerdictRecord{}, err
	}

	issues, err := json.Marshal(record.Issues)
	if err != nil {
		return VerdictRecord{}, fmt.Errorf("marshal issues: %w", err)
	}
	sample, err := json.Marshal(record.Sample)
	if err != nil {
		return VerdictRecord{}, fmt.Errorf("marshal sample: %w", err)
	}

	row := pool.QueryRow(ctx, insertVerdictSQL,
		record.PoolID,
		record.CycleTS,
		string(record.Status),
		issues,
		sample,
	)
	if scanErr := row.Scan(&record.ID, &record.CreatedAt); scanErr != nil {
		return VerdictRecord{}, fmt.Errorf("upsert verdict: %w", scanErr)
	}
	return record, nil
}

// ListRecentVerdicts lists the most recent verdicts, newest cycle first.
func (s *Store) ListRecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentVerdictsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent verdicts: %w", queryErr)
	}
	defer rows.Close()

	records := make([]VerdictRecord, 0, limit)
	for rows.Next() {
		var rec VerdictRecord
		var status string
		var issues, sample []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.PoolID,
			&rec.CycleTS,
			&status,
			&issues,
			&sample,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Status = health.Status(status)
		if err := json.Unmarshal(issues, &rec.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
		if err := json.Unmarshal(sample, &rec.Sample); err != nil {
			return nil, fmt.Errorf("unmarshal sample: %w", err)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	issues, err := json.Marshal(alert.Issues)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("marshal issues: %w", err)
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.PoolID,
		alert.CycleTS,
		string(alert.Status),
		issues,
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return alert, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var status string
		var issues []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.PoolID,
			&rec.CycleTS,
			&status,
			&issues,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Status = health.Status(status)
		if err := json.Unmarshal(issues, &rec.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanSample(rows pgx.Rows) (health.MetricSample, error) {
	var sample health.MetricSample
	if err := rows.Scan(
		&sample.PoolID,
		&sample.Epoch,
		&sample.SyncLagSeconds,
		&sample.SaturationRatio,
		&sample.BlocksProduced,
		&sample.BlocksExpected,
		&sample.ResponseLatencyMS,
		&sample.DelegatorCount,
		&sample.CollectedAt,
	); err != nil {
		return health.MetricSample{}, err
	}
	return sample, nil
}
