package storage

import (
	"time"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

// VerdictRecord is a persisted per-pool, per-cycle health verdict.
type VerdictRecord struct {
	ID        int64
	PoolID    string
	CycleTS   time.Time
	Status    health.Status
	Issues    []health.Issue
	Sample    health.MetricSample
	CreatedAt time.Time
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID        int64
	PoolID    string
	CycleTS   time.Time
	Status    health.Status
	Issues    []health.Issue
	CreatedAt time.Time
}
