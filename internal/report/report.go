package report

import (
	"context"
	"time"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/trend"
)

// PoolReport merges one pool's verdict with its trend statistics for a
// cycle. Trend is nil when analysis was unavailable; TrendUnavailable then
// records why, so the slot is explicit rather than an error path.
type PoolReport struct {
	PoolID           string        `json:"pool_id"`
	PoolName         string        `json:"pool_name"`
	Verdict          health.Verdict `json:"verdict"`
	Trend            *trend.Report `json:"trend,omitempty"`
	TrendUnavailable string        `json:"trend_unavailable,omitempty"`
}

// CycleReport is the finalized result of one complete scheduler cycle
// covering every configured pool. It is only built once all per-pool
// results are in; partial cycles are never exported.
type CycleReport struct {
	CycleAt     time.Time    `json:"cycle_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Pools       []PoolReport `json:"pools"`
}

// Exporter receives finalized cycle reports. Serialization format and
// destination are the implementation's concern.
type Exporter interface {
	Export(ctx context.Context, report CycleReport) error
}
