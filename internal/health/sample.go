package health

import (
	"fmt"
	"time"
)

// MetricSample is one observation of a pool taken during a single epoch.
// Samples are value types: constructed once by a source adapter and never
// mutated by the evaluator or analyzer.
type MetricSample struct {
	PoolID            string    `json:"pool_id"`
	Epoch             uint64    `json:"epoch"`
	SyncLagSeconds    float64   `json:"sync_lag_seconds"`
	SaturationRatio   float64   `json:"saturation_ratio"`
	BlocksProduced    uint64    `json:"blocks_produced"`
	BlocksExpected    uint64    `json:"blocks_expected"`
	ResponseLatencyMS int64     `json:"response_latency_ms"`
	DelegatorCount    uint64    `json:"delegator_count"`
	CollectedAt       time.Time `json:"collected_at"`
}

// Validate reports out-of-contract data returned by an adapter. A sample
// failing validation is discarded and the pool treated as unreachable for
// the cycle rather than evaluated against garbage.
func (s MetricSample) Validate() error {
	if s.PoolID == "" {
		return fmt.Errorf("sample missing pool id")
	}
	if s.SyncLagSeconds < 0 {
		return fmt.Errorf("pool %s: negative sync lag %f", s.PoolID, s.SyncLagSeconds)
	}
	if s.SaturationRatio < 0 {
		return fmt.Errorf("pool %s: negative saturation ratio %f", s.PoolID, s.SaturationRatio)
	}
	if s.ResponseLatencyMS < 0 {
		return fmt.Errorf("pool %s: negative response latency %dms", s.PoolID, s.ResponseLatencyMS)
	}
	return nil
}

// ProductionRatio returns produced/expected blocks. An expectation of zero
// yields 1.0 so that pools with no assigned slots read as fully performing.
func (s MetricSample) ProductionRatio() float64 {
	if s.BlocksExpected == 0 {
		return 1.0
	}
	return float64(s.BlocksProduced) / float64(s.BlocksExpected)
}

// Thresholds are the per-deployment limits a sample is judged against.
// A snapshot is taken at cycle start and treated as read-only for the
// whole cycle.
type Thresholds struct {
	SaturationThreshold   float64
	MissedBlocksThreshold uint64
	MaxSyncLagSeconds     float64
	MaxResponseLatencyMS  int64
}

// Severity grades a detected issue.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IssueKind enumerates the problem classes the evaluator can detect.
type IssueKind string

const (
	IssueHighSaturation  IssueKind = "high_saturation"
	IssueMissedBlocks    IssueKind = "missed_blocks"
	IssueSyncLag         IssueKind = "sync_lag"
	IssueSlowResponse    IssueKind = "slow_response"
	IssueNodeUnreachable IssueKind = "node_unreachable"
)

// Issue is a single detected problem for one pool.
type Issue struct {
	PoolID   string    `json:"pool_id"`
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Detail   string    `json:"detail"`
}

// Status classifies a pool for one cycle. Unknown is reserved for the
// no-data case (adapter failure) and is never used when a sample was
// actually evaluated.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Verdict is the per-pool, per-cycle evaluation result.
type Verdict struct {
	PoolID      string       `json:"pool_id"`
	Status      Status       `json:"status"`
	Issues      []Issue      `json:"issues,omitempty"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
	Sample      MetricSample `json:"sample"`
}
