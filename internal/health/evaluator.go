package health

import (
	"fmt"
	"time"
)

// Evaluate applies the configured thresholds to one sample and returns the
// verdict. Pure function of its inputs: no I/O, no clock reads, identical
// inputs always yield an identical verdict.
//
// All rules are evaluated independently; their order fixes the issue list
// ordering only. The final status is the maximum severity across triggered
// issues: none -> Healthy, warnings only -> Degraded, any critical ->
// Unhealthy.
func Evaluate(sample MetricSample, thresholds Thresholds) Verdict {
	var issues []Issue

	if sample.SyncLagSeconds > thresholds.MaxSyncLagSeconds {
		issues = append(issues, Issue{
			PoolID:   sample.PoolID,
			Kind:     IssueSyncLag,
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("node %.0fs behind the network tip (tolerance %.0fs)", sample.SyncLagSeconds, thresholds.MaxSyncLagSeconds),
		})
	}

	if sample.SaturationRatio > thresholds.SaturationThreshold {
		severity := SeverityWarning
		detail := fmt.Sprintf("saturation %.1f%% above threshold %.1f%%", sample.SaturationRatio*100, thresholds.SaturationThreshold*100)
		if sample.SaturationRatio >= 1.0 {
			// An over-saturated pool earns no further rewards.
			severity = SeverityCritical
			detail = fmt.Sprintf("pool over-saturated at %.1f%%", sample.SaturationRatio*100)
		}
		issues = append(issues, Issue{
			PoolID:   sample.PoolID,
			Kind:     IssueHighSaturation,
			Severity: severity,
			Detail:   detail,
		})
	}

	if missed := missedBlocks(sample); missed > thresholds.MissedBlocksThreshold {
		issues = append(issues, Issue{
			PoolID:   sample.PoolID,
			Kind:     IssueMissedBlocks,
			Severity: SeverityCritical,
			Detail:   fmt.Sprintf("missed %d of %d expected blocks this epoch", missed, sample.BlocksExpected),
		})
	}

	if sample.ResponseLatencyMS > thresholds.MaxResponseLatencyMS {
		issues = append(issues, Issue{
			PoolID:   sample.PoolID,
			Kind:     IssueSlowResponse,
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("response took %dms (limit %dms)", sample.ResponseLatencyMS, thresholds.MaxResponseLatencyMS),
		})
	}

	return Verdict{
		PoolID:      sample.PoolID,
		Status:      deriveStatus(issues),
		Issues:      issues,
		EvaluatedAt: sample.CollectedAt,
		Sample:      sample,
	}
}

// Unreachable builds the verdict for a pool whose adapter produced no usable
// sample. Rule evaluation is bypassed entirely; the synthetic critical issue
// keeps downstream alerting firing while the Unknown status records that
// there was no data, as opposed to data showing a problem.
func Unreachable(poolID string, at time.Time, cause error) Verdict {
	detail := "node unreachable"
	if cause != nil {
		detail = fmt.Sprintf("node unreachable: %v", cause)
	}
	return Verdict{
		PoolID:      poolID,
		Status:      StatusUnknown,
		EvaluatedAt: at,
		Issues: []Issue{{
			PoolID:   poolID,
			Kind:     IssueNodeUnreachable,
			Severity: SeverityCritical,
			Detail:   detail,
		}},
	}
}

// missedBlocks tolerates produced > expected, a known data-source anomaly.
func missedBlocks(sample MetricSample) uint64 {
	if sample.BlocksProduced >= sample.BlocksExpected {
		return 0
	}
	return sample.BlocksExpected - sample.BlocksProduced
}

func deriveStatus(issues []Issue) Status {
	if len(issues) == 0 {
		return StatusHealthy
	}
	status := StatusDegraded
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			status = StatusUnhealthy
			break
		}
	}
	return status
}
