package health

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func testThresholds() Thresholds {
	return Thresholds{
		SaturationThreshold:   0.8,
		MissedBlocksThreshold: 2,
		MaxSyncLagSeconds:     120,
		MaxResponseLatencyMS:  2000,
	}
}

func healthySample() MetricSample {
	return MetricSample{
		PoolID:            "pool1abc",
		Epoch:             450,
		SyncLagSeconds:    0,
		SaturationRatio:   0.42,
		BlocksProduced:    4,
		BlocksExpected:    4,
		ResponseLatencyMS: 150,
		DelegatorCount:    250,
		CollectedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateHealthy(t *testing.T) {
	verdict := Evaluate(healthySample(), testThresholds())

	if verdict.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s", verdict.Status)
	}
	if len(verdict.Issues) != 0 {
		t.Fatalf("healthy verdict must carry no issues, got %d", len(verdict.Issues))
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	sample := healthySample()
	sample.SaturationRatio = 0.95
	sample.ResponseLatencyMS = 5000

	first := Evaluate(sample, testThresholds())
	second := Evaluate(sample, testThresholds())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs must yield identical verdicts:\n%#v\n%#v", first, second)
	}
}

func TestSaturationStrictComparator(t *testing.T) {
	thresholds := testThresholds()

	sample := healthySample()
	sample.SaturationRatio = thresholds.SaturationThreshold
	verdict := Evaluate(sample, thresholds)
	if len(verdict.Issues) != 0 {
		t.Fatalf("saturation exactly at threshold must not trigger, got %v", verdict.Issues)
	}

	sample.SaturationRatio = thresholds.SaturationThreshold + 0.001
	verdict = Evaluate(sample, thresholds)
	if len(verdict.Issues) != 1 || verdict.Issues[0].Kind != IssueHighSaturation {
		t.Fatalf("saturation above threshold must trigger HighSaturation, got %v", verdict.Issues)
	}
	if verdict.Issues[0].Severity != SeverityWarning {
		t.Fatalf("sub-1.0 saturation should be a warning, got %s", verdict.Issues[0].Severity)
	}
	if verdict.Status != StatusDegraded {
		t.Fatalf("warnings only should degrade, got %s", verdict.Status)
	}
}

func TestOverSaturationEscalates(t *testing.T) {
	sample := healthySample()
	sample.SaturationRatio = 1.2

	verdict := Evaluate(sample, testThresholds())

	if verdict.Status != StatusUnhealthy {
		t.Fatalf("over-saturated pool must be unhealthy, got %s", verdict.Status)
	}
	if len(verdict.Issues) != 1 {
		t.Fatalf("expected one issue, got %v", verdict.Issues)
	}
	issue := verdict.Issues[0]
	if issue.Kind != IssueHighSaturation || issue.Severity != SeverityCritical {
		t.Fatalf("expected critical HighSaturation, got %s %s", issue.Severity, issue.Kind)
	}
}

func TestMissedBlocksThresholdBoundary(t *testing.T) {
	thresholds := testThresholds()

	sample := healthySample()
	sample.BlocksProduced = 2
	sample.BlocksExpected = 4
	verdict := Evaluate(sample, thresholds)
	if len(verdict.Issues) != 0 {
		t.Fatalf("2 missed of threshold 2 must not trigger, got %v", verdict.Issues)
	}

	sample.BlocksProduced = 1
	verdict = Evaluate(sample, thresholds)
	if len(verdict.Issues) != 1 || verdict.Issues[0].Kind != IssueMissedBlocks {
		t.Fatalf("3 missed of threshold 2 must trigger MissedBlocks, got %v", verdict.Issues)
	}
	if verdict.Status != StatusUnhealthy {
		t.Fatalf("missed blocks is critical, expected unhealthy, got %s", verdict.Status)
	}
}

func TestProducedExceedsExpectedTolerated(t *testing.T) {
	sample := healthySample()
	sample.BlocksProduced = 6
	sample.BlocksExpected = 4

	verdict := Evaluate(sample, testThresholds())
	if verdict.Status != StatusHealthy {
		t.Fatalf("excess production is a tolerated anomaly, got %s with %v", verdict.Status, verdict.Issues)
	}
}

func TestSyncLagAndSlowResponseWarn(t *testing.T) {
	sample := healthySample()
	sample.SyncLagSeconds = 300
	sample.ResponseLatencyMS = 5000

	verdict := Evaluate(sample, testThresholds())

	if verdict.Status != StatusDegraded {
		t.Fatalf("warnings only should degrade, got %s", verdict.Status)
	}
	if len(verdict.Issues) != 2 {
		t.Fatalf("expected SyncLag and SlowResponse, got %v", verdict.Issues)
	}
	if verdict.Issues[0].Kind != IssueSyncLag {
		t.Fatalf("rule order fixes issue order; expected SyncLag first, got %s", verdict.Issues[0].Kind)
	}
	if verdict.Issues[1].Kind != IssueSlowResponse {
		t.Fatalf("expected SlowResponse second, got %s", verdict.Issues[1].Kind)
	}
}

func TestUnreachableVerdict(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	verdict := Unreachable("pool1abc", at, errors.New("connection refused"))

	if verdict.Status != StatusUnknown {
		t.Fatalf("no data must be unknown, not unhealthy; got %s", verdict.Status)
	}
	if len(verdict.Issues) != 1 {
		t.Fatalf("expected one synthetic issue, got %v", verdict.Issues)
	}
	issue := verdict.Issues[0]
	if issue.Kind != IssueNodeUnreachable || issue.Severity != SeverityCritical {
		t.Fatalf("expected critical NodeUnreachable, got %s %s", issue.Severity, issue.Kind)
	}
}

func TestSampleValidate(t *testing.T) {
	sample := healthySample()
	if err := sample.Validate(); err != nil {
		t.Fatalf("valid sample rejected: %v", err)
	}

	bad := healthySample()
	bad.ResponseLatencyMS = -5
	if err := bad.Validate(); err == nil {
		t.Fatal("negative latency must be rejected")
	}

	bad = healthySample()
	bad.SaturationRatio = -0.1
	if err := bad.Validate(); err == nil {
		t.Fatal("negative saturation must be rejected")
	}

	bad = healthySample()
	bad.PoolID = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("missing pool id must be rejected")
	}
}

func TestProductionRatioZeroExpected(t *testing.T) {
	sample := healthySample()
	sample.BlocksProduced = 0
	sample.BlocksExpected = 0
	if got := sample.ProductionRatio(); got != 1.0 {
		t.Fatalf("zero expectation should read as 1.0, got %f", got)
	}
}
