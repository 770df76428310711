package trend

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

var (
	// ErrInsufficientData indicates fewer than two samples in the requested
	// window. Callers report it as an unavailable trend slot, not a failure.
	ErrInsufficientData = errors.New("trend: at least 2 samples required")
	// ErrInvalidOrdering indicates the history was not strictly increasing
	// by epoch. The analyzer never reorders silently.
	ErrInvalidOrdering = errors.New("trend: history epochs must be strictly increasing")
)

// Direction classifies multi-epoch performance movement.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionStable    Direction = "stable"
	DirectionDeclining Direction = "declining"
)

// Stability classifies saturation variance across the window.
type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityVolatile Stability = "volatile"
)

// RewardParams are the externally configured reward-sharing inputs to the
// ROI estimate. They are never derived from chain data here.
type RewardParams struct {
	PoolMarginPct      float64
	BaseAnnualYieldPct float64
}

// Options tune the analyzer for one invocation.
type Options struct {
	// WindowEpochs caps how many of the newest samples are considered.
	// Zero means the whole history.
	WindowEpochs int
	// NoiseFloorPct is the minimum half-over-half production-ratio movement,
	// in percentage points, counted as a real direction change.
	NoiseFloorPct float64
	// VolatilityCVCutoff is the coefficient-of-variation limit above which
	// saturation is reported volatile.
	VolatilityCVCutoff float64
	Rewards            RewardParams
}

// Report holds the derived longitudinal statistics for one pool.
type Report struct {
	PoolID               string          `json:"pool_id"`
	WindowEpochs         int             `json:"window_epochs"`
	FromEpoch            uint64          `json:"from_epoch"`
	ToEpoch              uint64          `json:"to_epoch"`
	PerformanceDirection Direction       `json:"performance_direction"`
	PerformancePct       decimal.Decimal `json:"performance_pct"`
	DelegatorGrowthPct   decimal.Decimal `json:"delegator_growth_pct"`
	SaturationStability  Stability       `json:"saturation_stability"`
	SaturationCV         decimal.Decimal `json:"saturation_cv"`
	ROIEstimate          decimal.Decimal `json:"roi_estimate"`
	EfficiencyPct        decimal.Decimal `json:"efficiency_pct"`
}

// Analyze derives trend statistics from an ordered (oldest to newest)
// sample history. Pure computation: no I/O, no clock reads.
func Analyze(history []health.MetricSample, opts Options) (Report, error) {
	if err := checkOrdering(history); err != nil {
		return Report{}, err
	}

	window := history
	if opts.WindowEpochs > 0 && len(history) > opts.WindowEpochs {
		window = history[len(history)-opts.WindowEpochs:]
	}
	if len(window) < 2 {
		return Report{}, ErrInsufficientData
	}

	report := Report{
		PoolID:       window[0].PoolID,
		WindowEpochs: len(window),
		FromEpoch:    window[0].Epoch,
		ToEpoch:      window[len(window)-1].Epoch,
	}

	report.PerformanceDirection, report.PerformancePct = performance(window, opts.NoiseFloorPct)
	report.DelegatorGrowthPct = delegatorGrowth(window)
	report.SaturationStability, report.SaturationCV = saturationStability(window, opts.VolatilityCVCutoff)

	efficiency := meanProductionRatio(window)
	report.EfficiencyPct = pctFromFloat(efficiency * 100)
	report.ROIEstimate = roiEstimate(efficiency, opts.Rewards)

	return report, nil
}

func checkOrdering(history []health.MetricSample) error {
	for i := 1; i < len(history); i++ {
		if history[i].Epoch <= history[i-1].Epoch {
			return fmt.Errorf("%w: epoch %d follows %d at position %d",
				ErrInvalidOrdering, history[i].Epoch, history[i-1].Epoch, i)
		}
	}
	return nil
}

// performance compares mean production ratio of the window's first half
// against its second half. Movement inside the noise floor reads as stable.
func performance(window []health.MetricSample, noiseFloorPct float64) (Direction, decimal.Decimal) {
	mid := len(window) / 2
	first := meanProductionRatio(window[:mid])
	second := meanProductionRatio(window[mid:])

	deltaPts := (second - first) * 100
	magnitude := pctFromFloat(deltaPts)

	switch {
	case deltaPts > noiseFloorPct:
		return DirectionImproving, magnitude
	case deltaPts < -noiseFloorPct:
		return DirectionDeclining, magnitude
	default:
		return DirectionStable, magnitude
	}
}

func delegatorGrowth(window []health.MetricSample) decimal.Decimal {
	start := window[0].DelegatorCount
	end := window[len(window)-1].DelegatorCount
	if start == 0 {
		return decimal.Zero
	}
	startDec := decimal.NewFromUint64(start)
	endDec := decimal.NewFromUint64(end)
	return endDec.Sub(startDec).Div(startDec).Mul(decimal.NewFromInt(100)).Round(4)
}

func saturationStability(window []health.MetricSample, cvCutoff float64) (Stability, decimal.Decimal) {
	mean := 0.0
	for _, s := range window {
		mean += s.SaturationRatio
	}
	mean /= float64(len(window))
	if mean == 0 {
		return StabilityStable, decimal.Zero
	}

	variance := 0.0
	for _, s := range window {
		d := s.SaturationRatio - mean
		variance += d * d
	}
	variance /= float64(len(window))

	cv := math.Sqrt(variance) / mean
	stability := StabilityStable
	if cv > cvCutoff {
		stability = StabilityVolatile
	}
	return stability, pctFromFloat(cv)
}

func meanProductionRatio(samples []health.MetricSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.ProductionRatio()
	}
	return sum / float64(len(samples))
}

// roiEstimate weights the configured base yield by observed production
// efficiency and the operator's margin.
func roiEstimate(efficiency float64, params RewardParams) decimal.Decimal {
	margin := decimal.NewFromFloat(params.PoolMarginPct).Div(decimal.NewFromInt(100))
	delegatorShare := decimal.NewFromInt(1).Sub(margin)
	if delegatorShare.IsNegative() {
		delegatorShare = decimal.Zero
	}
	return decimal.NewFromFloat(params.BaseAnnualYieldPct).
		Mul(decimal.NewFromFloat(efficiency)).
		Mul(delegatorShare).
		Round(4)
}

func pctFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(4)
}
