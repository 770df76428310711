package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/config"
)

func TestSplitRewards(t *testing.T) {
	pool := config.PoolConfig{PoolID: "pool1abc", Name: "Alpha"}
	params := config.RewardsConfig{PoolMarginPct: 5.0, FixedCostADA: 340.0}

	// 1000 ADA total: 340 fixed + 5% of the remaining 660 = 373 for the
	// operator, 627 for delegators.
	rep := splitRewards(pool, 450, 1000, 100, params)

	if !rep.PoolShareADA.Equal(decimal.NewFromInt(373)) {
		t.Fatalf("pool share: want 373, got %s", rep.PoolShareADA)
	}
	if !rep.DelegatorShareADA.Equal(decimal.NewFromInt(627)) {
		t.Fatalf("delegator share: want 627, got %s", rep.DelegatorShareADA)
	}
	if !rep.AvgPerDelegatorADA.Equal(decimal.NewFromFloat(6.27)) {
		t.Fatalf("avg per delegator: want 6.27, got %s", rep.AvgPerDelegatorADA)
	}
	if !rep.EffectiveMarginPct.Equal(decimal.NewFromFloat(37.3)) {
		t.Fatalf("effective margin: want 37.3, got %s", rep.EffectiveMarginPct)
	}
}

func TestSplitRewardsBelowFixedCost(t *testing.T) {
	pool := config.PoolConfig{PoolID: "pool1abc", Name: "Alpha"}
	params := config.RewardsConfig{PoolMarginPct: 5.0, FixedCostADA: 340.0}

	// Total under the fixed cost: the operator takes everything, the
	// delegator share never goes negative.
	rep := splitRewards(pool, 450, 200, 50, params)

	if !rep.PoolShareADA.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("pool share: want 200, got %s", rep.PoolShareADA)
	}
	if !rep.DelegatorShareADA.IsZero() {
		t.Fatalf("delegator share must floor at zero, got %s", rep.DelegatorShareADA)
	}
	if !rep.AvgPerDelegatorADA.IsZero() {
		t.Fatalf("avg per delegator must be zero, got %s", rep.AvgPerDelegatorADA)
	}
}

func TestSplitRewardsNoDelegators(t *testing.T) {
	pool := config.PoolConfig{PoolID: "pool1abc", Name: "Alpha"}
	params := config.RewardsConfig{PoolMarginPct: 5.0, FixedCostADA: 340.0}

	rep := splitRewards(pool, 450, 1000, 0, params)
	if !rep.AvgPerDelegatorADA.IsZero() {
		t.Fatalf("zero delegators must not divide, got %s", rep.AvgPerDelegatorADA)
	}
}
