package source

import (
	"context"
	"fmt"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

// SampleLister is the slice of the storage layer the archive source needs.
type SampleLister interface {
	LatestSample(ctx context.Context, poolID string) (health.MetricSample, error)
	ListSamples(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error)
}

// Archive serves samples recorded by previous cycles. It backs offline
// analysis when no live API is configured and history windows larger than
// the API retains.
type Archive struct {
	store SampleLister
}

// NewArchive wraps a sample store as a Source.
func NewArchive(store SampleLister) *Archive {
	return &Archive{store: store}
}

func (a *Archive) FetchCurrent(ctx context.Context, poolID string) (health.MetricSample, error) {
	sample, err := a.store.LatestSample(ctx, poolID)
	if err != nil {
		return health.MetricSample{}, fmt.Errorf("%w: archive: %v", ErrUnreachable, err)
	}
	return sample, nil
}

func (a *Archive) FetchHistory(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error) {
	if fromEpoch > toEpoch {
		return nil, fmt.Errorf("invalid epoch range %d..%d", fromEpoch, toEpoch)
	}
	return a.store.ListSamples(ctx, poolID, fromEpoch, toEpoch)
}

var _ Source = (*Archive)(nil)
