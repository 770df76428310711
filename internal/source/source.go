package source

import (
	"context"
	"errors"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

// ErrUnreachable marks a pool whose backing node or API could not be
// queried. The service converts it into an Unknown verdict for the cycle.
var ErrUnreachable = errors.New("source: node unreachable")

// Source yields current and historical metric samples for a pool. Live
// node APIs, the local archive, and test doubles all sit behind this one
// interface; the core never branches on the concrete kind.
type Source interface {
	// FetchCurrent returns the newest sample for the pool, or an error
	// wrapping ErrUnreachable when no observation could be made.
	FetchCurrent(ctx context.Context, poolID string) (health.MetricSample, error)
	// FetchHistory returns samples for the inclusive epoch range, ordered
	// oldest to newest.
	FetchHistory(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error)
}
