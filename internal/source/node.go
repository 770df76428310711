package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

const (
	poolMetricsPathFmt = "/pools/%s/metrics"
	poolHistoryPathFmt = "/pools/%s/history"
)

// NodeAPIOptions parameterise the pool metrics API adapter.
type NodeAPIOptions struct {
	BaseURL   string
	ProjectID string
	Timeout   time.Duration
	UserAgent string
}

// NodeAPI fetches pool metrics from a Blockfrost-style HTTP API.
type NodeAPI struct {
	opts    NodeAPIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewNodeAPI constructs the HTTP source adapter.
func NewNodeAPI(opts NodeAPIOptions, logger zerolog.Logger) *NodeAPI {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &NodeAPI{
		opts:    opts,
		logger:  logger.With().Str("component", "node_api").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchCurrent retrieves the pool's newest metrics. The adapter measures
// round-trip latency itself so the sample carries it even when the API
// omits the field.
func (n *NodeAPI) FetchCurrent(ctx context.Context, poolID string) (health.MetricSample, error) {
	if n.baseURL == "" {
		return health.MetricSample{}, errors.New("node api base url not configured")
	}
	if poolID == "" {
		return health.MetricSample{}, errors.New("pool id required")
	}

	started := time.Now()
	var payload poolMetricsResponse
	if err := n.getJSON(ctx, fmt.Sprintf(poolMetricsPathFmt, poolID), &payload); err != nil {
		return health.MetricSample{}, err
	}
	latency := time.Since(started).Milliseconds()

	sample := payload.toSample(poolID, time.Now().UTC())
	if sample.ResponseLatencyMS == 0 {
		sample.ResponseLatencyMS = latency
	}
	return sample, nil
}

// FetchHistory retrieves per-epoch samples for the inclusive range, as
// ordered by the API (oldest first).
func (n *NodeAPI) FetchHistory(ctx context.Context, poolID string, fromEpoch, toEpoch uint64) ([]health.MetricSample, error) {
	if n.baseURL == "" {
		return nil, errors.New("node api base url not configured")
	}
	if poolID == "" {
		return nil, errors.New("pool id required")
	}
	if fromEpoch > toEpoch {
		return nil, fmt.Errorf("invalid epoch range %d..%d", fromEpoch, toEpoch)
	}

	path := fmt.Sprintf("%s?from=%d&to=%d", fmt.Sprintf(poolHistoryPathFmt, poolID), fromEpoch, toEpoch)
	var payload []poolMetricsResponse
	if err := n.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	collected := time.Now().UTC()
	samples := make([]health.MetricSample, 0, len(payload))
	for _, entry := range payload {
		samples = append(samples, entry.toSample(poolID, collected))
	}
	return samples, nil
}

func (n *NodeAPI) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if n.opts.ProjectID != "" {
		req.Header.Set("project_id", n.opts.ProjectID)
	}
	if ua := strings.TrimSpace(n.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode pool metrics: %w", err)
	}
	return nil
}

type poolMetricsResponse struct {
	Epoch             uint64  `json:"epoch"`
	SyncLagSeconds    float64 `json:"sync_lag_seconds"`
	SaturationRatio   float64 `json:"saturation"`
	BlocksProduced    uint64  `json:"blocks_minted"`
	BlocksExpected    uint64  `json:"blocks_estimated"`
	ResponseLatencyMS int64   `json:"response_latency_ms"`
	DelegatorCount    uint64  `json:"delegators_count"`
}

func (r poolMetricsResponse) toSample(poolID string, collectedAt time.Time) health.MetricSample {
	return health.MetricSample{
		PoolID:            poolID,
		Epoch:             r.Epoch,
		SyncLagSeconds:    r.SyncLagSeconds,
		SaturationRatio:   r.SaturationRatio,
		BlocksProduced:    r.BlocksProduced,
		BlocksExpected:    r.BlocksExpected,
		ResponseLatencyMS: r.ResponseLatencyMS,
		DelegatorCount:    r.DelegatorCount,
		CollectedAt:       collectedAt,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	if status == http.StatusNotFound || status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: pool api status %d", ErrUnreachable, status)
	}
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("pool api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("pool api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("pool api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("pool api error (%d)", status)
}

var _ Source = (*NodeAPI)(nil)
