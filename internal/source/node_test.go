package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pools/pool1abc/metrics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("project_id"); got != "test-project" {
			t.Errorf("missing project_id header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"epoch": 450,
			"sync_lag_seconds": 12.5,
			"saturation": 0.63,
			"blocks_minted": 3,
			"blocks_estimated": 4,
			"delegators_count": 812
		}`))
	}))
	defer server.Close()

	api := NewNodeAPI(NodeAPIOptions{
		BaseURL:   server.URL,
		ProjectID: "test-project",
		Timeout:   5 * time.Second,
	}, zerolog.Nop())

	sample, err := api.FetchCurrent(context.Background(), "pool1abc")
	if err != nil {
		t.Fatalf("fetch current: %v", err)
	}
	if sample.PoolID != "pool1abc" {
		t.Fatalf("pool id not stamped onto sample, got %q", sample.PoolID)
	}
	if sample.Epoch != 450 || sample.SaturationRatio != 0.63 {
		t.Fatalf("payload not decoded: %+v", sample)
	}
	if sample.BlocksProduced != 3 || sample.BlocksExpected != 4 {
		t.Fatalf("block counts not decoded: %+v", sample)
	}
	if sample.ResponseLatencyMS < 0 {
		t.Fatalf("adapter must measure latency when API omits it, got %d", sample.ResponseLatencyMS)
	}
	if sample.CollectedAt.IsZero() {
		t.Fatal("collection timestamp not set")
	}
}

func TestFetchCurrentServerErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	api := NewNodeAPI(NodeAPIOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := api.FetchCurrent(context.Background(), "pool1abc")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("5xx must wrap ErrUnreachable, got %v", err)
	}
}

func TestFetchCurrentConnectionRefusedIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	api := NewNodeAPI(NodeAPIOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := api.FetchCurrent(context.Background(), "pool1abc")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("network failure must wrap ErrUnreachable, got %v", err)
	}
}

func TestFetchCurrentClientErrorIsNotUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid project token"}`))
	}))
	defer server.Close()

	api := NewNodeAPI(NodeAPIOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := api.FetchCurrent(context.Background(), "pool1abc")
	if err == nil {
		t.Fatal("expected an error for 403")
	}
	if errors.Is(err, ErrUnreachable) {
		t.Fatalf("auth failure is a config problem, not unreachability: %v", err)
	}
}

func TestFetchCurrentRequiresConfig(t *testing.T) {
	api := NewNodeAPI(NodeAPIOptions{}, zerolog.Nop())
	if _, err := api.FetchCurrent(context.Background(), "pool1abc"); err == nil {
		t.Fatal("missing base url must fail")
	}

	api = NewNodeAPI(NodeAPIOptions{BaseURL: "http://localhost:1"}, zerolog.Nop())
	if _, err := api.FetchCurrent(context.Background(), ""); err == nil {
		t.Fatal("missing pool id must fail")
	}
}

func TestFetchHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pools/pool1abc/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to"); from != "448" || to != "450" {
			t.Errorf("unexpected range %s..%s", from, to)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"epoch": 448, "saturation": 0.60, "blocks_minted": 4, "blocks_estimated": 4},
			{"epoch": 449, "saturation": 0.61, "blocks_minted": 3, "blocks_estimated": 4},
			{"epoch": 450, "saturation": 0.63, "blocks_minted": 3, "blocks_estimated": 4}
		]`))
	}))
	defer server.Close()

	api := NewNodeAPI(NodeAPIOptions{BaseURL: server.URL}, zerolog.Nop())

	samples, err := api.FetchHistory(context.Background(), "pool1abc", 448, 450)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0].Epoch != 448 || samples[2].Epoch != 450 {
		t.Fatalf("samples out of order: %d..%d", samples[0].Epoch, samples[2].Epoch)
	}
	for _, s := range samples {
		if s.PoolID != "pool1abc" {
			t.Fatalf("pool id not stamped onto history sample: %+v", s)
		}
	}
}

func TestFetchHistoryRejectsInvertedRange(t *testing.T) {
	api := NewNodeAPI(NodeAPIOptions{BaseURL: "http://localhost:1"}, zerolog.Nop())
	if _, err := api.FetchHistory(context.Background(), "pool1abc", 450, 448); err == nil {
		t.Fatal("inverted epoch range must fail before any request")
	}
}
