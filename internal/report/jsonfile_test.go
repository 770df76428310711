package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

func TestJSONFileExport(t *testing.T) {
	dir := t.TempDir()
	cycleAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rep := CycleReport{
		CycleAt:     cycleAt,
		CompletedAt: cycleAt.Add(3 * time.Second),
		Pools: []PoolReport{
			{
				PoolID:   "pool1abc",
				PoolName: "Test Pool",
				Verdict: health.Verdict{
					PoolID: "pool1abc",
					Status: health.StatusHealthy,
				},
				TrendUnavailable: "trend: at least 2 samples required",
			},
		},
	}

	exporter := NewJSONFile(dir, zerolog.Nop())
	if err := exporter.Export(context.Background(), rep); err != nil {
		t.Fatalf("export: %v", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("cycle_report_%d.json", cycleAt.Unix()))
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}

	var decoded CycleReport
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(decoded.Pools) != 1 || decoded.Pools[0].PoolID != "pool1abc" {
		t.Fatalf("round trip lost pool data: %+v", decoded)
	}
	if decoded.Pools[0].Trend != nil {
		t.Fatalf("omitted trend must decode as nil, got %+v", decoded.Pools[0].Trend)
	}
	if decoded.Pools[0].TrendUnavailable == "" {
		t.Fatal("trend-unavailable reason lost in round trip")
	}
}

func TestJSONFileExportCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	exporter := NewJSONFile(dir, zerolog.Nop())

	rep := CycleReport{CycleAt: time.Now().UTC()}
	if err := exporter.Export(context.Background(), rep); err != nil {
		t.Fatalf("export into missing directory: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestJSONFileExportRequiresDirectory(t *testing.T) {
	exporter := NewJSONFile("", zerolog.Nop())
	if err := exporter.Export(context.Background(), CycleReport{}); err == nil {
		t.Fatal("missing output directory must fail")
	}
}
