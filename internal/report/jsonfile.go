package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// JSONFile writes each cycle report as a timestamped JSON document under
// a configured directory.
type JSONFile struct {
	dir    string
	logger zerolog.Logger
}

// NewJSONFile constructs the file exporter.
func NewJSONFile(dir string, logger zerolog.Logger) *JSONFile {
	return &JSONFile{
		dir:    dir,
		logger: logger.With().Str("component", "report_jsonfile").Logger(),
	}
}

// Export serialises the report to <dir>/cycle_report_<unix>.json.
func (e *JSONFile) Export(_ context.Context, rep CycleReport) error {
	if e.dir == "" {
		return fmt.Errorf("report output directory not configured")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	payload, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cycle report: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("cycle_report_%d.json", rep.CycleAt.UTC().Unix()))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cycle report: %w", err)
	}

	e.logger.Debug().Str("path", path).Int("pools", len(rep.Pools)).Msg("cycle report written")
	return nil
}

var _ Exporter = (*JSONFile)(nil)
