package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/config"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/source"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/trend"
)

// poolAnalysis pairs one pool's trend report with the window it came from.
type poolAnalysis struct {
	Pool            config.PoolConfig `json:"pool"`
	Report          trend.Report      `json:"report"`
	Recommendations []string          `json:"recommendations"`
	history         []health.MetricSample
}

// Analyze produces trend reports for the requested pools over the last N
// epochs and optionally exports them as JSON, CSV, or a PNG chart.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	pools := a.targetPools(opts.PoolID)
	if len(pools) == 0 {
		return errors.New("no matching pools configured")
	}

	src, closeSrc, err := a.analysisSource(ctx, opts.FromArchive)
	if err != nil {
		return err
	}
	if closeSrc != nil {
		defer closeSrc()
	}

	trendOpts := a.Config.TrendOptions()
	if opts.Epochs > 0 {
		trendOpts.WindowEpochs = opts.Epochs
	}

	analyses := make([]poolAnalysis, 0, len(pools))
	for _, pool := range pools {
		analysis, err := a.analyzePool(ctx, src, pool, trendOpts)
		if err != nil {
			a.Logger.Warn().Err(err).Str("pool_id", pool.PoolID).Msg("analysis unavailable")
			continue
		}
		analyses = append(analyses, analysis)
	}
	if len(analyses) == 0 {
		return errors.New("no pool could be analyzed")
	}

	printAnalysisSummary(analyses)

	if opts.JSONPath != "" {
		if err := writeAnalysesJSON(opts.JSONPath, analyses); err != nil {
			return err
		}
	}
	if opts.CSVPath != "" {
		if err := writeAnalysesCSV(opts.CSVPath, analyses, a.Config.Export.MaxDataPoints); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeAnalysesPNG(opts.PNGPath, analyses); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) targetPools(poolID string) []config.PoolConfig {
	if poolID == "" {
		return a.Config.Pools
	}
	for _, pool := range a.Config.Pools {
		if pool.PoolID == poolID {
			return []config.PoolConfig{pool}
		}
	}
	return nil
}

// analysisSource picks the live API or the local archive, both behind the
// same Source interface.
func (a *App) analysisSource(ctx context.Context, fromArchive bool) (source.Source, func(), error) {
	if !fromArchive {
		return a.newSource(), nil, nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; cannot analyze from archive")
	}
	return source.NewArchive(store), closeStore, nil
}

func (a *App) analyzePool(ctx context.Context, src source.Source, pool config.PoolConfig, opts trend.Options) (poolAnalysis, error) {
	current, err := src.FetchCurrent(ctx, pool.PoolID)
	if err != nil {
		return poolAnalysis{}, err
	}

	window := uint64(opts.WindowEpochs)
	from := uint64(0)
	if current.Epoch+1 > window {
		from = current.Epoch + 1 - window
	}

	history, err := src.FetchHistory(ctx, pool.PoolID, from, current.Epoch)
	if err != nil {
		return poolAnalysis{}, err
	}
	if len(history) == 0 || history[len(history)-1].Epoch < current.Epoch {
		history = append(history, current)
	}

	rep, err := trend.Analyze(history, opts)
	if err != nil {
		return poolAnalysis{}, err
	}

	return poolAnalysis{
		Pool:            pool,
		Report:          rep,
		Recommendations: recommend(rep, current, a.Config.Thresholds.SaturationThreshold),
		history:         history,
	}, nil
}

func recommend(rep trend.Report, current health.MetricSample, saturationThreshold float64) []string {
	var recs []string
	if rep.EfficiencyPct.LessThan(decimal.NewFromInt(90)) {
		recs = append(recs, "block production below 90% of expectation; investigate producer node")
	}
	if rep.PerformanceDirection == trend.DirectionDeclining {
		recs = append(recs, "performance declining across the window")
	}
	if rep.SaturationStability == trend.StabilityVolatile {
		recs = append(recs, "saturation unstable; watch for large delegation movements")
	}
	if rep.DelegatorGrowthPct.IsNegative() {
		recs = append(recs, "delegator count shrinking; consider delegate outreach")
	}
	if current.SaturationRatio > saturationThreshold {
		recs = append(recs, "pool approaching oversaturation; monitor closely")
	}
	if len(recs) == 0 {
		recs = append(recs, "pool performance is good; maintain current operations")
	}
	return recs
}

func printAnalysisSummary(analyses []poolAnalysis) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pool\tEpochs\tDirection\tPerf Δpts\tDelegators %\tSaturation\tEfficiency\tROI est\tNotes")

	for _, analysis := range analyses {
		rep := analysis.Report
		fmt.Fprintf(
			writer,
			"%s\t%d-%d\t%s\t%s\t%s\t%s\t%s%%\t%s%%\t%d\n",
			analysis.Pool.Name,
			rep.FromEpoch,
			rep.ToEpoch,
			rep.PerformanceDirection,
			rep.PerformancePct.StringFixed(2),
			rep.DelegatorGrowthPct.StringFixed(2),
			rep.SaturationStability,
			rep.EfficiencyPct.StringFixed(1),
			rep.ROIEstimate.StringFixed(2),
			len(analysis.Recommendations),
		)
	}
	writer.Flush()

	for _, analysis := range analyses {
		fmt.Fprintf(os.Stdout, "\n%s:\n", analysis.Pool.Name)
		for i, rec := range analysis.Recommendations {
			fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, rec)
		}
	}
}

func writeAnalysesJSON(path string, analyses []poolAnalysis) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func writeAnalysesCSV(path string, analyses []poolAnalysis, maxRows int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"pool_id", "epoch", "production_ratio", "saturation_ratio", "delegator_count", "sync_lag_seconds", "response_latency_ms"}
	if err := writer.Write(header); err != nil {
		return err
	}

	rows := 0
	for _, analysis := range analyses {
		for _, sample := range analysis.history {
			if maxRows > 0 && rows >= maxRows {
				return writer.Error()
			}
			rows++
			record := []string{
				sample.PoolID,
				strconv.FormatUint(sample.Epoch, 10),
				strconv.FormatFloat(sample.ProductionRatio(), 'f', 4, 64),
				strconv.FormatFloat(sample.SaturationRatio, 'f', 4, 64),
				strconv.FormatUint(sample.DelegatorCount, 10),
				strconv.FormatFloat(sample.SyncLagSeconds, 'f', 0, 64),
				strconv.FormatInt(sample.ResponseLatencyMS, 10),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return writer.Error()
}

func writeAnalysesPNG(path string, analyses []poolAnalysis) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:           "Epoch",
			ValueFormatter: chart.IntValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Production ratio (%)",
			ValueFormatter: pctFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Saturation (%)",
			ValueFormatter: pctFormatter,
		},
	}

	for _, analysis := range analyses {
		x := make([]float64, len(analysis.history))
		production := make([]float64, len(analysis.history))
		saturation := make([]float64, len(analysis.history))
		for i, sample := range analysis.history {
			x[i] = float64(sample.Epoch)
			production[i] = sample.ProductionRatio() * 100
			saturation[i] = sample.SaturationRatio * 100
		}

		graph.Series = append(graph.Series,
			chart.ContinuousSeries{
				Name:    analysis.Pool.Name + " production",
				XValues: x,
				YValues: production,
			},
			chart.ContinuousSeries{
				Name:    analysis.Pool.Name + " saturation",
				XValues: x,
				YValues: saturation,
				YAxis:   chart.YAxisSecondary,
			},
		)
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// timestampedPath appends a unix timestamp before the extension.
func timestampedPath(dir, prefix string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.json", prefix, t.UTC().Unix()))
}
