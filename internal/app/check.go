package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/report"
	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/service"
)

// Check runs one health cycle across all configured pools and prints a
// summary. No scheduler, no persistence: the one-shot equivalent of a
// single monitoring tick.
func (a *App) Check(ctx context.Context) error {
	if len(a.Config.Pools) == 0 {
		return errors.New("no pools configured")
	}

	svc := service.New(a.Config, nil, a.newSource(), nil, nil, nil, nil, nil, a.Logger)

	cycleAt := time.Now().UTC()
	rep := svc.CollectOnce(ctx, cycleAt)

	printCycleSummary(rep)

	unhealthy := 0
	for _, pool := range rep.Pools {
		if pool.Verdict.Status == health.StatusUnhealthy || pool.Verdict.Status == health.StatusUnknown {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		fmt.Fprintf(os.Stdout, "\n%d pool(s) need attention:\n", unhealthy)
		for _, pool := range rep.Pools {
			for _, issue := range pool.Verdict.Issues {
				fmt.Fprintf(os.Stdout, "  %s [%s] %s\n", pool.PoolName, issue.Severity, issue.Detail)
			}
		}
	} else {
		fmt.Fprintln(os.Stdout, "\nall pools healthy")
	}

	return nil
}

func printCycleSummary(rep report.CycleReport) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pool\tStatus\tSync Lag\tSaturation\tBlocks\tLatency\tIssues")

	for _, pool := range rep.Pools {
		sample := pool.Verdict.Sample
		if pool.Verdict.Status == health.StatusUnknown {
			fmt.Fprintf(writer, "%s\t%s\t-\t-\t-\t-\t%d\n", pool.PoolName, pool.Verdict.Status, len(pool.Verdict.Issues))
			continue
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%.0fs\t%.1f%%\t%d/%d\t%dms\t%d\n",
			pool.PoolName,
			pool.Verdict.Status,
			sample.SyncLagSeconds,
			sample.SaturationRatio*100,
			sample.BlocksProduced,
			sample.BlocksExpected,
			sample.ResponseLatencyMS,
			len(pool.Verdict.Issues),
		)
	}

	writer.Flush()
}
