package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/storage"
)

// Show prints recent persisted verdicts, or the alert audit log with
// --alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show verdicts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return showAlerts(ctx, store, opts.Limit)
	}

	records, err := store.ListRecentVerdicts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no verdicts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Cycle (UTC)\tPool\tStatus\tEpoch\tSaturation\tBlocks\tIssues")

	for _, record := range records {
		issues := make([]string, 0, len(record.Issues))
		for _, issue := range record.Issues {
			issues = append(issues, string(issue.Kind))
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%.1f%%\t%d/%d\t%s\n",
			record.CycleTS.UTC().Format(time.RFC3339),
			record.PoolID,
			record.Status,
			record.Sample.Epoch,
			record.Sample.SaturationRatio*100,
			record.Sample.BlocksProduced,
			record.Sample.BlocksExpected,
			strings.Join(issues, ","),
		)
	}

	writer.Flush()
	return nil
}

func showAlerts(ctx context.Context, store *storage.Store, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Emitted (UTC)\tCycle (UTC)\tPool\tStatus\tIssues")

	for _, alert := range alerts {
		issues := make([]string, 0, len(alert.Issues))
		for _, issue := range alert.Issues {
			issues = append(issues, string(issue.Kind))
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.CycleTS.UTC().Format(time.RFC3339),
			alert.PoolID,
			alert.Status,
			strings.Join(issues, ","),
		)
	}

	writer.Flush()
	return nil
}
