package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// RenderOptions controls RenderStatus.
type RenderOptions struct {
	// NoColor disables ANSI colors.
	NoColor bool
	// ShowItems adds a row per work item that is not pending.
	ShowItems bool
	// Now is used for relative times. Defaults to time.Now.
	Now func() time.Time
}

var stateColors = map[model.ItemState]*color.Color{
	model.ItemSucceeded:  color.New(color.FgGreen),
	model.ItemFailed:     color.New(color.FgYellow),
	model.ItemSkipped:    color.New(color.FgRed),
	model.ItemInProgress: color.New(color.FgCyan),
}

// RenderStatus writes the totals table, the failure ledger and optionally the per-item states.
func RenderStatus(w io.Writer, snapshot *model.StatusSnapshot, opts RenderOptions) error {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	paint := func(state model.ItemState, s string) string {
		c, ok := stateColors[state]
		if !ok || opts.NoColor {
			return s
		}
		return c.Sprint(s)
	}

	counts := CountByState(snapshot)
	cp := snapshot.Checkpoint

	totals := table.NewWriter()
	totals.SetStyle(table.StyleLight)
	totals.SetTitle("Pipeline status")
	totals.AppendRows([]table.Row{
		{"Work items", humanize.Comma(int64(len(snapshot.Items)))},
		{"Enriched", paint(model.ItemSucceeded, humanize.Comma(int64(snapshot.Totals.TotalEnriched)))},
		{"Failed (retrying)", paint(model.ItemFailed, humanize.Comma(int64(counts[model.ItemFailed])))},
		{"Skipped", paint(model.ItemSkipped, humanize.Comma(int64(snapshot.Totals.TotalSkipped)))},
		{"Pending", humanize.Comma(int64(counts[model.ItemPending]))},
		{"Ledger entries", humanize.Comma(int64(snapshot.Totals.LedgerSize))},
		{"Processed (all runs)", humanize.Comma(int64(cp.TotalProcessed))},
		{"Errors (all runs)", humanize.Comma(int64(cp.TotalErrors))},
		{"Runs", humanize.Comma(int64(cp.Runs))},
		{"Cursor", cursor(cp)},
		{"Last updated", lastUpdated(cp, now())},
	})
	if cp.InProgress != "" {
		totals.AppendRow(table.Row{"Unresolved item", paint(model.ItemInProgress, cp.InProgress)})
	}
	if _, err := fmt.Fprintln(w, totals.Render()); err != nil {
		return err
	}

	if len(snapshot.Ledger) > 0 {
		ledger := table.NewWriter()
		ledger.SetStyle(table.StyleLight)
		ledger.SetTitle("Failure ledger")
		ledger.AppendHeader(table.Row{"ID", "Retries", "Kind", "Last attempt", "Error"})
		for _, entry := range snapshot.Ledger {
			kind := "permanent"
			if entry.Transient {
				kind = "transient"
			}
			ledger.AppendRow(table.Row{entry.ID, entry.Retries, kind, humanize.RelTime(entry.LastAttempt, now(), "ago", "from now"), entry.Error})
		}
		ledger.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(snapshot.Ledger))})
		if _, err := fmt.Fprintln(w, ledger.Render()); err != nil {
			return err
		}
	}

	if opts.ShowItems {
		items := table.NewWriter()
		items.SetStyle(table.StyleLight)
		items.SetTitle("Work items")
		items.AppendHeader(table.Row{"Rank", "ID", "State", "Retries"})
		for _, item := range snapshot.Items {
			if item.State == model.ItemPending {
				continue
			}
			items.AppendRow(table.Row{item.Rank, item.ID, paint(item.State, item.State.String()), item.Retries})
		}
		if _, err := fmt.Fprintln(w, items.Render()); err != nil {
			return err
		}
	}

	if len(snapshot.Orphans) > 0 {
		if _, err := fmt.Fprintf(w, "Ids in the ledger or skipped set without a work item: %v\n", snapshot.Orphans); err != nil {
			return err
		}
	}
	return nil
}

func cursor(cp model.CheckpointState) string {
	if cp.LastProcessedIndex < 0 {
		return "-"
	}
	return fmt.Sprintf("#%d (%s)", cp.LastProcessedIndex, cp.LastProcessedID)
}

func lastUpdated(cp model.CheckpointState, now time.Time) string {
	if cp.LastUpdated.IsZero() || cp.Runs == 0 {
		return "never"
	}
	return humanize.RelTime(cp.LastUpdated, now, "ago", "from now")
}
