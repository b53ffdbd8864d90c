package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// RenderSummary writes the end-of-run report printed by the run command.
func RenderSummary(w io.Writer, summary *model.RunSummary, opts RenderOptions) error {
	warn := func(s string) string {
		if opts.NoColor {
			return s
		}
		return color.New(color.FgYellow).Sprint(s)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + summary.RunID)
	t.AppendRows([]table.Row{
		{"Duration", summary.Duration().Round(time.Millisecond).String()},
		{"Selected", humanize.Comma(int64(summary.Selected))},
		{"Attempted", humanize.Comma(int64(summary.Attempted))},
		{"Succeeded", humanize.Comma(int64(summary.Succeeded))},
		{"Failed", humanize.Comma(int64(summary.Failed))},
		{"Skipped", humanize.Comma(int64(summary.Skipped))},
		{"Retry pass", fmt.Sprintf("%d/%d recovered", summary.RetryPassSucceeded, summary.RetryPassAttempted)},
		{"Remaining", humanize.Comma(int64(summary.Remaining))},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Enriched (all runs)", humanize.Comma(int64(summary.Cumulative.TotalEnriched))},
		{"Skipped (all runs)", humanize.Comma(int64(summary.Cumulative.TotalSkipped))},
		{"Ledger entries", humanize.Comma(int64(summary.Cumulative.LedgerSize))},
	})
	if summary.StoppedEarly {
		t.AppendRow(table.Row{"Stopped early", warn(summary.StopReason)})
	}
	if len(summary.FailedIDs) > 0 {
		t.AppendRow(table.Row{"Failed ids", warn(strings.Join(summary.FailedIDs, ", "))})
	}
	if len(summary.SkippedIDs) > 0 {
		t.AppendRow(table.Row{"Newly skipped", warn(strings.Join(summary.SkippedIDs, ", "))})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
