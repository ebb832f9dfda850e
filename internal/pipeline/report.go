package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report renders the batch's final state as a table: one row per job
// with its terminal status and, for failures, the last diagnostic.
// The output is enough to decide what to retry without digging
// through logs.
func Report(views []View) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "SOURCE", "STATUS", "ATTEMPTS", "ERROR"})

	for i, v := range views {
		errText := v.LastError
		if v.Status != StatusFailed {
			errText = ""
		}
		attempts := v.Attempts
		if v.Status != StatusFailed {
			attempts = 0
			for _, n := range v.StageAttempts {
				attempts += n
			}
		}
		tw.AppendRow(table.Row{i + 1, truncate(v.Name, 48), string(v.Status), attempts, truncate(errText, 72)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

// Summary is a one-line aggregate, e.g. "5 done, 1 failed, 6 total".
func Summary(counts map[Status]int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	return fmt.Sprintf("%d done, %d failed, %d total",
		counts[StatusDone], counts[StatusFailed], total)
}

// truncate shortens to max runes, never splitting a multi-byte
// character mid-sequence.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
