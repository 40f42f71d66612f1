package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"xcri-import/internal/domain"
	"xcri-import/internal/export"
	"xcri-import/internal/importer"
)

// printSummary writes one row per feed.
func printSummary(w io.Writer, results []feedResult, now time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if isTerminal(w) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	tw.AppendHeader(table.Row{"Feed", "Courses", "Presentations", "Bookable", "Rejected", "Index"})

	for _, res := range results {
		rep := res.Report
		if res.Err != nil {
			tw.AppendRow(table.Row{rep.Feed, "-", "-", "-", "-", "not imported"})
			continue
		}

		courses := domain.GroupCourses(rep.Records)
		bookable := 0
		for _, c := range courses {
			for _, p := range c.Presentations {
				if p.Bookable(now) {
					bookable++
				}
			}
		}

		tw.AppendRow(table.Row{rep.Feed, len(courses), rep.Submitted(), bookable, rejectSummary(rep), indexStatus(rep)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// rejectSummary renders "2 (bad date=1, no identifier=1)".
func rejectSummary(rep importer.Report) string {
	if len(rep.Rejected) == 0 {
		return "0"
	}
	byReason := map[string]int{}
	for _, rej := range rep.Rejected {
		byReason[export.Reason(rej.Reason)]++
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", r, byReason[r]))
	}
	return fmt.Sprintf("%d (%s)", len(rep.Rejected), strings.Join(parts, ", "))
}

func indexStatus(rep importer.Report) string {
	switch {
	case rep.SubmitErr != nil:
		return "submit failed"
	case rep.CommitErr != nil:
		return "commit failed"
	default:
		return "ok"
	}
}
