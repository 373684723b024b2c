package cmd

import (
	"fmt"
	"io"
	"time"

	"content-sync/core/journal"
	"content-sync/core/reconcile"
	"content-sync/feature/pages"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

// renderReport prints the phase counts of a run and its failed items.
func renderReport(w io.Writer, r *reconcile.Report) {
	title := "Sync " + r.RunID
	if r.DryRun {
		title += " (dry run)"
	}

	t := newTable(w, title)
	t.AppendHeader(table.Row{"Phase", "Attempted", "Successful", "Failed"})
	for _, s := range r.Phases {
		t.AppendRow(table.Row{s.Phase, s.Attempted, s.Successful, failedCell(s.Failed)})
	}
	t.AppendFooter(table.Row{"Ledger", fmt.Sprintf("%d valid", r.Ledger.Valid), fmt.Sprintf("%d skipped", r.Ledger.Skipped()), fmt.Sprintf("%d pending", r.Pending)})
	t.Render()

	if len(r.StaleIDs) > 0 {
		st := newTable(w, "Stale remote ids")
		st.AppendHeader(table.Row{"Row", "Title", "URL"})
		for _, s := range r.StaleIDs {
			st.AppendRow(table.Row{s.Key, s.Title, s.URL})
		}
		st.Render()
	}

	if errs := r.Errors(); len(errs) > 0 {
		et := newTable(w, "Failed items")
		et.AppendHeader(table.Row{"Row", "Title", "Kind", "Error"})
		for _, e := range errs {
			et.AppendRow(table.Row{e.Key, e.Title, e.Kind, e.Message})
		}
		et.Render()
	}

	if r.Error != "" {
		fmt.Fprintln(w, text.FgRed.Sprint("Run aborted: "+r.Error))
	}
}

// renderPages prints the visibility decided for each page.
func renderPages(w io.Writer, r *pages.Result) {
	title := "Navigation pages"
	if r.DryRun {
		title += " (dry run)"
	}

	activity := make(map[string]pages.Activity, len(r.Activity))
	for _, a := range r.Activity {
		activity[string(a.Category)] = a
	}

	t := newTable(w, title)
	t.AppendHeader(table.Row{"Category", "Page", "Posts", "Last post", "Days", "Navigation", "Error"})
	for _, p := range r.Pages {
		a := activity[string(p.Category)]
		days := "-"
		if a.DaysSince != nil {
			days = fmt.Sprint(*a.DaysSince)
		}
		nav := text.FgGreen.Sprint("visible")
		if !p.Visible {
			nav = text.FgYellow.Sprint("hidden")
		}
		t.AppendRow(table.Row{p.Category, p.PageID, a.Posts, a.LastPostRaw, days, nav, p.Error})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d ok", r.Successful), failedCell(r.Failed)})
	t.Render()
}

// renderRuns prints journal entries, newest first.
func renderRuns(w io.Writer, runs []journal.Run) {
	t := newTable(w, "Recent runs")
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Dry", "Created", "Updated", "Deleted", "Failed", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.DryRun,
			r.Created + r.Regenerated,
			r.Updated,
			r.Deleted,
			failedCell(r.Failed),
			r.Error,
		})
	}
	t.Render()
}

func failedCell(n int) string {
	if n == 0 {
		return "0"
	}
	return text.FgRed.Sprint(n)
}
