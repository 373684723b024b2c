package journal

import (
	"time"
	"unicode/utf8"

	"content-sync/core/reconcile"
)

// Run is one journal entry.
type Run struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	DryRun      bool       `json:"dry_run"`
	Valid       int        `json:"valid"`
	Skipped     int        `json:"skipped"`
	Pending     int        `json:"pending"`
	Created     int        `json:"created"`
	Regenerated int        `json:"regenerated"`
	Updated     int        `json:"updated"`
	Deleted     int        `json:"deleted"`
	Stale       int        `json:"stale"`
	Failed      int        `json:"failed"`
	Error       string     `gorm:"size:1024" json:"error,omitempty"`
	ReportKey   string     `gorm:"size:255" json:"report_key,omitempty"`
	Errors      []RunError `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"errors,omitempty"`
}

// TableName overrides the default table name.
func (Run) TableName() string {
	return "sync_runs"
}

// RunError is one failed item of a run.
type RunError struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	RunID   string `gorm:"index;size:64" json:"-"`
	Phase   string `gorm:"size:32" json:"phase"`
	Key     string `gorm:"size:255" json:"key,omitempty"`
	Title   string `gorm:"size:512" json:"title,omitempty"`
	URL     string `gorm:"size:512" json:"url,omitempty"`
	Kind    string `gorm:"size:32" json:"kind"`
	Message string `gorm:"type:text" json:"message"`
}

// TableName overrides the default table name.
func (RunError) TableName() string {
	return "sync_run_errors"
}

// HasFailures reports whether the run aborted or any item failed.
func (r Run) HasFailures() bool {
	return r.Error != "" || r.Failed > 0
}

// FromReport converts a report into a journal entry.
func FromReport(report *reconcile.Report, reportKey string) Run {
	run := Run{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		DryRun:     report.DryRun,
		Valid:      report.Ledger.Valid,
		Skipped:    report.Ledger.Skipped(),
		Pending:    report.Pending,
		Stale:      len(report.StaleIDs),
		Failed:     report.Failed(),
		Error:      truncate(report.Error, 1024),
		ReportKey:  reportKey,
	}

	for _, s := range report.Phases {
		switch s.Phase {
		case reconcile.PhaseCreate:
			run.Created = s.Successful
		case reconcile.PhaseRegenerate:
			run.Regenerated = s.Successful
		case reconcile.PhaseUpdate:
			run.Updated = s.Successful
		case reconcile.PhaseDelete:
			run.Deleted = s.Successful
		}

		for _, e := range s.Errors {
			run.Errors = append(run.Errors, RunError{
				RunID:   report.RunID,
				Phase:   string(s.Phase),
				Key:     e.Key,
				Title:   truncate(e.Title, 512),
				URL:     truncate(e.URL, 512),
				Kind:    string(e.Kind),
				Message: e.Message,
			})
		}
	}

	return run
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
