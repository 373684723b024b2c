package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"content-sync/core/journal"
	"content-sync/core/storage"

	"go.uber.org/zap"
)

var (
	// ErrJournalDisabled is returned when no database is configured.
	ErrJournalDisabled = errors.New("journal disabled")
	// ErrArchiveDisabled is returned when report archiving is off.
	ErrArchiveDisabled = errors.New("report archive disabled")
	// ErrReportNotArchived is returned for runs saved without a report key.
	ErrReportNotArchived = errors.New("report not archived")
)

// Health is the result of a health check.
type Health struct {
	Status         string   `json:"status"`
	Journal        string   `json:"journal"`
	Archive        string   `json:"archive"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Service reads runs from the journal and reports from the archive.
type Service struct {
	store   *journal.Store
	archive *storage.Archive
	logger  *zap.Logger
}

// NewService creates a Service. store and archive may be nil.
func NewService(store *journal.Store, archive *storage.Archive, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, archive: archive, logger: logger}
}

// Health checks the journal schema.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Journal: "disabled", Archive: "disabled"}
	if s.archive != nil {
		h.Archive = "enabled"
	}
	if s.store == nil {
		return h
	}

	missing, err := s.store.Verify(ctx)
	switch {
	case err != nil:
		h.Status = "degraded"
		h.Journal = "error"
		h.Error = err.Error()
	case len(missing) > 0:
		h.Status = "degraded"
		h.Journal = "schema_mismatch"
		h.MissingColumns = missing
	default:
		h.Journal = "ok"
	}
	return h
}

// Runs returns the latest runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]journal.Run, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	return s.store.Recent(ctx, limit)
}

// Run returns one run.
func (s *Service) Run(ctx context.Context, id string) (*journal.Run, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	return s.store.Get(ctx, id)
}

// Report returns the archived report of a run as raw JSON.
func (s *Service) Report(ctx context.Context, id string) (json.RawMessage, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	run, err := s.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.ReportKey == "" {
		return nil, fmt.Errorf("run %s: %w", id, ErrReportNotArchived)
	}

	var report json.RawMessage
	if err := s.archive.GetJSON(ctx, run.ReportKey, &report); err != nil {
		return nil, err
	}
	return report, nil
}
