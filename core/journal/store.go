package journal

import (
	"context"
	"errors"
	"fmt"

	"content-sync/core/database"
	"content-sync/core/reconcile"

	"gorm.io/gorm"
)

// ErrRunNotFound is returned by Get when no run has the given id.
var ErrRunNotFound = errors.New("run not found")

// DefaultLimit is used by Recent when no positive limit is given.
const DefaultLimit = 20

var runColumns = []string{
	"id", "started_at", "finished_at", "dry_run", "valid", "skipped", "pending",
	"created", "regenerated", "updated", "deleted", "stale", "failed", "error", "report_key",
}

// Store reads and writes journal entries.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the journal tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Run{}, &RunError{}); err != nil {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}

// Save records report. reportKey is the archive object key, empty when not archived.
func (s *Store) Save(ctx context.Context, report *reconcile.Report, reportKey string) (*Run, error) {
	run := FromReport(report, reportKey)
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return &run, nil
}

// Recent returns the latest runs, newest first, without their errors.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var runs []Run
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its errors.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Preload("Errors").First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return &run, nil
}

// Verify returns the journal columns missing from the live schema.
func (s *Store) Verify(ctx context.Context) ([]string, error) {
	return database.MissingColumns(s.db.WithContext(ctx), Run{}.TableName(), runColumns)
}
