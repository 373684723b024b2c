package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RowSource reads and writes a spreadsheet-like store addressed in A1 notation.
type RowSource interface {
	// ReadRange returns the rows of a range in document order.
	ReadRange(ctx context.Context, a1Range string) ([][]string, error)
	// UpdateCell overwrites a single cell.
	UpdateCell(ctx context.Context, a1Cell, value string) error
}

// Stats counts how rows were classified during a load.
type Stats struct {
	// Total counts every row except section and table headers.
	Total           int              `json:"total"`
	Valid           int              `json:"valid"`
	SectionHeaders  int              `json:"section_headers"`
	EmptyRows       int              `json:"empty_rows"`
	MissingFields   int              `json:"missing_fields"`
	InvalidCategory int              `json:"invalid_category"`
	ByCategory      map[Category]int `json:"by_category"`
}

// Skipped returns the number of counted rows that were not valid.
func (s Stats) Skipped() int {
	return s.Total - s.Valid
}

func (s *Stats) record(entity *Entity, v Verdict) {
	if v.Reason == ReasonSectionHeader {
		s.SectionHeaders++
		return
	}

	s.Total++
	switch v.Reason {
	case ReasonNone:
		s.Valid++
		if s.ByCategory == nil {
			s.ByCategory = make(map[Category]int)
		}
		s.ByCategory[entity.Category]++
	case ReasonEmptyRow:
		s.EmptyRows++
	case ReasonMissingFields:
		s.MissingFields++
	case ReasonInvalidCategory:
		s.InvalidCategory++
	}
}

// Ledger is the parsed content of all tabs.
type Ledger struct {
	// Entities holds the valid rows in tab then row order.
	Entities []Entity
	Stats    Stats
}

// Book reads and updates the ledger tabs through a RowSource.
type Book struct {
	source RowSource
	tabs   []string
	logger *zap.Logger
}

// NewBook creates a book over the given tabs.
func NewBook(source RowSource, tabs []string, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{source: source, tabs: tabs, logger: logger}
}

// Tabs returns the configured tab names.
func (b *Book) Tabs() []string {
	return b.tabs
}

// Load reads every tab and parses its rows.
func (b *Book) Load(ctx context.Context) (*Ledger, error) {
	ledger := &Ledger{Stats: Stats{ByCategory: make(map[Category]int)}}

	for _, tab := range b.tabs {
		rows, err := b.ReadTab(ctx, tab)
		if err != nil {
			return nil, err
		}
		b.parseTab(tab, rows, ledger)
	}

	return ledger, nil
}

// ReadTab reads the raw rows of one tab.
func (b *Book) ReadTab(ctx context.Context, tab string) ([][]string, error) {
	rows, err := b.source.ReadRange(ctx, rangeRef(tab, "A", RemoteIDColumn))
	if err != nil {
		return nil, fmt.Errorf("failed to read tab %q: %w", tab, err)
	}
	return rows, nil
}

// parseTab parses the rows of one tab into ledger.
func (b *Book) parseTab(tab string, rows [][]string, ledger *Ledger) {
	for i, cells := range rows {
		origin := Origin{Tab: tab, Row: i + 1}

		if i == 0 && len(cells) > 0 && strings.TrimSpace(cells[ColTitle]) == "Name" {
			continue
		}

		entity, verdict := ParseRow(cells, origin)
		ledger.Stats.record(entity, verdict)

		switch {
		case verdict.Valid:
			ledger.Entities = append(ledger.Entities, *entity)
		case verdict.Reason == ReasonMissingFields || verdict.Reason == ReasonInvalidCategory:
			b.logger.Warn("Skipping ledger row",
				zap.String("row", origin.Key()),
				zap.String("title", entity.Title),
				zap.String("reason", string(verdict.Reason)),
				zap.String("detail", verdict.Detail),
			)
		}
	}
}

// WriteRemoteID stores url in the remote-id cell of the row at origin.
// An empty url clears the cell.
func (b *Book) WriteRemoteID(ctx context.Context, origin Origin, url string) error {
	cell := cellRef(origin.Tab, RemoteIDColumn, origin.Row)
	if err := b.source.UpdateCell(ctx, cell, url); err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	return nil
}

// quoteTab quotes a tab name for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func rangeRef(tab, from, to string) string {
	return fmt.Sprintf("%s!%s:%s", quoteTab(tab), from, to)
}

func cellRef(tab, column string, row int) string {
	return fmt.Sprintf("%s!%s%d", quoteTab(tab), column, row)
}
