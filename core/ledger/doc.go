// Package ledger turns raw spreadsheet rows into typed content entities.
//
// The ledger is a set of tabs with eight columns:
//
//	A Name | B Type | C Show | D Date | E Location | F Confirmed | G Link | H Remote URL
//
// ParseRow applies the validation rules to one row. Book reads every configured
// tab through a RowSource, collects valid entities and per-reason skip counts,
// and writes remote identifiers back into column H one cell at a time.
//
// # Section Headers
//
// Rows that only carry a name (month labels such as "January 2025") group the
// ledger visually. They are skipped silently and never counted.
package ledger
