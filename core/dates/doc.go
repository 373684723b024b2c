// Package dates normalises the hand-typed dates found in the content ledger.
//
// Ledger cells are entered by people, so the same day shows up as "1/9/2025",
// "01/09/2025", "January 9th, 2025" or "2025-01-09". Parse accepts exactly
// those shapes, in that order, and rejects everything else.
//
// # Noon UTC
//
// Every parsed date is pinned to 12:00:00 UTC of its calendar day. Remote
// services render timestamps in the site's local zone; noon keeps the
// rendered day identical for any zone within ±11 hours.
package dates
