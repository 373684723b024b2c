// Package sheets reads and writes the content ledger stored in a Google spreadsheet.
//
// Ranges and cells use A1 notation including the tab name, e.g. 'Sheet1'!A:H.
// Values are read as formatted strings and written RAW so URLs are never
// reinterpreted by the spreadsheet.
package sheets
