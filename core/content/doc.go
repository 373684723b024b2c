// Package content turns ledger entities into post bodies and decides which
// properties of a published post differ from what the ledger says.
//
// Formatting is pure. Detection compares three properties only: content
// (after whitespace normalisation), category and the published instant.
package content
