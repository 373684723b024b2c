package reconcile

import (
	"context"

	"content-sync/core/content"
	"content-sync/core/ledger"
	"content-sync/core/micropub"
	"content-sync/core/pacing"
	"content-sync/core/retry"
)

// LedgerStore is the ledger side of a run. ledger.Book implements it.
type LedgerStore interface {
	// Load reads and validates every tab.
	Load(ctx context.Context) (*ledger.Ledger, error)

	// WriteRemoteID stores url in the row at origin. An empty url clears the cell.
	WriteRemoteID(ctx context.Context, origin ledger.Origin, url string) error
}

// Dependencies bundles the collaborators of an Orchestrator.
type Dependencies struct {
	// Ledger reads rows and writes remote ids back.
	Ledger LedgerStore

	// Remote is the publishing service.
	Remote micropub.Client

	// Formatter renders post bodies.
	Formatter *content.Formatter

	// Executor retries network calls. Defaults to retry.DefaultPolicy.
	Executor *retry.Executor

	// Pacer spaces writes. Ignored in dry runs.
	Pacer pacing.Pacer

	// NewID generates run ids and dry-run placeholders. Defaults to uuid.NewString.
	NewID func() string
}

var _ LedgerStore = (*ledger.Book)(nil)
