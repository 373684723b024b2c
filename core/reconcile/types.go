package reconcile

import (
	"maps"
	"strings"
	"time"

	"content-sync/core/content"
	"content-sync/core/ledger"
	"content-sync/core/retry"
)

// PlaceholderPrefix starts every remote id produced by a dry-run create.
const PlaceholderPrefix = "dry-run:"

// IsPlaceholder reports whether id was produced by a dry-run create.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// StalePolicy decides what happens to a ledger remote id that no longer
// matches any remote post.
type StalePolicy string

const (
	// StaleClear empties the remote-id cell so the next run republishes the row.
	StaleClear StalePolicy = "clear"
	// StaleKeep only logs a warning.
	StaleKeep StalePolicy = "keep"
)

// Options controls a single run.
type Options struct {
	// DryRun logs mutations instead of executing them.
	DryRun bool

	// StalePolicy handles ids missing from the remote snapshot. Empty means StaleClear.
	StalePolicy StalePolicy

	// PageSize is the number of posts requested per snapshot page.
	PageSize int

	// RunID identifies the run. Generated when empty.
	RunID string
}

// DecisionKind is what a run decided to do with one item.
type DecisionKind string

const (
	DecisionCreate     DecisionKind = "create"
	DecisionRegenerate DecisionKind = "regenerate"
	DecisionUpdate     DecisionKind = "update"
	DecisionDelete     DecisionKind = "delete"
	DecisionClear      DecisionKind = "clear"
	DecisionNoop       DecisionKind = "noop"
)

// Decision records one planned mutation.
type Decision struct {
	// Kind is the planned action.
	Kind DecisionKind `json:"kind"`

	// Key is the ledger key ("Tab!Row"), empty for orphan deletes.
	Key string `json:"key,omitempty"`

	// Title is the ledger title, empty for orphan deletes.
	Title string `json:"title,omitempty"`

	// URL is the remote post the action targets. For creates it is the new id.
	URL string `json:"url,omitempty"`

	// Fields lists the replaced properties of an update.
	Fields []content.Field `json:"fields,omitempty"`
}

// PublicationState maps ledger keys to remote ids. It is never mutated in
// place; With returns an updated copy.
type PublicationState map[string]string

// NewPublicationState builds the state from the ids stored in the ledger.
func NewPublicationState(entities []ledger.Entity) PublicationState {
	state := make(PublicationState, len(entities))
	for _, e := range entities {
		if e.RemoteID != "" {
			state[e.Origin.Key()] = e.RemoteID
		}
	}
	return state
}

// With returns a copy of s where key maps to id. An empty id removes key.
func (s PublicationState) With(key, id string) PublicationState {
	next := make(PublicationState, len(s)+1)
	maps.Copy(next, s)
	if id == "" {
		delete(next, key)
	} else {
		next[key] = id
	}
	return next
}

// Lookup returns the remote id stored for key.
func (s PublicationState) Lookup(key string) (string, bool) {
	id, ok := s[key]
	return id, ok
}

// Referenced returns the set of ids in s.
func (s PublicationState) Referenced() map[string]struct{} {
	refs := make(map[string]struct{}, len(s))
	for _, id := range s {
		refs[id] = struct{}{}
	}
	return refs
}

// Phase names a reconciliation phase.
type Phase string

const (
	PhaseCreate     Phase = "create"
	PhaseRegenerate Phase = "regenerate"
	PhaseUpdate     Phase = "update"
	PhaseDelete     Phase = "delete"
)

// Phases lists the mutating phases in execution order.
var Phases = []Phase{PhaseCreate, PhaseRegenerate, PhaseUpdate, PhaseDelete}

// ItemError describes one failed item.
type ItemError struct {
	// Key is the ledger key, empty for orphan deletes.
	Key string `json:"key,omitempty"`

	// Title is the ledger title, empty for orphan deletes.
	Title string `json:"title,omitempty"`

	// URL is the remote post involved, if any.
	URL string `json:"url,omitempty"`

	// Kind is the classified error kind.
	Kind retry.Kind `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`
}

// PhaseStats counts the outcome of one phase.
type PhaseStats struct {
	// Phase is the phase these counts belong to.
	Phase Phase `json:"phase"`

	// Attempted counts items the phase tried to change.
	Attempted int `json:"attempted"`

	// Successful counts items changed (or logged in a dry run).
	Successful int `json:"successful"`

	// Failed counts items whose change failed.
	Failed int `json:"failed"`

	// Errors holds one entry per failed item.
	Errors []ItemError `json:"errors,omitempty"`
}

// StaleID is a ledger remote id that matches no remote post.
type StaleID struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the outcome of one run.
type Report struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended, including aborted runs.
	FinishedAt time.Time `json:"finished_at"`

	// DryRun is true when no mutation was executed.
	DryRun bool `json:"dry_run"`

	// Ledger holds the row classification counts.
	Ledger ledger.Stats `json:"ledger"`

	// Pending counts unpublished rows left for later runs.
	Pending int `json:"pending"`

	// Phases holds one entry per phase in execution order.
	Phases []*PhaseStats `json:"phases"`

	// Decisions lists every planned mutation in the order it was made.
	Decisions []Decision `json:"decisions,omitempty"`

	// StaleIDs lists ledger ids with no remote post.
	StaleIDs []StaleID `json:"stale_ids,omitempty"`

	// Orphans lists managed posts no row references.
	Orphans []string `json:"orphans,omitempty"`

	// Error is the run-level error, empty when the run completed.
	Error string `json:"error,omitempty"`
}

func newReport(runID string, dryRun bool, startedAt time.Time) *Report {
	r := &Report{RunID: runID, DryRun: dryRun, StartedAt: startedAt}
	for _, p := range Phases {
		r.Phases = append(r.Phases, &PhaseStats{Phase: p})
	}
	return r
}

// Phase returns the stats of phase p, nil when p is unknown.
func (r *Report) Phase(p Phase) *PhaseStats {
	for _, s := range r.Phases {
		if s.Phase == p {
			return s
		}
	}
	return nil
}

// Failed returns the number of failed items across all phases.
func (r *Report) Failed() int {
	total := 0
	for _, s := range r.Phases {
		total += s.Failed
	}
	return total
}

// HasFailures reports whether the run aborted or any item failed.
func (r *Report) HasFailures() bool {
	return r.Error != "" || r.Failed() > 0
}

// Errors returns the item errors of all phases.
func (r *Report) Errors() []ItemError {
	var all []ItemError
	for _, s := range r.Phases {
		all = append(all, s.Errors...)
	}
	return all
}
