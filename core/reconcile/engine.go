package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content-sync/core/content"
	"content-sync/core/dates"
	"content-sync/core/ledger"
	"content-sync/core/micropub"
	"content-sync/core/pacing"
	"content-sync/core/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageSize = 100

var errUnparseableDate = errors.New("unparseable date")

// Orchestrator runs the reconciliation phases against one ledger and one remote.
type Orchestrator struct {
	ledger    LedgerStore
	remote    micropub.Client
	formatter *content.Formatter
	detector  *content.Detector
	executor  *retry.Executor
	pacer     pacing.Pacer
	newID     func() string
	now       func() time.Time
	opts      Options
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. Missing optional dependencies get defaults.
func NewOrchestrator(deps Dependencies, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	formatter := deps.Formatter
	if formatter == nil {
		formatter = content.NewFormatter(content.Config{})
	}

	executor := deps.Executor
	if executor == nil {
		executor = retry.NewExecutor(retry.DefaultPolicy(), logger)
	}

	// Dry runs never write, so they never wait
	var pacer pacing.Pacer = pacing.None{}
	if deps.Pacer != nil && !opts.DryRun {
		pacer = deps.Pacer
	}

	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	if opts.StalePolicy == "" {
		opts.StalePolicy = StaleClear
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	return &Orchestrator{
		ledger:    deps.Ledger,
		remote:    deps.Remote,
		formatter: formatter,
		detector:  content.NewDetector(formatter, logger),
		executor:  executor,
		pacer:     pacer,
		newID:     newID,
		now:       time.Now,
		opts:      opts,
		logger:    logger,
	}
}

// run carries the mutable state of one Run call. assigned holds the ids
// published by this run, which the remote listing may not show yet.
type run struct {
	state    PublicationState
	report   *Report
	retired  map[string]struct{}
	assigned map[string]struct{}
	logger   *zap.Logger
}

func (r *run) assign(key, id string) {
	r.state = r.state.With(key, id)
	r.assigned[id] = struct{}{}
}

func (r *run) decide(d Decision) {
	r.report.Decisions = append(r.report.Decisions, d)
}

// Run executes one reconciliation. The report is returned even when the run
// aborts; the error is set only for run-level failures.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	runID := o.opts.RunID
	if runID == "" {
		runID = o.newID()
	}

	report := newReport(runID, o.opts.DryRun, o.now().UTC())
	log := o.logger.With(zap.String("run_id", runID), zap.Bool("dry_run", o.opts.DryRun))
	log.Info("Sync run started")

	err := o.run(ctx, report, log)
	report.FinishedAt = o.now().UTC()

	if err != nil {
		report.Error = err.Error()
		log.Error("Sync run aborted", zap.Error(err))
		return report, err
	}

	fields := []zap.Field{zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt))}
	for _, s := range report.Phases {
		fields = append(fields, zap.String(string(s.Phase), fmt.Sprintf("%d/%d", s.Successful, s.Attempted)))
	}
	fields = append(fields, zap.Int("failed", report.Failed()), zap.Int("pending", report.Pending))
	log.Info("Sync run finished", fields...)

	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, report *Report, log *zap.Logger) error {
	// 1. Parse and validate every tab
	book, err := retry.Do(ctx, o.executor, "ledger.load", o.ledger.Load)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	report.Ledger = book.Stats
	log.Info("Ledger loaded",
		zap.Int("rows", book.Stats.Total),
		zap.Int("valid", book.Stats.Valid),
		zap.Int("skipped", book.Stats.Skipped()),
	)

	r := &run{
		state:    NewPublicationState(book.Entities),
		report:   report,
		retired:  make(map[string]struct{}),
		assigned: make(map[string]struct{}),
		logger:   log,
	}
	entities := book.Entities

	// 2. Publish the earliest unpublished row
	if err := o.createPhase(ctx, r, entities); err != nil {
		return err
	}

	// 3. Republish posts with generated slugs
	if err := o.regeneratePhase(ctx, r, entities); err != nil {
		return err
	}

	// 4. Diff published rows against the remote snapshot
	snapshot, err := o.fetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching remote snapshot: %w", err)
	}
	log.Info("Remote snapshot fetched", zap.Int("posts", len(snapshot)))

	if err := o.updatePhase(ctx, r, entities, snapshot); err != nil {
		return err
	}

	// 5. Remove managed posts no row references
	return o.deletePhase(ctx, r, snapshot)
}

func (o *Orchestrator) createPhase(ctx context.Context, r *run, entities []ledger.Entity) error {
	stats := r.report.Phase(PhaseCreate)

	pending := pendingCreates(entities, r.state)
	r.report.Pending = len(pending)
	if len(pending) == 0 {
		return nil
	}

	if err := interrupted(ctx); err != nil {
		return err
	}

	target := pending[0]
	key := target.Origin.Key()
	stats.Attempted++

	published, ok := dates.Parse(target.Date)
	if !ok {
		o.fail(r, stats, target, "", fmt.Errorf("%w %q", errUnparseableDate, target.Date))
		return nil
	}

	id, err := o.publish(ctx, r, target, published)
	if id != "" {
		r.assign(key, id)
	}
	r.decide(Decision{Kind: DecisionCreate, Key: key, Title: target.Title, URL: id})
	if err != nil {
		o.fail(r, stats, target, id, err)
		return nil
	}

	stats.Successful++
	r.report.Pending--
	r.logger.Info("Created post",
		zap.String("row", key),
		zap.String("title", target.Title),
		zap.String("url", id),
		zap.Int("pending", r.report.Pending),
	)
	return nil
}

func (o *Orchestrator) regeneratePhase(ctx context.Context, r *run, entities []ledger.Entity) error {
	stats := r.report.Phase(PhaseRegenerate)

	for i := range entities {
		e := &entities[i]
		key := e.Origin.Key()

		id, ok := r.state.Lookup(key)
		if !ok || id != e.RemoteID || !NeedsSlugRegeneration(id, e.Title) {
			continue
		}
		if err := interrupted(ctx); err != nil {
			return err
		}

		stats.Attempted++
		r.decide(Decision{Kind: DecisionRegenerate, Key: key, Title: e.Title, URL: id})

		published, ok := dates.Parse(e.Date)
		if !ok {
			o.fail(r, stats, e, id, fmt.Errorf("%w %q", errUnparseableDate, e.Date))
			continue
		}

		if o.opts.DryRun {
			placeholder := PlaceholderPrefix + o.newID()
			r.logger.Info("Dry run: would regenerate post",
				zap.String("row", key),
				zap.String("title", e.Title),
				zap.String("url", id),
			)
			r.retired[id] = struct{}{}
			r.assign(key, placeholder)
			stats.Successful++
			continue
		}

		if err := o.deletePost(ctx, id); err != nil {
			o.fail(r, stats, e, id, err)
			continue
		}
		r.retired[id] = struct{}{}

		newID, err := o.publish(ctx, r, e, published)
		if newID != "" {
			r.assign(key, newID)
		}
		if err != nil {
			o.fail(r, stats, e, id, err)
			continue
		}

		stats.Successful++
		r.logger.Info("Regenerated post",
			zap.String("row", key),
			zap.String("title", e.Title),
			zap.String("old_url", id),
			zap.String("url", newID),
		)
	}
	return nil
}

func (o *Orchestrator) updatePhase(ctx context.Context, r *run, entities []ledger.Entity, snapshot []micropub.Post) error {
	stats := r.report.Phase(PhaseUpdate)
	index := indexSnapshot(snapshot)

	for i := range entities {
		e := &entities[i]
		key := e.Origin.Key()

		id, ok := r.state.Lookup(key)
		if !ok || IsPlaceholder(id) {
			continue
		}
		if err := interrupted(ctx); err != nil {
			return err
		}

		post, found := index[id]
		if !found {
			if _, ok := r.assigned[id]; ok {
				r.logger.Info("Post not yet listed",
					zap.String("row", key),
					zap.String("url", id),
				)
				continue
			}
			o.handleStale(ctx, r, stats, e, id)
			continue
		}

		changes, _ := o.detector.Detect(e, post)
		if changes.IsEmpty() {
			continue
		}

		stats.Attempted++
		r.decide(Decision{Kind: DecisionUpdate, Key: key, Title: e.Title, URL: id, Fields: changes.Fields})

		if o.opts.DryRun {
			r.logger.Info("Dry run: would update post",
				zap.String("row", key),
				zap.String("url", id),
				zap.Any("fields", changes.Fields),
			)
			stats.Successful++
			continue
		}

		err := o.exec(ctx, "micropub.update", func(ctx context.Context) error {
			return o.remote.Update(ctx, id, changes.Changes())
		})
		if err != nil {
			o.fail(r, stats, e, id, err)
			continue
		}

		stats.Successful++
		r.logger.Info("Updated post",
			zap.String("row", key),
			zap.String("url", id),
			zap.Any("fields", changes.Fields),
		)
	}
	return nil
}

// handleStale applies the stale policy to a row whose id has no remote post.
func (o *Orchestrator) handleStale(ctx context.Context, r *run, stats *PhaseStats, e *ledger.Entity, id string) {
	key := e.Origin.Key()
	r.report.StaleIDs = append(r.report.StaleIDs, StaleID{Key: key, Title: e.Title, URL: id})

	if o.opts.StalePolicy == StaleKeep {
		r.logger.Warn("Remote id not found, keeping it",
			zap.String("row", key),
			zap.String("title", e.Title),
			zap.String("url", id),
		)
		return
	}

	stats.Attempted++
	r.decide(Decision{Kind: DecisionClear, Key: key, Title: e.Title, URL: id})

	if o.opts.DryRun {
		r.logger.Info("Dry run: would clear stale remote id",
			zap.String("row", key),
			zap.String("url", id),
		)
		r.state = r.state.With(key, "")
		stats.Successful++
		return
	}

	if err := o.writeBack(ctx, e.Origin, ""); err != nil {
		o.fail(r, stats, e, id, err)
		return
	}

	r.state = r.state.With(key, "")
	stats.Successful++
	r.logger.Warn("Cleared stale remote id",
		zap.String("row", key),
		zap.String("title", e.Title),
		zap.String("url", id),
	)
}

func (o *Orchestrator) deletePhase(ctx context.Context, r *run, snapshot []micropub.Post) error {
	stats := r.report.Phase(PhaseDelete)

	for _, post := range findOrphans(snapshot, r.state.Referenced(), r.retired) {
		if err := interrupted(ctx); err != nil {
			return err
		}

		stats.Attempted++
		r.report.Orphans = append(r.report.Orphans, post.URL)
		r.decide(Decision{Kind: DecisionDelete, URL: post.URL})

		if o.opts.DryRun {
			r.logger.Info("Dry run: would delete orphaned post",
				zap.String("url", post.URL),
				zap.String("category", post.Category),
			)
			stats.Successful++
			continue
		}

		if err := o.deletePost(ctx, post.URL); err != nil {
			o.fail(r, stats, nil, post.URL, err)
			continue
		}

		stats.Successful++
		r.logger.Info("Deleted orphaned post",
			zap.String("url", post.URL),
			zap.String("category", post.Category),
		)
	}
	return nil
}

// publish creates the post for e and writes its id back. A non-empty id is
// returned whenever the post exists remotely, even if the write-back failed.
func (o *Orchestrator) publish(ctx context.Context, r *run, e *ledger.Entity, published time.Time) (string, error) {
	entry := micropub.Entry{
		Content:   o.formatter.Format(e),
		Category:  content.ExpectedCategory(e.Category),
		Published: published,
	}

	if o.opts.DryRun {
		id := PlaceholderPrefix + o.newID()
		r.logger.Info("Dry run: would create post",
			zap.String("row", e.Origin.Key()),
			zap.String("category", entry.Category),
			zap.String("content", entry.Content),
			zap.String("published", dates.Format(published)),
		)
		return id, nil
	}

	id, err := paced(ctx, o, "micropub.create", func(ctx context.Context) (string, error) {
		return o.remote.Create(ctx, entry)
	})
	if err != nil {
		return "", err
	}

	if err := o.writeBack(ctx, e.Origin, id); err != nil {
		return id, fmt.Errorf("post %s created but not recorded: %w", id, err)
	}
	return id, nil
}

func (o *Orchestrator) writeBack(ctx context.Context, origin ledger.Origin, id string) error {
	if o.opts.DryRun {
		return nil
	}
	return o.exec(ctx, "ledger.write", func(ctx context.Context) error {
		return o.ledger.WriteRemoteID(ctx, origin, id)
	})
}

// deletePost deletes url, treating an already deleted post as success.
func (o *Orchestrator) deletePost(ctx context.Context, url string) error {
	return o.exec(ctx, "micropub.delete", func(ctx context.Context) error {
		err := o.remote.Delete(ctx, url)
		if errors.Is(err, micropub.ErrAlreadyGone) {
			return nil
		}
		return err
	})
}

func (o *Orchestrator) fetchSnapshot(ctx context.Context) ([]micropub.Post, error) {
	return micropub.FetchAll(ctx, o.opts.PageSize, func(ctx context.Context, offset, limit int) ([]micropub.Post, error) {
		return retry.Do(ctx, o.executor, "micropub.query", func(ctx context.Context) ([]micropub.Post, error) {
			return o.remote.Query(ctx, offset, limit)
		})
	})
}

func (o *Orchestrator) exec(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := paced(ctx, o, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// paced runs op through the executor, waiting on the pacer before every attempt.
func paced[T any](ctx context.Context, o *Orchestrator, name string, op func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, o.executor, name, func(ctx context.Context) (T, error) {
		if err := o.pacer.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		return op(ctx)
	})
}

// fail records a failed item. e is nil for orphan deletes.
func (o *Orchestrator) fail(r *run, stats *PhaseStats, e *ledger.Entity, url string, err error) {
	kind := o.executor.KindOf(err)
	if errors.Is(err, errUnparseableDate) {
		kind = retry.KindData
	}

	item := ItemError{URL: url, Kind: kind, Message: err.Error()}
	fields := []zap.Field{
		zap.String("phase", string(stats.Phase)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if e != nil {
		item.Key = e.Origin.Key()
		item.Title = e.Title
		fields = append(fields, zap.String("row", item.Key), zap.String("title", e.Title))
	}
	if url != "" {
		fields = append(fields, zap.String("url", url))
	}

	stats.Failed++
	stats.Errors = append(stats.Errors, item)
	r.logger.Error("Item failed", fields...)
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}
