package pages

import (
	"context"
	"fmt"
	"time"

	"content-sync/core/ledger"
	"content-sync/core/pacing"
	"content-sync/core/retry"

	"go.uber.org/zap"
)

// LedgerLoader loads the parsed ledger.
type LedgerLoader interface {
	Load(ctx context.Context) (*ledger.Ledger, error)
}

var _ LedgerLoader = (*ledger.Book)(nil)

// PageResult is the outcome for one navigation page.
type PageResult struct {
	Target
	Visible bool   `json:"visible"`
	Error   string `json:"error,omitempty"`
}

// Result summarises one visibility update.
type Result struct {
	DryRun     bool         `json:"dry_run"`
	Activity   []Activity   `json:"activity"`
	Pages      []PageResult `json:"pages"`
	Attempted  int          `json:"attempted"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Visible    int          `json:"visible"`
	Hidden     int          `json:"hidden"`
}

// HasFailures reports whether any page update failed.
func (r *Result) HasFailures() bool {
	return r.Failed > 0
}

// Service computes category activity and applies navigation visibility.
type Service struct {
	cfg      Config
	targets  []Target
	ledger   LedgerLoader
	client   Client
	executor *retry.Executor
	pacer    pacing.Pacer
	logger   *zap.Logger
	now      func() time.Time
	cache    *activityCache
}

// NewService creates a Service. client may be nil when only dry runs and activity are used.
func NewService(cfg Config, ledger LedgerLoader, client Client, executor *retry.Executor, pacer pacing.Pacer, logger *zap.Logger) (*Service, error) {
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if executor == nil {
		executor = retry.NewExecutor(retry.DefaultPolicy(), logger)
	}
	if pacer == nil {
		pacer = pacing.None{}
	}

	s := &Service{
		cfg:      cfg,
		targets:  targets,
		ledger:   ledger,
		client:   client,
		executor: executor,
		pacer:    pacer,
		logger:   logger,
		now:      time.Now,
	}
	s.cache = newActivityCache(cfg.CacheTTL, func() time.Time { return s.now() })
	return s, nil
}

// Targets returns the configured pages.
func (s *Service) Targets() []Target {
	return s.targets
}

// Activity returns the current category activity, served from cache while fresh.
func (s *Service) Activity(ctx context.Context) ([]Activity, error) {
	snapshot, err := s.cache.get(ctx, func(ctx context.Context) ([]Activity, error) {
		l, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		return ComputeActivity(l.Entities, s.now(), s.cfg.threshold(), s.logger), nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot.Activity, nil
}

// Run loads the ledger and applies visibility to every configured page.
func (s *Service) Run(ctx context.Context, dryRun bool) (*Result, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.invalidate()
	return s.Apply(ctx, l.Entities, dryRun)
}

// Apply computes activity from entities and updates each page. A failing page is
// recorded in the result and does not stop the others.
func (s *Service) Apply(ctx context.Context, entities []ledger.Entity, dryRun bool) (*Result, error) {
	activity := ComputeActivity(entities, s.now(), s.cfg.threshold(), s.logger)
	byCategory := make(map[ledger.Category]Activity, len(activity))
	for _, a := range activity {
		byCategory[a.Category] = a
	}

	result := &Result{DryRun: dryRun, Activity: activity}
	if !dryRun && s.client == nil && len(s.targets) > 0 {
		return nil, fmt.Errorf("xmlrpc client not configured: %w", retry.ErrMissingCredentials)
	}

	for _, target := range s.targets {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("page update interrupted: %w", err)
		}

		visible := byCategory[target.Category].Visible()
		page := PageResult{Target: target, Visible: visible}
		result.Attempted++

		log := s.logger.With(
			zap.String("category", string(target.Category)),
			zap.Int("page_id", target.PageID),
			zap.Bool("visible", visible),
		)

		if dryRun {
			log.Info("Dry run, page visibility not changed")
		} else if err := s.edit(ctx, target, visible); err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("page update interrupted: %w", ctx.Err())
			}
			log.Error("Page visibility update failed", zap.Error(err))
			page.Error = err.Error()
			result.Failed++
			result.Pages = append(result.Pages, page)
			continue
		} else {
			log.Info("Page visibility updated")
		}

		result.Successful++
		if visible {
			result.Visible++
		} else {
			result.Hidden++
		}
		result.Pages = append(result.Pages, page)
	}

	return result, nil
}

func (s *Service) edit(ctx context.Context, target Target, visible bool) error {
	return s.executor.Run(ctx, editPageMethod, func(ctx context.Context) error {
		if err := s.pacer.Wait(ctx); err != nil {
			return err
		}
		return s.client.EditPage(ctx, PageEdit{
			PageID:       target.PageID,
			Title:        target.Title,
			Description:  target.Description,
			IsNavigation: visible,
		})
	})
}

func (s *Service) load(ctx context.Context) (*ledger.Ledger, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("ledger not configured")
	}
	return retry.Do(ctx, s.executor, "ledger.load", s.ledger.Load)
}
