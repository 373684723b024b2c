// Package reconcile makes the remote publishing service mirror the content ledger.
//
// A run reads the ledger, compares it with the remote posts and issues the
// creates, updates and deletes needed to converge. The ledger is the source of
// truth: remote edits to managed posts are overwritten and managed posts no
// ledger row references are removed.
//
// # Phases
//
// Phases run strictly in order, one goroutine, one write at a time:
//
// 1. Parse: every configured tab is loaded and validated. A load failure aborts the run.
//
// 2. Create: the single earliest row without a remote id is published and its
// id written back. Later rows wait for later runs.
//
// 3. Regenerate: posts whose slug is a bare number or short hex token are
// deleted and published again so they get a readable slug.
//
// 4. Update: the full remote snapshot is fetched and each published row is
// diffed against its post. Only changed properties are sent. Rows whose id
// is not in the snapshot are stale and handled by the StalePolicy.
//
// 5. Delete: managed posts referenced by no row are deleted. Posts in other
// categories are never touched.
//
// # Failure model
//
// Every network call goes through a retry.Executor and every write waits on a
// pacing.Pacer first. A failing item is recorded in its PhaseStats and the
// phase moves on. Only the ledger load and the snapshot fetch are fatal.
//
// # Dry run
//
// With Options.DryRun every mutating call is logged instead of executed.
// A dry-run create yields a "dry-run:<uuid>" placeholder id that later phases
// treat as published.
//
// # Usage Example
//
//	o := reconcile.NewOrchestrator(reconcile.Dependencies{
//	    Ledger:    ledger.NewBook(sheetsClient, cfg.Sheets.Tabs, log),
//	    Remote:    micropubClient,
//	    Formatter: content.NewFormatter(cfg.Sync.Content()),
//	    Executor:  retry.NewExecutor(cfg.Sync.Policy(), log),
//	    Pacer:     pacing.NewInterval(cfg.Sync.WriteInterval),
//	}, reconcile.Options{DryRun: true}, log)
//
//	report, err := o.Run(ctx)
package reconcile
