// Package pages keeps the site's category navigation in step with ledger activity.
//
// Each managed category owns a navigation page on the publishing service. A
// category is active while its most recent post is younger than the configured
// threshold; inactive or empty categories are hidden from navigation. Pages are
// updated through the service's XML-RPC microblog.editPage method.
//
// # Usage
//
//	svc := pages.NewService(cfg, book, client, executor, pacer, logger)
//	result, err := svc.Run(ctx, dryRun)
//
// The feature also exposes GET /pages/activity on the status server.
package pages
