package reconcile

import (
	"fmt"
	"strings"
	"time"

	"content-sync/core/content"
	"content-sync/core/retry"
)

// Config holds configuration for sync runs.
type Config struct {
	// DryRun logs mutations instead of executing them.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// WriteInterval is the minimum spacing between two writes.
	WriteInterval time.Duration `mapstructure:"write_interval" default:"1500ms"`
	// MaxAttempts bounds attempts per network call, including the first.
	MaxAttempts int `mapstructure:"max_attempts" default:"4"`
	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration `mapstructure:"base_delay" default:"1s"`
	// MaxDelay caps every backoff.
	MaxDelay time.Duration `mapstructure:"max_delay" default:"30s"`
	// Jitter is the maximum extra fraction added to a backoff.
	Jitter float64 `mapstructure:"jitter" default:"0.1"`
	// DefaultShow prefixes podcast rows with no show.
	DefaultShow string `mapstructure:"default_show" default:"Software Defined Interviews"`
	// KeynoteMarker in the flags column marks a keynote.
	KeynoteMarker string `mapstructure:"keynote_marker" default:"keynote"`
	// StaleIDs is the stale id policy, "clear" or "keep".
	StaleIDs string `mapstructure:"stale_ids" default:"clear"`
}

// Policy returns the retry policy.
func (c Config) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay
	}
	if c.Jitter >= 0 {
		p.Jitter = c.Jitter
	}
	return p
}

// Content returns the formatting options.
func (c Config) Content() content.Config {
	return content.Config{
		DefaultShow:   c.DefaultShow,
		KeynoteMarker: c.KeynoteMarker,
	}
}

// StalePolicy parses StaleIDs. Empty means StaleClear.
func (c Config) StalePolicy() (StalePolicy, error) {
	switch p := StalePolicy(strings.ToLower(strings.TrimSpace(c.StaleIDs))); p {
	case "":
		return StaleClear, nil
	case StaleClear, StaleKeep:
		return p, nil
	default:
		return "", fmt.Errorf("invalid stale id policy %q, want %q or %q", c.StaleIDs, StaleClear, StaleKeep)
	}
}
