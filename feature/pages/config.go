package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"content-sync/core/ledger"
)

// Config holds configuration for navigation page management.
type Config struct {
	// Endpoint is the XML-RPC endpoint.
	Endpoint string `mapstructure:"endpoint" default:"https://micro.blog/xmlrpc"`
	// Username is the account name sent with every call.
	Username string `mapstructure:"username" default:""`
	// Token is the app token used as the XML-RPC password.
	Token string `mapstructure:"token" default:""`
	// Pages maps categories to page ids, e.g. "Podcast=897417,Video=897489".
	Pages []string `mapstructure:"pages" default:""`
	// SiteURL is the public site root used to build page descriptions.
	SiteURL string `mapstructure:"site_url" default:""`
	// InactiveDays is the age of the latest post after which a category is hidden.
	InactiveDays int `mapstructure:"inactive_days" default:"120"`
	// CacheTTL bounds how long computed activity is served from memory.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"5m"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
}

// Target is one navigation page bound to a category.
type Target struct {
	Category    ledger.Category `json:"category"`
	PageID      int             `json:"page_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}

// Targets parses Pages into targets in managed category order.
func (c Config) Targets() ([]Target, error) {
	ids := make(map[ledger.Category]int, len(c.Pages))
	for _, raw := range c.Pages {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, id, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid page mapping %q, want Category=ID", raw)
		}
		category := ledger.NormalizeCategory(name)
		if !category.IsValid() {
			return nil, fmt.Errorf("invalid page mapping %q: unknown category %q", raw, name)
		}
		pageID, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil || pageID <= 0 {
			return nil, fmt.Errorf("invalid page mapping %q: bad page id", raw)
		}
		if _, dup := ids[category]; dup {
			return nil, fmt.Errorf("duplicate page mapping for %s", category)
		}
		ids[category] = pageID
	}

	targets := make([]Target, 0, len(ids))
	for _, category := range ledger.Categories {
		id, ok := ids[category]
		if !ok {
			continue
		}
		targets = append(targets, Target{
			Category:    category,
			PageID:      id,
			Title:       string(category),
			Description: c.pageURL(category),
		})
	}
	return targets, nil
}

// Enabled reports whether any page is configured.
func (c Config) Enabled() bool {
	for _, p := range c.Pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func (c Config) pageURL(category ledger.Category) string {
	if c.SiteURL == "" {
		return ""
	}
	return strings.TrimRight(c.SiteURL, "/") + "/" + strings.ToLower(string(category)) + "/"
}

func (c Config) threshold() int {
	if c.InactiveDays <= 0 {
		return 120
	}
	return c.InactiveDays
}
