package pages

import (
	"time"

	"content-sync/core/dates"
	"content-sync/core/ledger"

	"go.uber.org/zap"
)

// Activity summarises the posts of one category.
type Activity struct {
	Category ledger.Category `json:"category"`
	Posts    int             `json:"posts"`
	// LastPost is the latest parseable date, nil when there is none.
	LastPost *time.Time `json:"last_post,omitempty"`
	// LastPostRaw is the ledger text of LastPost.
	LastPostRaw string `json:"last_post_raw,omitempty"`
	// DaysSince is nil when LastPost is nil.
	DaysSince *int `json:"days_since,omitempty"`
	Inactive  bool `json:"inactive"`
}

// Visible reports whether the category page belongs in navigation.
func (a Activity) Visible() bool {
	return !a.Inactive && a.Posts > 0
}

// ComputeActivity returns one Activity per managed category, in display order.
// Rows with unparseable dates count as posts but never set LastPost.
func ComputeActivity(entities []ledger.Entity, now time.Time, inactiveDays int, logger *zap.Logger) []Activity {
	if logger == nil {
		logger = zap.NewNop()
	}

	byCategory := make(map[ledger.Category]*Activity, len(ledger.Categories))
	for _, c := range ledger.Categories {
		byCategory[c] = &Activity{Category: c}
	}

	for i := range entities {
		e := &entities[i]
		a, ok := byCategory[e.Category]
		if !ok {
			continue
		}
		a.Posts++

		at, ok := dates.Parse(e.Date)
		if !ok {
			logger.Warn("Skipping row for activity, invalid date",
				zap.String("row", e.Origin.Key()),
				zap.String("date", e.Date),
			)
			continue
		}
		if a.LastPost == nil || at.After(*a.LastPost) {
			a.LastPost = &at
			a.LastPostRaw = e.Date
		}
	}

	out := make([]Activity, 0, len(ledger.Categories))
	for _, c := range ledger.Categories {
		a := byCategory[c]
		if a.LastPost == nil {
			a.Inactive = true
		} else {
			days := int(now.Sub(*a.LastPost).Hours() / 24)
			a.DaysSince = &days
			a.Inactive = days >= inactiveDays
		}
		out = append(out, *a)
	}
	return out
}
