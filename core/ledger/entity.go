package ledger

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the content type of a ledger row.
type Category string

const (
	CategoryPodcast       Category = "Podcast"
	CategoryVideo         Category = "Video"
	CategoryBlog          Category = "Blog"
	CategoryPresentations Category = "Presentations"
	CategoryGuest         Category = "Guest"
)

// Categories lists the managed categories in display order.
var Categories = []Category{
	CategoryPodcast,
	CategoryVideo,
	CategoryBlog,
	CategoryPresentations,
	CategoryGuest,
}

var categoryAliases = map[string]Category{
	"Presentation": CategoryPresentations,
}

// IsValid reports whether c is one of the managed categories.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory folds case and applies singular aliases ("presentation" -> "Presentations").
// The result is not guaranteed to be valid.
func NormalizeCategory(raw string) Category {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	titled := cases.Title(language.English).String(raw)
	if alias, ok := categoryAliases[titled]; ok {
		return alias
	}
	return Category(titled)
}

// Column positions in a ledger row.
const (
	ColTitle = iota
	ColCategory
	ColShow
	ColDate
	ColLocation
	ColFlags
	ColLink
	ColRemoteID

	columnCount
)

// RemoteIDColumn is the sheet column holding remote identifiers.
const RemoteIDColumn = "H"

// Origin locates a row in the ledger.
type Origin struct {
	// Tab is the sheet (tab) name.
	Tab string `json:"tab"`
	// Row is the 1-based sheet row number.
	Row int `json:"row"`
}

// Key identifies the row within a run, e.g. "Sheet1!42".
func (o Origin) Key() string {
	return fmt.Sprintf("%s!%d", o.Tab, o.Row)
}

func (o Origin) String() string {
	return o.Key()
}

// Entity is one publishable ledger row.
type Entity struct {
	Title    string   `json:"title"`
	Category Category `json:"category"`
	Show     string   `json:"show,omitempty"`
	Date     string   `json:"date"`
	Location string   `json:"location,omitempty"`
	Flags    string   `json:"flags,omitempty"`
	Link     string   `json:"link,omitempty"`
	RemoteID string   `json:"remote_id,omitempty"`
	Origin   Origin   `json:"origin"`
}
