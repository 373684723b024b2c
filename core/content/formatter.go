package content

import (
	"strings"

	"content-sync/core/ledger"
)

// Config holds the formatting options.
type Config struct {
	// DefaultShow is used as the prefix for podcast rows with no show.
	DefaultShow string
	// KeynoteMarker in the flags column marks a keynote, matched case-insensitively.
	KeynoteMarker string
}

const keynotePrefix = "[Keynote] "

var titleEscaper = strings.NewReplacer(
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
)

// Formatter renders entities as markdown post bodies.
type Formatter struct {
	defaultShow   string
	keynoteMarker string
}

// NewFormatter creates a formatter.
func NewFormatter(cfg Config) *Formatter {
	return &Formatter{
		defaultShow:   strings.TrimSpace(cfg.DefaultShow),
		keynoteMarker: strings.ToLower(strings.TrimSpace(cfg.KeynoteMarker)),
	}
}

// Format returns the post body for entity.
func (f *Formatter) Format(entity *ledger.Entity) string {
	var b strings.Builder

	if f.isKeynote(entity.Flags) {
		b.WriteString(keynotePrefix)
	}

	if show := f.show(entity); show != "" {
		b.WriteString(show)
		b.WriteString(": ")
	}

	title := EscapeTitle(entity.Title)
	if entity.Link == "" {
		b.WriteString(title)
		return b.String()
	}

	b.WriteString("[")
	b.WriteString(title)
	b.WriteString("](")
	b.WriteString(entity.Link)
	b.WriteString(")")
	return b.String()
}

func (f *Formatter) isKeynote(flags string) bool {
	if f.keynoteMarker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(flags), f.keynoteMarker)
}

func (f *Formatter) show(entity *ledger.Entity) string {
	if entity.Show != "" {
		return entity.Show
	}
	if entity.Category == ledger.CategoryPodcast {
		return f.defaultShow
	}
	return ""
}

// EscapeTitle backslash-escapes the characters that would break a markdown link.
func EscapeTitle(title string) string {
	return titleEscaper.Replace(title)
}

// ExpectedCategory is the remote category for a ledger category.
func ExpectedCategory(c ledger.Category) string {
	return string(c)
}

// NormalizeWhitespace collapses whitespace runs to one space and trims.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
