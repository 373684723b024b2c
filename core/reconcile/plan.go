package reconcile

import (
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"content-sync/core/dates"
	"content-sync/core/ledger"
	"content-sync/core/micropub"
)

// maxHexSlug is the longest hex token treated as a generated slug.
const maxHexSlug = 8

// pendingCreates returns the entities without a remote id, earliest date
// first. Unparseable dates sort last; ties keep ledger order.
func pendingCreates(entities []ledger.Entity, state PublicationState) []*ledger.Entity {
	type candidate struct {
		entity *ledger.Entity
		date   time.Time
		ok     bool
	}

	var candidates []candidate
	for i := range entities {
		e := &entities[i]
		if _, published := state.Lookup(e.Origin.Key()); published {
			continue
		}
		date, ok := dates.Parse(e.Date)
		candidates = append(candidates, candidate{entity: e, date: date, ok: ok})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.date.Before(b.date)
	})

	out := make([]*ledger.Entity, len(candidates))
	for i, c := range candidates {
		out[i] = c.entity
	}
	return out
}

// NeedsSlugRegeneration reports whether the last path segment of id, without
// its extension, is all digits or a short hex token containing a digit. A slug
// equal to the slugified title is the post's real slug and is left alone.
func NeedsSlugRegeneration(id, title string) bool {
	if id == "" || IsPlaceholder(id) {
		return false
	}

	p := id
	if u, err := url.Parse(id); err == nil {
		p = u.Path
	}

	slug := path.Base(strings.TrimRight(p, "/"))
	if ext := path.Ext(slug); ext != "" {
		slug = strings.TrimSuffix(slug, ext)
	}
	if slug == "" || slug == "." || slug == "/" {
		return false
	}
	if strings.EqualFold(slug, Slugify(title)) {
		return false
	}

	if isDigits(slug) {
		return true
	}
	return len(slug) <= maxHexSlug && isHex(slug) && strings.ContainsAny(slug, "0123456789")
}

// Slugify lowercases s and joins its letter and digit runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for _, r := range strings.ToLower(s) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// IsManaged reports whether a remote category is one the ledger owns.
func IsManaged(category string) bool {
	return ledger.Category(category).IsValid()
}

// findOrphans returns the managed posts whose URL is neither referenced nor retired.
func findOrphans(snapshot []micropub.Post, referenced, retired map[string]struct{}) []micropub.Post {
	var orphans []micropub.Post
	seen := make(map[string]struct{})
	for _, post := range snapshot {
		if post.URL == "" || !IsManaged(post.Category) {
			continue
		}
		if _, ok := referenced[post.URL]; ok {
			continue
		}
		if _, ok := retired[post.URL]; ok {
			continue
		}
		if _, dup := seen[post.URL]; dup {
			continue
		}
		seen[post.URL] = struct{}{}
		orphans = append(orphans, post)
	}
	return orphans
}

// indexSnapshot maps post URLs to posts.
func indexSnapshot(snapshot []micropub.Post) map[string]*micropub.Post {
	index := make(map[string]*micropub.Post, len(snapshot))
	for i := range snapshot {
		index[snapshot[i].URL] = &snapshot[i]
	}
	return index
}
