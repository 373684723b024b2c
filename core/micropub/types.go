package micropub

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyGone is returned by Delete when the post no longer exists.
var ErrAlreadyGone = errors.New("post already deleted")

// Post is a published remote object.
type Post struct {
	// URL identifies the post.
	URL string `json:"url"`
	// Content is the markdown source.
	Content string `json:"content"`
	// Category is the first category, empty when the post has none.
	Category string `json:"category"`
	// Categories holds every category as returned.
	Categories []string `json:"categories,omitempty"`
	// Published is the raw published timestamp.
	Published string `json:"published"`
}

// Entry is a post to create.
type Entry struct {
	Content   string
	Category  string
	Published time.Time
}

// Changes holds the properties to replace on an existing post. Nil fields are left untouched.
type Changes struct {
	Content   *string
	Category  *string
	Published *time.Time
}

// IsEmpty reports whether no property would be replaced.
func (c Changes) IsEmpty() bool {
	return c.Content == nil && c.Category == nil && c.Published == nil
}

// Client is the remote publishing protocol.
type Client interface {
	// Query returns one page of posts starting at offset.
	Query(ctx context.Context, offset, limit int) ([]Post, error)
	// Create publishes an entry and returns its URL.
	Create(ctx context.Context, entry Entry) (string, error)
	// Update replaces the given properties of the post at url.
	Update(ctx context.Context, url string, changes Changes) error
	// Delete removes the post at url.
	Delete(ctx context.Context, url string) error
}

// PageFunc fetches one page of posts.
type PageFunc func(ctx context.Context, offset, limit int) ([]Post, error)

// FetchAll pages through posts until a short page signals the end.
func FetchAll(ctx context.Context, pageSize int, page PageFunc) ([]Post, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var all []Post
	var firstOfPrevious string
	for offset := 0; ; offset += pageSize {
		posts, err := page(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}

		if len(posts) > 0 && offset > 0 && posts[0].URL == firstOfPrevious {
			return nil, errNotAdvancing
		}
		if len(posts) > 0 {
			firstOfPrevious = posts[0].URL
		}

		all = append(all, posts...)
		if len(posts) < pageSize {
			return all, nil
		}
	}
}
