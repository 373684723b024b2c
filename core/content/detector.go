package content

import (
	"time"

	"content-sync/core/dates"
	"content-sync/core/ledger"
	"content-sync/core/micropub"

	"go.uber.org/zap"
)

// Field names a post property that can drift from the ledger.
type Field string

const (
	FieldContent   Field = "content"
	FieldCategory  Field = "category"
	FieldPublished Field = "published"
)

// ChangeSet lists the properties to replace and their new values.
type ChangeSet struct {
	Fields    []Field   `json:"fields"`
	Content   string    `json:"content,omitempty"`
	Category  string    `json:"category,omitempty"`
	Published time.Time `json:"published,omitempty"`
}

// IsEmpty reports whether nothing changed.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Fields) == 0
}

// Has reports whether f is part of the change set.
func (c ChangeSet) Has(f Field) bool {
	for _, field := range c.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// Changes converts the change set into a partial update.
func (c ChangeSet) Changes() micropub.Changes {
	var out micropub.Changes
	if c.Has(FieldContent) {
		content := c.Content
		out.Content = &content
	}
	if c.Has(FieldCategory) {
		category := c.Category
		out.Category = &category
	}
	if c.Has(FieldPublished) {
		published := c.Published
		out.Published = &published
	}
	return out
}

// Detector compares entities with their published posts.
type Detector struct {
	formatter *Formatter
	logger    *zap.Logger
}

// NewDetector creates a detector.
func NewDetector(formatter *Formatter, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{formatter: formatter, logger: logger}
}

// Detect returns the properties of post that differ from entity. The second
// result is false when post is nil.
func (d *Detector) Detect(entity *ledger.Entity, post *micropub.Post) (ChangeSet, bool) {
	var changes ChangeSet
	if post == nil {
		return changes, false
	}

	expectedContent := d.formatter.Format(entity)
	if NormalizeWhitespace(expectedContent) != NormalizeWhitespace(post.Content) {
		changes.Fields = append(changes.Fields, FieldContent)
		changes.Content = expectedContent
	}

	expectedCategory := ExpectedCategory(entity.Category)
	if expectedCategory != post.Category {
		changes.Fields = append(changes.Fields, FieldCategory)
		changes.Category = expectedCategory
	}

	if published, ok := d.publishedChange(entity, post); ok {
		changes.Fields = append(changes.Fields, FieldPublished)
		changes.Published = published
	}

	return changes, true
}

func (d *Detector) publishedChange(entity *ledger.Entity, post *micropub.Post) (time.Time, bool) {
	expected, ok := dates.Parse(entity.Date)
	if !ok {
		d.logger.Warn("Skipping published comparison, ledger date unparseable",
			zap.String("origin", entity.Origin.Key()),
			zap.String("title", entity.Title),
			zap.String("date", entity.Date))
		return time.Time{}, false
	}

	if post.Published == "" {
		return time.Time{}, false
	}

	actual, err := time.Parse(time.RFC3339, post.Published)
	if err != nil {
		d.logger.Warn("Skipping published comparison, remote timestamp invalid",
			zap.String("url", post.URL),
			zap.String("published", post.Published),
			zap.Error(err))
		return time.Time{}, false
	}

	if dates.Format(expected) == dates.Format(actual) {
		return time.Time{}, false
	}
	return expected, true
}
