package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRow(t *testing.T) {
	origin := Origin{Tab: "Sheet1", Row: 7}

	tests := []struct {
		name     string
		cells    []string
		header   bool
		valid    bool
		reason   Reason
		category Category
	}{
		{
			name:     "ValidVideo",
			cells:    []string{"Bar", "Video", "", "1/9/2025", "", "", "https://x"},
			valid:    true,
			category: CategoryVideo,
		},
		{
			name:     "PresentationWithoutLink",
			cells:    []string{"Foo", "Presentations", "", "1/9/2025", "", "", ""},
			valid:    true,
			category: CategoryPresentations,
		},
		{
			name:     "SingularAlias",
			cells:    []string{"Foo", "Presentation", "", "1/9/2025"},
			valid:    true,
			category: CategoryPresentations,
		},
		{
			name:     "LowercaseCategory",
			cells:    []string{"Foo", "podcast", "Show", "1/9/2025", "", "", "https://x"},
			valid:    true,
			category: CategoryPodcast,
		},
		{
			name:   "SectionHeader",
			cells:  []string{"January 2025"},
			header: true,
			reason: ReasonSectionHeader,
		},
		{
			name:   "SectionHeaderWithLocation",
			cells:  []string{"Conferences", "", "", "", "Berlin"},
			header: true,
			reason: ReasonSectionHeader,
		},
		{
			name:   "EmptyRow",
			cells:  []string{"", "", "", "", "", "", ""},
			reason: ReasonEmptyRow,
		},
		{
			name:   "NoCells",
			cells:  nil,
			reason: ReasonEmptyRow,
		},
		{
			name:   "MissingDate",
			cells:  []string{"Bar", "Video", "", "", "", "", "https://x"},
			reason: ReasonMissingFields,
		},
		{
			name:   "MissingTitle",
			cells:  []string{"", "Video", "", "1/9/2025", "", "", "https://x"},
			reason: ReasonMissingFields,
		},
		{
			name:   "MissingLink",
			cells:  []string{"Bar", "Blog", "", "1/9/2025"},
			reason: ReasonMissingFields,
		},
		{
			name:   "InvalidCategory",
			cells:  []string{"Bar", "Webinar", "", "1/9/2025", "", "", "https://x"},
			reason: ReasonInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity, verdict := ParseRow(tt.cells, origin)

			assert.Equal(t, tt.valid, verdict.Valid)
			assert.Equal(t, tt.reason, verdict.Reason)
			if tt.header {
				assert.Nil(t, entity)
				return
			}
			require.NotNil(t, entity)
			assert.Equal(t, origin, entity.Origin)
			if tt.valid {
				assert.Equal(t, tt.category, entity.Category)
			} else {
				assert.NotEmpty(t, verdict.Detail)
			}
		})
	}
}

func TestParseRow_TrimsAndCarriesColumns(t *testing.T) {
	cells := []string{" Foo ", " Podcast", " Show ", " 1/9/2025 ", " Remote ", " KEYNOTE ", " https://x ", " https://site/2025/01/09/foo.html "}
	entity, verdict := ParseRow(cells, Origin{Tab: "2025", Row: 3})

	require.True(t, verdict.Valid)
	assert.Equal(t, Entity{
		Title:    "Foo",
		Category: CategoryPodcast,
		Show:     "Show",
		Date:     "1/9/2025",
		Location: "Remote",
		Flags:    "KEYNOTE",
		Link:     "https://x",
		RemoteID: "https://site/2025/01/09/foo.html",
		Origin:   Origin{Tab: "2025", Row: 3},
	}, *entity)
}

func TestMissingFieldsDetail(t *testing.T) {
	_, verdict := ParseRow([]string{"", "Video", "", "", "", "", ""}, Origin{})
	assert.Equal(t, ReasonMissingFields, verdict.Reason)
	assert.Equal(t, "missing required fields: Name, Date, Link", verdict.Detail)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryVideo, NormalizeCategory("VIDEO"))
	assert.Equal(t, CategoryPresentations, NormalizeCategory("presentation"))
	assert.Equal(t, CategoryGuest, NormalizeCategory(" guest "))
	assert.Equal(t, Category(""), NormalizeCategory("  "))
	assert.False(t, NormalizeCategory("webinar").IsValid())
}

func TestOrigin_Key(t *testing.T) {
	assert.Equal(t, "Sheet1!42", Origin{Tab: "Sheet1", Row: 42}.Key())
}
