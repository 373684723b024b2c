package reconcile

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"content-sync/core/micropub"
	"content-sync/core/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phaseCounts(s *PhaseStats) [3]int {
	return [3]int{s.Attempted, s.Successful, s.Failed}
}

func TestRun_CreatesEarliestOnly(t *testing.T) {
	h := newHarness([][]string{
		row("Later talk", "Video", "3/1/2025", "https://v/later", ""),
		row("Foo", "Presentations", "1/9/2025", "", ""),
		row("Undated", "Blog", "TBD", "https://b/u", ""),
	})

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"create https://blog.example/post-1.html"}, h.remote.writes)
	require.Len(t, h.remote.posts, 1)
	assert.Equal(t, "Foo", h.remote.posts[0].Content)
	assert.Equal(t, "Presentations", h.remote.posts[0].Category)
	assert.Equal(t, "2025-01-09T12:00:00Z", h.remote.posts[0].Published)

	assert.Equal(t, "https://blog.example/post-1.html", h.sheet.cell(3))
	assert.Equal(t, []string{"'Sheet1'!H3=https://blog.example/post-1.html"}, h.sheet.writes)

	assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(report.Phase(PhaseCreate)))
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, 3, report.Ledger.Valid)
	assert.False(t, report.HasFailures())
	require.Len(t, report.Decisions, 1)
	assert.Equal(t, DecisionCreate, report.Decisions[0].Kind)
	assert.Equal(t, "Sheet1!3", report.Decisions[0].Key)
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness([][]string{
		row("Intro to Go", "Video", "1/9/2025", "https://youtu.be/a", "https://blog.example/intro.html"),
		row("Cows", "Podcast", "February 3, 2025", "https://p/cows", ""),
	}, syncedPost("Intro to Go", "Video", "1/9/2025", "https://youtu.be/a", "https://blog.example/intro.html"))

	first, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(first.Phase(PhaseCreate)))
	assert.Equal(t, "Software Defined Interviews: [Cows](https://p/cows)", h.remote.posts[1].Content)

	h.resetCounters()
	second, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.remote.writes)
	assert.Empty(t, h.sheet.writes)
	assert.Zero(t, h.pacer.waits)
	assert.Empty(t, second.Decisions)
	for _, s := range second.Phases {
		assert.Zero(t, s.Attempted, s.Phase)
	}
}

func TestRun_EveryWriteIsPaced(t *testing.T) {
	h := newHarness([][]string{
		row("New", "Blog", "1/1/2025", "https://b/new", ""),
		row("Changed", "Video", "1/2/2025", "https://v/changed", "https://blog.example/changed.html"),
		row("Stale", "Video", "1/3/2025", "https://v/stale", "https://blog.example/stale.html"),
		row("Numeric", "Guest", "1/4/2025", "https://g/n", "https://blog.example/987654.html"),
	},
		syncedPost("Old title", "Video", "1/2/2025", "https://v/changed", "https://blog.example/changed.html"),
		syncedPost("Numeric", "Guest", "1/4/2025", "https://g/n", "https://blog.example/987654.html"),
		syncedPost("Gone", "Blog", "1/5/2025", "https://b/gone", "https://blog.example/orphan.html"),
	)

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.HasFailures())

	// create, regenerate (delete + create), update, stale clear, orphan delete
	assert.Len(t, h.remote.writes, 5)
	// two creates written back, one stale id cleared
	assert.Len(t, h.sheet.writes, 3)
	assert.Equal(t, len(h.remote.writes)+len(h.sheet.writes), h.pacer.waits)
}

func TestRun_OrphanSafety(t *testing.T) {
	h := newHarness([][]string{
		row("Kept", "Blog", "1/1/2025", "https://b/kept", "https://blog.example/kept.html"),
	},
		syncedPost("Kept", "Blog", "1/1/2025", "https://b/kept", "https://blog.example/kept.html"),
		syncedPost("Orphan", "Video", "1/2/2025", "https://v/o", "https://blog.example/orphan.html"),
		syncedPost("Personal", "Personal", "1/3/2025", "https://x/p", "https://blog.example/personal.html"),
		syncedPost("Note", "", "1/4/2025", "https://x/n", "https://blog.example/note.html"),
	)

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"delete https://blog.example/orphan.html"}, h.remote.writes)
	assert.Equal(t, []string{"https://blog.example/orphan.html"}, report.Orphans)
	assert.Len(t, h.remote.posts, 3)
	assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(report.Phase(PhaseDelete)))
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	h := newHarness([][]string{
		row("A", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html"),
		row("B", "Blog", "1/2/2025", "https://b/b", "https://blog.example/b.html"),
		row("C", "Blog", "1/3/2025", "https://b/c", "https://blog.example/c.html"),
	},
		syncedPost("old", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html"),
		syncedPost("old", "Blog", "1/2/2025", "https://b/b", "https://blog.example/b.html"),
		syncedPost("old", "Blog", "1/3/2025", "https://b/c", "https://blog.example/c.html"),
	)
	h.remote.updateErrs["https://blog.example/b.html"] = &retry.StatusError{Op: "micropub.update", StatusCode: http.StatusUnauthorized}

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	update := report.Phase(PhaseUpdate)
	assert.Equal(t, [3]int{3, 2, 1}, phaseCounts(update))
	require.Len(t, update.Errors, 1)
	assert.Equal(t, "Sheet1!3", update.Errors[0].Key)
	assert.Equal(t, "B", update.Errors[0].Title)
	assert.Equal(t, retry.KindAuth, update.Errors[0].Kind)

	assert.Equal(t, []string{
		"update https://blog.example/a.html",
		"update https://blog.example/c.html",
	}, h.remote.writes)
	assert.Equal(t, 1, h.remote.updateCalls["https://blog.example/b.html"])
	assert.Empty(t, h.sleeps)
	assert.True(t, report.HasFailures())
}

func TestRun_PartialFailureIsolation_Regenerate(t *testing.T) {
	h := newHarness([][]string{
		row("A", "Guest", "1/1/2025", "https://g/a", "https://blog.example/111111.html"),
		row("B", "Guest", "1/2/2025", "https://g/b", "https://blog.example/222222.html"),
		row("C", "Guest", "1/3/2025", "https://g/c", "https://blog.example/333333.html"),
	},
		syncedPost("A", "Guest", "1/1/2025", "https://g/a", "https://blog.example/111111.html"),
		syncedPost("B", "Guest", "1/2/2025", "https://g/b", "https://blog.example/222222.html"),
		syncedPost("C", "Guest", "1/3/2025", "https://g/c", "https://blog.example/333333.html"),
	)
	h.remote.deleteErrs["https://blog.example/222222.html"] = &retry.StatusError{Op: "micropub.delete", StatusCode: http.StatusUnauthorized}

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	regenerate := report.Phase(PhaseRegenerate)
	assert.Equal(t, [3]int{3, 2, 1}, phaseCounts(regenerate))
	require.Len(t, regenerate.Errors, 1)
	assert.Equal(t, "Sheet1!3", regenerate.Errors[0].Key)
	assert.Equal(t, "https://blog.example/222222.html", regenerate.Errors[0].URL)

	assert.Equal(t, []string{
		"delete https://blog.example/111111.html",
		"create https://blog.example/post-1.html",
		"delete https://blog.example/333333.html",
		"create https://blog.example/post-2.html",
	}, h.remote.writes)
	assert.Equal(t, "https://blog.example/post-1.html", h.sheet.cell(2))
	assert.Equal(t, "https://blog.example/222222.html", h.sheet.cell(3))
	assert.Equal(t, "https://blog.example/post-2.html", h.sheet.cell(4))
	assert.Empty(t, report.Orphans)
}

func TestRun_PartialFailureIsolation_Delete(t *testing.T) {
	h := newHarness(nil,
		syncedPost("One", "Blog", "1/1/2025", "https://b/1", "https://blog.example/one.html"),
		syncedPost("Two", "Blog", "1/2/2025", "https://b/2", "https://blog.example/two.html"),
		syncedPost("Three", "Blog", "1/3/2025", "https://b/3", "https://blog.example/three.html"),
	)
	h.remote.deleteErrs["https://blog.example/two.html"] = &retry.StatusError{Op: "micropub.delete", StatusCode: http.StatusForbidden}

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	del := report.Phase(PhaseDelete)
	assert.Equal(t, [3]int{3, 2, 1}, phaseCounts(del))
	require.Len(t, del.Errors, 1)
	assert.Equal(t, "https://blog.example/two.html", del.Errors[0].URL)
	assert.Empty(t, del.Errors[0].Key)

	assert.Equal(t, []string{
		"delete https://blog.example/one.html",
		"delete https://blog.example/three.html",
	}, h.remote.writes)
	assert.Len(t, report.Orphans, 3)
	assert.True(t, report.HasFailures())
}

func TestRun_PendingCount(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]string
		createErr error
		dryRun    bool
		want      int
	}{
		{
			name: "created",
			rows: [][]string{row("A", "Blog", "1/1/2025", "https://b/a", ""), row("B", "Blog", "1/2/2025", "https://b/b", "")},
			want: 1,
		},
		{
			name:   "dry run",
			rows:   [][]string{row("A", "Blog", "1/1/2025", "https://b/a", ""), row("B", "Blog", "1/2/2025", "https://b/b", "")},
			dryRun: true,
			want:   1,
		},
		{
			name:      "create rejected",
			rows:      [][]string{row("A", "Blog", "1/1/2025", "https://b/a", ""), row("B", "Blog", "1/2/2025", "https://b/b", "")},
			createErr: &retry.StatusError{Op: "micropub.create", StatusCode: http.StatusUnauthorized},
			want:      2,
		},
		{
			name: "unparseable date",
			rows: [][]string{row("A", "Blog", "TBD", "https://b/a", ""), row("B", "Blog", "soon", "https://b/b", "")},
			want: 2,
		},
		{
			name: "nothing pending",
			rows: [][]string{row("A", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html")},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.rows)
			if tt.createErr != nil {
				h.remote.createErrs = []error{tt.createErr}
			}

			report, err := h.orchestrator(Options{DryRun: tt.dryRun}).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Pending)
		})
	}
}

func TestRun_TransientFailureRetriedToCeiling(t *testing.T) {
	h := newHarness([][]string{
		row("A", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html"),
	}, syncedPost("old", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html"))
	h.remote.updateErrs["https://blog.example/a.html"] = &retry.StatusError{Op: "micropub.update", StatusCode: http.StatusServiceUnavailable}

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, h.remote.updateCalls["https://blog.example/a.html"])
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps)
	require.Len(t, report.Phase(PhaseUpdate).Errors, 1)
	assert.Equal(t, retry.KindNetwork, report.Phase(PhaseUpdate).Errors[0].Kind)
}

func TestRun_TransientCreateSucceeds(t *testing.T) {
	h := newHarness([][]string{row("A", "Blog", "1/1/2025", "https://b/a", "")})
	h.remote.createErrs = []error{&retry.StatusError{Op: "micropub.create", StatusCode: http.StatusTooManyRequests, RetryAfter: 3 * time.Second}}

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(report.Phase(PhaseCreate)))
	assert.Equal(t, []time.Duration{3 * time.Second}, h.sleeps)
	// two create attempts and one write-back
	assert.Equal(t, 3, h.pacer.waits)
}

func TestRun_UnparseableDateCreateFails(t *testing.T) {
	h := newHarness([][]string{row("Someday", "Blog", "TBD", "https://b/s", "")})

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	create := report.Phase(PhaseCreate)
	assert.Equal(t, [3]int{1, 0, 1}, phaseCounts(create))
	assert.Equal(t, retry.KindData, create.Errors[0].Kind)
	assert.Empty(t, h.remote.writes)
}

func TestRun_StaleIDs(t *testing.T) {
	rows := func() [][]string {
		return [][]string{row("Gone", "Video", "1/1/2025", "https://v/g", "https://blog.example/gone.html")}
	}

	t.Run("Clear", func(t *testing.T) {
		h := newHarness(rows())

		report, err := h.orchestrator(Options{StalePolicy: StaleClear}).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "", h.sheet.cell(2))
		assert.Equal(t, []string{"'Sheet1'!H2="}, h.sheet.writes)
		require.Len(t, report.StaleIDs, 1)
		assert.Equal(t, "https://blog.example/gone.html", report.StaleIDs[0].URL)
		assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(report.Phase(PhaseUpdate)))
		assert.Empty(t, h.remote.writes)
	})

	t.Run("Keep", func(t *testing.T) {
		h := newHarness(rows())

		report, err := h.orchestrator(Options{StalePolicy: StaleKeep}).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "https://blog.example/gone.html", h.sheet.cell(2))
		assert.Empty(t, h.sheet.writes)
		assert.Len(t, report.StaleIDs, 1)
		assert.Zero(t, report.Phase(PhaseUpdate).Attempted)
	})
}

func TestRun_RegeneratesNumericSlug(t *testing.T) {
	h := newHarness([][]string{
		row("Talk", "Presentations", "1/9/2025", "https://t", "https://blog.example/2025/01/09/123456.html"),
	}, syncedPost("Talk", "Presentations", "1/9/2025", "https://t", "https://blog.example/2025/01/09/123456.html"))

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete https://blog.example/2025/01/09/123456.html",
		"create https://blog.example/post-1.html",
	}, h.remote.writes)
	assert.Equal(t, "https://blog.example/post-1.html", h.sheet.cell(2))
	assert.Equal(t, [3]int{1, 1, 0}, phaseCounts(report.Phase(PhaseRegenerate)))
	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.StaleIDs)
}

func TestRun_KeepsTitleSlug(t *testing.T) {
	h := newHarness([][]string{
		row("2024", "Video", "1/9/2025", "https://v/2024", "https://blog.example/2025/01/09/2024.html"),
		row("dad2", "Blog", "1/10/2025", "https://b/dad2", "https://blog.example/2025/01/10/dad2.html"),
	},
		syncedPost("2024", "Video", "1/9/2025", "https://v/2024", "https://blog.example/2025/01/09/2024.html"),
		syncedPost("dad2", "Blog", "1/10/2025", "https://b/dad2", "https://blog.example/2025/01/10/dad2.html"),
	)

	for range 2 {
		report, err := h.orchestrator(Options{}).Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Phase(PhaseRegenerate).Attempted)
		assert.Empty(t, h.remote.writes)
		assert.Empty(t, h.sheet.writes)
	}
}

func TestRun_NewPostNotYetListed(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		post []micropub.Post
		url  string
	}{
		{
			name: "created",
			rows: [][]string{row("Fresh", "Blog", "1/1/2025", "https://b/fresh", "")},
			url:  "https://blog.example/post-1.html",
		},
		{
			name: "regenerated",
			rows: [][]string{row("Talk", "Guest", "1/1/2025", "https://g/t", "https://blog.example/123456.html")},
			post: []micropub.Post{syncedPost("Talk", "Guest", "1/1/2025", "https://g/t", "https://blog.example/123456.html")},
			url:  "https://blog.example/post-1.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.rows, tt.post...)
			h.remote.lagging = true

			report, err := h.orchestrator(Options{StalePolicy: StaleClear}).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{"'Sheet1'!H2=" + tt.url}, h.sheet.writes)
			assert.Equal(t, tt.url, h.sheet.cell(2))
			assert.Empty(t, report.StaleIDs)
			assert.Zero(t, report.Phase(PhaseUpdate).Attempted)
			assert.Empty(t, report.Orphans)

			h.remote.lagging = false
			h.remote.catchUp()
			h.resetCounters()

			second, err := h.orchestrator(Options{StalePolicy: StaleClear}).Run(context.Background())
			require.NoError(t, err)
			assert.Empty(t, h.remote.writes)
			assert.Empty(t, h.sheet.writes)
			assert.Empty(t, second.Decisions)
		})
	}
}

func TestRun_DryRun(t *testing.T) {
	h := newHarness([][]string{
		row("New", "Blog", "1/1/2025", "https://b/new", ""),
		row("Changed", "Video", "1/2/2025", "https://v/c", "https://blog.example/changed.html"),
		row("Numeric", "Guest", "1/4/2025", "https://g/n", "https://blog.example/987654.html"),
	},
		syncedPost("Old", "Video", "1/2/2025", "https://v/c", "https://blog.example/changed.html"),
		syncedPost("Numeric", "Guest", "1/4/2025", "https://g/n", "https://blog.example/987654.html"),
		syncedPost("Gone", "Blog", "1/5/2025", "https://b/gone", "https://blog.example/orphan.html"),
	)
	before := len(h.remote.posts)

	report, err := h.orchestrator(Options{DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, h.remote.writes)
	assert.Empty(t, h.sheet.writes)
	assert.Zero(t, h.pacer.waits)
	assert.Len(t, h.remote.posts, before)
	assert.True(t, report.DryRun)
	assert.False(t, report.HasFailures())
	assert.Empty(t, report.StaleIDs)

	var kinds []DecisionKind
	for _, d := range report.Decisions {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []DecisionKind{DecisionCreate, DecisionRegenerate, DecisionUpdate, DecisionDelete}, kinds)
	assert.True(t, strings.HasPrefix(report.Decisions[0].URL, PlaceholderPrefix))
	assert.Equal(t, []string{"https://blog.example/orphan.html"}, report.Orphans)
}

func TestRun_LedgerLoadFails(t *testing.T) {
	h := newHarness(nil)
	h.sheet.readErr = errors.New("boom")

	report, err := h.orchestrator(Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading ledger")
	assert.NotEmpty(t, report.Error)
	assert.True(t, report.HasFailures())
	assert.False(t, report.FinishedAt.IsZero())
}

func TestRun_SnapshotFails(t *testing.T) {
	h := newHarness([][]string{
		row("A", "Blog", "1/1/2025", "https://b/a", "https://blog.example/a.html"),
	})
	h.remote.queryErr = &retry.StatusError{Op: "micropub.query", StatusCode: http.StatusUnauthorized}

	_, err := h.orchestrator(Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching remote snapshot")

	var statusErr *retry.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestRun_Interrupted(t *testing.T) {
	h := newHarness([][]string{row("A", "Blog", "1/1/2025", "https://b/a", "")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orchestrator(Options{}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.remote.writes)
}

func TestRun_UsesGivenRunID(t *testing.T) {
	h := newHarness(nil)

	report, err := h.orchestrator(Options{RunID: "run-42"}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-42", report.RunID)
	assert.Len(t, report.Phases, len(Phases))
}
