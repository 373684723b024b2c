package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"content-sync/core/content"
	"content-sync/core/dates"
	"content-sync/core/ledger"
	"content-sync/core/micropub"
	"content-sync/core/retry"
)

// fakeSheet is an in-memory spreadsheet addressed in A1 notation.
type fakeSheet struct {
	tabs    map[string][][]string
	writes  []string
	readErr error
}

func splitRef(ref string) (tab, rest string) {
	i := strings.LastIndex(ref, "!")
	tab = strings.TrimSuffix(strings.TrimPrefix(ref[:i], "'"), "'")
	return strings.ReplaceAll(tab, "''", "'"), ref[i+1:]
}

func (s *fakeSheet) ReadRange(ctx context.Context, a1Range string) ([][]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	tab, _ := splitRef(a1Range)
	var rows [][]string
	for _, r := range s.tabs[tab] {
		rows = append(rows, append([]string(nil), r...))
	}
	return rows, nil
}

func (s *fakeSheet) UpdateCell(ctx context.Context, a1Cell, value string) error {
	tab, cell := splitRef(a1Cell)
	col := int(cell[0] - 'A')
	row, err := strconv.Atoi(cell[1:])
	if err != nil {
		return err
	}
	for len(s.tabs[tab][row-1]) <= col {
		s.tabs[tab][row-1] = append(s.tabs[tab][row-1], "")
	}
	s.tabs[tab][row-1][col] = value
	s.writes = append(s.writes, a1Cell+"="+value)
	return nil
}

func (s *fakeSheet) cell(row int) string {
	r := s.tabs["Sheet1"][row-1]
	if len(r) <= ledger.ColRemoteID {
		return ""
	}
	return r[ledger.ColRemoteID]
}

// fakeRemote is an in-memory Micropub server.
type fakeRemote struct {
	posts       []micropub.Post
	created     int
	writes      []string
	createErrs  []error
	updateErrs  map[string]error
	updateCalls map[string]int
	deleteErrs  map[string]error
	queryErr    error

	// lagging hides created posts from Query until catchUp
	lagging  bool
	unlisted []micropub.Post
}

func (f *fakeRemote) Query(ctx context.Context, offset, limit int) ([]micropub.Post, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if offset >= len(f.posts) {
		return nil, nil
	}
	end := min(offset+limit, len(f.posts))
	return append([]micropub.Post(nil), f.posts[offset:end]...), nil
}

func (f *fakeRemote) Create(ctx context.Context, entry micropub.Entry) (string, error) {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.created++
	url := fmt.Sprintf("https://blog.example/post-%d.html", f.created)
	post := micropub.Post{
		URL:       url,
		Content:   entry.Content,
		Category:  entry.Category,
		Published: dates.Format(entry.Published),
	}
	if f.lagging {
		f.unlisted = append(f.unlisted, post)
	} else {
		f.posts = append(f.posts, post)
	}
	f.writes = append(f.writes, "create "+url)
	return url, nil
}

func (f *fakeRemote) Update(ctx context.Context, url string, changes micropub.Changes) error {
	if f.updateCalls == nil {
		f.updateCalls = make(map[string]int)
	}
	f.updateCalls[url]++
	if err := f.updateErrs[url]; err != nil {
		return err
	}
	for i := range f.posts {
		if f.posts[i].URL != url {
			continue
		}
		if changes.Content != nil {
			f.posts[i].Content = *changes.Content
		}
		if changes.Category != nil {
			f.posts[i].Category = *changes.Category
		}
		if changes.Published != nil {
			f.posts[i].Published = dates.Format(*changes.Published)
		}
		f.writes = append(f.writes, "update "+url)
		return nil
	}
	return fmt.Errorf("no post %s", url)
}

// catchUp lists every post created while lagging.
func (f *fakeRemote) catchUp() {
	f.posts = append(f.posts, f.unlisted...)
	f.unlisted = nil
}

func (f *fakeRemote) Delete(ctx context.Context, url string) error {
	if err := f.deleteErrs[url]; err != nil {
		return err
	}
	f.writes = append(f.writes, "delete "+url)
	for i := range f.posts {
		if f.posts[i].URL == url {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return micropub.ErrAlreadyGone
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

type harness struct {
	sheet  *fakeSheet
	remote *fakeRemote
	pacer  *countingPacer
	sleeps []time.Duration
	ids    int
}

var headerRow = []string{"Name", "Type", "Show", "Date", "Location", "Confirmed", "Link", "Micro.blog URL"}

func row(title, category, date, link, id string) []string {
	return []string{title, category, "", date, "", "", link, id}
}

// syncedPost is the remote post matching row(title, category, date, link, url).
func syncedPost(title, category, date, link, url string) micropub.Post {
	e := &ledger.Entity{Title: title, Category: ledger.Category(category), Link: link}
	published, _ := dates.Parse(date)
	return micropub.Post{
		URL:       url,
		Content:   testFormatter().Format(e),
		Category:  category,
		Published: dates.Format(published),
	}
}

func testFormatter() *content.Formatter {
	return content.NewFormatter(content.Config{DefaultShow: "Software Defined Interviews", KeynoteMarker: "keynote"})
}

func newHarness(rows [][]string, posts ...micropub.Post) *harness {
	return &harness{
		sheet:  &fakeSheet{tabs: map[string][][]string{"Sheet1": append([][]string{headerRow}, rows...)}},
		remote: &fakeRemote{posts: posts, updateErrs: map[string]error{}, deleteErrs: map[string]error{}},
		pacer:  &countingPacer{},
	}
}

func (h *harness) orchestrator(opts Options) *Orchestrator {
	exec := retry.NewExecutor(retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second}, nil)
	exec.Sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	exec.Rand = func() float64 { return 0 }

	return NewOrchestrator(Dependencies{
		Ledger:    ledger.NewBook(h.sheet, []string{"Sheet1"}, nil),
		Remote:    h.remote,
		Formatter: testFormatter(),
		Executor:  exec,
		Pacer:     h.pacer,
		NewID: func() string {
			h.ids++
			return fmt.Sprintf("id-%d", h.ids)
		},
	}, opts, nil)
}

// resetCounters forgets recorded calls, keeping data.
func (h *harness) resetCounters() {
	h.sheet.writes = nil
	h.remote.writes = nil
	h.pacer.waits = 0
	h.sleeps = nil
}
