package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/store"
	"github.com/glabrego/imgsearch-cli/internal/tui/actions"
)

type fakeStore struct {
	mu       sync.Mutex
	snap     store.Snapshot
	updates  []bool
	opened   []string
	closed   int
	searches []string
	err      error
}

func (f *fakeStore) Snapshot() store.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeStore) UpdateResult(_ context.Context, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, force)
	return f.err
}

func (f *fakeStore) OpenImageModal(_ context.Context, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
}

func (f *fakeStore) CloseImageModal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeStore) SearchImage(_ context.Context, q string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	return f.err
}

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Cursor:    7,
		HasCursor: true,
		Result: search.Result{
			EngineStatus: map[search.Engine]search.EngineStatus{
				search.EngineGoogle: search.StatusLoaded,
				search.EngineBing:   search.StatusLoading,
			},
			SearchResult: []search.Item{
				{Title: "First Cat", ImageURL: "https://img.example.com/1.jpg", SourceURL: "https://example.com/1", SearchEngine: search.EngineGoogle},
				{Title: "Second Cat", ImageURL: "https://img.example.com/2.jpg", SourceURL: "https://example.com/2", SearchEngine: search.EngineBing},
			},
		},
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelView_ShowsItemsAndEngines(t *testing.T) {
	m := NewModel(&fakeStore{snap: sampleSnapshot()})

	view := m.View()
	for _, want := range []string{"First Cat", "Second Cat", "session 7", "google", "bing", "engines searching", "2 shown"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got: %s", want, view)
		}
	}
	if !strings.Contains(view, ">") {
		t.Fatalf("expected cursor marker in view, got: %s", view)
	}
}

func TestModelView_EmptyAndLoading(t *testing.T) {
	m := NewModel(&fakeStore{})
	if view := m.View(); !strings.Contains(view, "No results yet.") {
		t.Fatalf("expected empty state, got: %s", view)
	}

	updated, _ := m.Update(SnapshotMsg(store.Snapshot{Loading: true}))
	if view := updated.(Model).View(); !strings.Contains(view, "Loading results...") {
		t.Fatalf("expected loading state, got: %s", view)
	}
}

func TestModelInit_RunsNonForcedUpdate(t *testing.T) {
	fs := &fakeStore{}
	m := NewModel(fs)

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected init command")
	}
	msg := cmd()
	if _, ok := msg.(actions.UpdateDoneMsg); !ok {
		t.Fatalf("expected UpdateDoneMsg, got %T", msg)
	}
	if len(fs.updates) != 1 || fs.updates[0] {
		t.Fatalf("expected one non-forced update, got %v", fs.updates)
	}
}

func TestModelUpdate_ForcedReloadError(t *testing.T) {
	fs := &fakeStore{err: errors.New("search result not found")}
	m := NewModel(fs)

	updated, cmd := m.Update(keyRune('r'))
	if cmd == nil {
		t.Fatal("expected reload command")
	}
	if !updated.(Model).updating {
		t.Fatal("expected updating flag while reload runs")
	}

	// a second reload while one is in flight is ignored
	if _, again := updated.Update(keyRune('r')); again != nil {
		t.Fatal("expected no second reload command")
	}

	updated, _ = updated.Update(cmd())
	final := updated.(Model)
	if final.err == nil {
		t.Fatal("expected reload error")
	}
	if len(fs.updates) != 1 || !fs.updates[0] {
		t.Fatalf("expected one forced update, got %v", fs.updates)
	}
	if !strings.Contains(final.View(), "search result not found") {
		t.Fatalf("expected error in view, got: %s", final.View())
	}
}

func TestModelUpdate_NavigateAndOpenModal(t *testing.T) {
	fs := &fakeStore{snap: sampleSnapshot()}
	m := NewModel(fs)

	updated, _ := m.Update(keyRune('j'))
	model := updated.(Model)
	if model.cursor != 1 {
		t.Fatalf("expected cursor at 1, got %d", model.cursor)
	}
	updated, _ = model.Update(keyRune('j'))
	if updated.(Model).cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", updated.(Model).cursor)
	}

	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected open modal command")
	}
	cmd()
	if len(fs.opened) != 1 || fs.opened[0] != "https://img.example.com/2.jpg" {
		t.Fatalf("unexpected opened modal urls: %v", fs.opened)
	}
}

func TestModelUpdate_SnapshotClampsCursor(t *testing.T) {
	m := NewModel(&fakeStore{snap: sampleSnapshot()})
	updated, _ := m.Update(keyRune('G'))
	if updated.(Model).cursor != 1 {
		t.Fatalf("expected cursor at last item, got %d", updated.(Model).cursor)
	}

	shrunk := sampleSnapshot()
	shrunk.Result.SearchResult = shrunk.Result.SearchResult[:1]
	updated, _ = updated.Update(SnapshotMsg(shrunk))
	if updated.(Model).cursor != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", updated.(Model).cursor)
	}
}

func TestModelUpdate_ModalViewAndClose(t *testing.T) {
	snap := sampleSnapshot()
	snap.Modal = store.Modal{ImageURL: "https://img.example.com/1.jpg", ImageWidth: 1024, Open: true}
	fs := &fakeStore{snap: snap}
	m := NewModel(fs)

	view := m.View()
	if !strings.Contains(view, "1024px") || !strings.Contains(view, "esc close") {
		t.Fatalf("expected modal in view, got: %s", view)
	}

	// navigation keys are swallowed while the modal is open
	updated, _ := m.Update(keyRune('j'))
	if updated.(Model).cursor != 0 {
		t.Fatalf("expected cursor unchanged, got %d", updated.(Model).cursor)
	}

	_, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected close command")
	}
	if fs.closed != 0 {
		t.Fatal("expected close to run in the command")
	}
	cmd()
	if fs.closed != 1 {
		t.Fatalf("expected close to be called once, got %d", fs.closed)
	}
}

func TestModelView_ModalScalesReportedAspectRatio(t *testing.T) {
	w, h := 640.0, 480.0
	snap := sampleSnapshot()
	snap.Result.SearchResult[0].ImageInfo = search.ImageInfo{Width: &w, Height: &h}
	snap.Modal = store.Modal{ImageURL: "https://img.example.com/1.jpg", ImageWidth: 1024, Open: true}
	m := NewModel(&fakeStore{snap: snap})

	if view := m.View(); !strings.Contains(view, "1024×768px") || !strings.Contains(view, "640×480") {
		t.Fatalf("expected scaled modal size and reported dimensions, got: %s", view)
	}
}

func TestModelUpdate_SearchInput(t *testing.T) {
	fs := &fakeStore{}
	m := NewModel(fs)

	updated, _ := m.Update(keyRune('/'))
	model := updated.(Model)
	if !model.searching {
		t.Fatal("expected search mode")
	}
	for _, r := range "https://example.com/cat.png" {
		updated, _ = updated.Update(keyRune(r))
	}
	if got := updated.(Model).searchInput.Value(); got != "https://example.com/cat.png" {
		t.Fatalf("unexpected query %q", got)
	}
	if !strings.Contains(updated.View(), "Search image URL:") {
		t.Fatalf("expected search prompt in view, got: %s", updated.View())
	}

	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected search command")
	}
	if updated.(Model).searching {
		t.Fatal("expected search mode to end")
	}
	msg := cmd()
	if sent, ok := msg.(actions.SearchSentMsg); !ok || sent.Query != "https://example.com/cat.png" {
		t.Fatalf("unexpected search msg: %#v", msg)
	}
	if len(fs.searches) != 1 {
		t.Fatalf("expected one search, got %v", fs.searches)
	}
}

func TestModelUpdate_SearchInputRejectsBadURL(t *testing.T) {
	fs := &fakeStore{}
	m := NewModel(fs)

	updated, _ := m.Update(keyRune('/'))
	for _, r := range "ftp://x" {
		updated, _ = updated.Update(keyRune(r))
	}
	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no search command for invalid URL")
	}
	if updated.(Model).err == nil {
		t.Fatal("expected validation error")
	}
	if len(fs.searches) != 0 {
		t.Fatalf("expected no searches, got %v", fs.searches)
	}
}

func TestModelUpdate_CopyAndOpenUseInjectedFns(t *testing.T) {
	m := NewModel(&fakeStore{snap: sampleSnapshot()})
	var opened, copied string
	m.openURLFn = func(u string) error { opened = u; return nil }
	m.copyURLFn = func(u string) error { copied = u; return nil }

	_, cmd := m.Update(keyRune('o'))
	if msg := cmd(); msg != (actions.OpenURLSuccessMsg{Status: "Opened in browser", Opened: true}) {
		t.Fatalf("unexpected open msg: %#v", msg)
	}
	_, cmd = m.Update(keyRune('y'))
	if msg := cmd(); msg != (actions.OpenURLSuccessMsg{Status: "Copied URL"}) {
		t.Fatalf("unexpected copy msg: %#v", msg)
	}
	if opened != "https://example.com/1" || copied != "https://img.example.com/1.jpg" {
		t.Fatalf("unexpected urls: opened=%q copied=%q", opened, copied)
	}
}
