package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/imgsearch-cli/internal/payload"
	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/store"
	"github.com/glabrego/imgsearch-cli/internal/tui/actions"
	"github.com/glabrego/imgsearch-cli/internal/tui/platform"
	"github.com/glabrego/imgsearch-cli/internal/tui/state"
	tuitheme "github.com/glabrego/imgsearch-cli/internal/tui/theme"
	"github.com/glabrego/imgsearch-cli/internal/tui/view"
)

// chromeLines is the number of lines View spends outside the result list.
const chromeLines = 9

// Store is the state the model renders. Methods that publish must only be
// called from commands: observers deliver snapshots through the program.
type Store interface {
	actions.Service
	actions.ModalCloser
	Snapshot() store.Snapshot
}

type snapshotMsg struct {
	snap store.Snapshot
}

// SnapshotMsg wraps a published store snapshot for delivery via
// tea.Program.Send.
func SnapshotMsg(snap store.Snapshot) tea.Msg {
	return snapshotMsg{snap: snap}
}

type clearStatusMsg struct {
	id int
}

type Model struct {
	store       Store
	snap        store.Snapshot
	cursor      int
	width       int
	height      int
	updating    bool
	updatedAt   time.Time
	status      string
	statusID    int
	err         error
	searching   bool
	searchInput textinput.Model
	theme       tuitheme.Theme
	openURLFn   func(string) error
	copyURLFn   func(string) error
	nowFn       func() time.Time
	timeoutDur  time.Duration
}

func NewModel(s Store) Model {
	ti := textinput.New()
	ti.Prompt = "Search image URL: "
	ti.Placeholder = "https://example.com/image.png"
	ti.CharLimit = 2048

	m := Model{
		store:       s,
		searchInput: ti,
		theme:       tuitheme.Default(),
		openURLFn:   platform.OpenURLInBrowser,
		copyURLFn:   platform.CopyURLToClipboard,
		nowFn:       time.Now,
		timeoutDur:  actions.UpdateTimeout,
	}
	if s != nil {
		m.snap = s.Snapshot()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return actions.UpdateCmd(m.store, false, "init", m.timeoutDur)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.searchInput.Width = max(msg.Width-len(m.searchInput.Prompt)-2, 10)
		return m, nil
	case snapshotMsg:
		m.snap = msg.snap
		m.cursor = state.ClampCursor(m.cursor, len(m.items()))
		if !msg.snap.Loading && msg.snap.Err == nil {
			m.updatedAt = m.nowFn()
		}
		return m, nil
	case actions.UpdateDoneMsg:
		m.updating = false
		m.err = msg.Err
		if msg.Err == nil && msg.Source != "init" {
			return m.setStatus(fmt.Sprintf("Refreshed in %s", msg.Duration.Round(time.Millisecond)))
		}
		return m, nil
	case actions.ModalOpenedMsg:
		return m, nil
	case actions.SearchSentMsg:
		return m.setStatus("Search started for " + truncate(msg.Query, 48))
	case actions.SearchErrorMsg:
		m.err = msg.Err
		return m, nil
	case actions.OpenURLSuccessMsg:
		return m.setStatus(msg.Status)
	case actions.OpenURLErrorMsg:
		m.err = msg.Err
		return m, nil
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearchInput(msg)
		}
		if m.snap.Modal.Open {
			switch msg.String() {
			case "esc", "backspace", "enter":
				if m.store == nil {
					return m, nil
				}
				return m, actions.CloseModalCmd(m.store)
			case "ctrl+c", "q":
				return m, tea.Quit
			case "y":
				return m.copyURL(m.snap.Modal.ImageURL)
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.cursor = state.ClampCursor(m.cursor-1, len(m.items()))
			return m, nil
		case "down", "j":
			m.cursor = state.ClampCursor(m.cursor+1, len(m.items()))
			return m, nil
		case "g":
			m.cursor = 0
			return m, nil
		case "G":
			m.cursor = state.ClampCursor(len(m.items())-1, len(m.items()))
			return m, nil
		case "pgdown", "ctrl+f":
			m.cursor = state.ClampCursor(m.cursor+state.PageStep(m.height, chromeLines), len(m.items()))
			return m, nil
		case "pgup", "ctrl+b":
			m.cursor = state.ClampCursor(m.cursor-state.PageStep(m.height, chromeLines), len(m.items()))
			return m, nil
		case "enter":
			item, ok := m.currentItem()
			if !ok || m.store == nil {
				return m, nil
			}
			return m, actions.OpenModalCmd(m.store, item.ImageURL)
		case "r":
			if m.store == nil || m.updating {
				return m, nil
			}
			m.updating = true
			m.err = nil
			return m, actions.UpdateCmd(m.store, true, "manual", m.timeoutDur)
		case "o":
			item, ok := m.currentItem()
			if !ok {
				return m, nil
			}
			return m.openURL(item.SourceURL)
		case "y":
			item, ok := m.currentItem()
			if !ok {
				return m, nil
			}
			return m.copyURL(item.ImageURL)
		case "/":
			m.searching = true
			m.searchInput.SetValue("")
			return m, m.searchInput.Focus()
		}
	}
	return m, nil
}

func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.searchInput.Blur()
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" || m.store == nil {
			return m, nil
		}
		if !payload.IsDataURL(query) {
			valid, err := platform.ValidateImageURL(query)
			if err != nil {
				m.err = err
				return m, nil
			}
			query = valid
		}
		return m, actions.SearchCmd(m.store, query)
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) setStatus(status string) (tea.Model, tea.Cmd) {
	m.statusID++
	m.status = status
	return m, clearStatusCmd(m.statusID, 3*time.Second)
}

func (m Model) items() []search.Item {
	return m.snap.Result.SearchResult
}

func (m Model) currentItem() (search.Item, bool) {
	items := m.items()
	if len(items) == 0 {
		return search.Item{}, false
	}
	return items[state.ClampCursor(m.cursor, len(items))], true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Image Search"))
	if m.snap.HasCursor {
		b.WriteString(" " + m.theme.ModePill.Render(fmt.Sprintf("session %d", m.snap.Cursor)))
	}
	b.WriteString("\n")
	b.WriteString(m.engineLine())
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.searchInput.View() + "\n")
	}
	b.WriteString(view.Toolbar(m.mode()))
	b.WriteString("\n\n")

	if m.snap.Modal.Open {
		b.WriteString(m.modalView())
		b.WriteString("\n")
	} else {
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(view.Footer(view.FooterParams{
		Shown:      len(m.items()),
		Pending:    m.snap.Result.Pending(),
		QueryBytes: len(m.snap.Result.Base64),
		UpdatedAt:  m.updatedAt,
		Now:        m.nowFn(),
	}, m.theme))
	b.WriteString("\n")
	return b.String()
}

func (m Model) mode() view.Mode {
	switch {
	case m.searching:
		return view.ModeSearch
	case m.snap.Modal.Open:
		return view.ModeModal
	default:
		return view.ModeList
	}
}

func (m Model) engineLine() string {
	statuses := m.snap.Result.EngineStatus
	if len(statuses) == 0 {
		return m.theme.MetaLabel.Render("no engines")
	}
	engines := make([]string, 0, len(statuses))
	for engine := range statuses {
		engines = append(engines, string(engine))
	}
	sort.Strings(engines)
	parts := make([]string, 0, len(engines))
	for _, engine := range engines {
		status := statuses[search.Engine(engine)]
		parts = append(parts, m.theme.Engine.Render(engine)+" "+m.theme.StyleEngineStatus(status))
	}
	return strings.Join(parts, " • ")
}

func (m Model) listView() string {
	items := m.items()
	if len(items) == 0 {
		if m.snap.Loading {
			return "Loading results...\n"
		}
		return "No results yet.\n"
	}

	var b strings.Builder
	height := 0
	if m.height > 0 {
		height = max(m.height-chromeLines, 3)
	}
	start, end := state.CenteredWindow(len(items), m.cursor, height)
	for i := start; i < end; i++ {
		b.WriteString(view.RenderItemLine(view.ItemLineParams{
			Item:   items[i],
			Index:  i,
			Active: i == m.cursor,
			Width:  m.width,
		}, m.theme))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) modalView() string {
	modal := m.snap.Modal
	item, ok := m.currentItem()
	ok = ok && item.ImageURL == modal.ImageURL
	if !ok {
		item = search.Item{}
	}
	body := fmt.Sprintf("%s\n%s %s",
		modal.ImageURL,
		m.theme.MetaLabel.Render("size"),
		m.theme.MetaValue.Render(view.ModalSizeLabel(item, modal.ImageWidth)),
	)
	if ok {
		body = view.ItemLabel(item) + "\n" + body
		if dims := view.DimensionsLabel(item); dims != "" {
			body += " " + m.theme.MetaLabel.Render("reported") + " " + dims
		}
		body += "\n" + m.theme.MetaLabel.Render("source") + " " + item.SourceURL
	}
	return m.theme.Modal.Render(body)
}

func (m Model) messagePanel() string {
	err := m.err
	if err == nil {
		err = m.snap.Err
	}
	return view.Message(m.snap.Loading || m.updating, err, m.status, m.theme)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func (m Model) openURL(raw string) (tea.Model, tea.Cmd) {
	url, err := platform.ValidateImageURL(raw)
	if err != nil {
		m.err = err
		return m, nil
	}
	return m, actions.OpenURLCmd(url, m.openURLFn, m.copyURLFn)
}

func (m Model) copyURL(raw string) (tea.Model, tea.Cmd) {
	url, err := platform.ValidateImageURL(raw)
	if err != nil {
		m.err = err
		return m, nil
	}
	return m, actions.CopyURLCmd(url, m.copyURLFn)
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
