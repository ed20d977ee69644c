package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	merrors "github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/render"
)

var (
	previewStatusStyle = lipgloss.NewStyle().Foreground(colorMuted)
	previewErrorStyle  = lipgloss.NewStyle().Foreground(colorFail)
)

// =============================================================================
// Key bindings
// =============================================================================

// PreviewKeys are the key bindings of the gallery preview.
type PreviewKeys struct {
	Up         key.Binding
	Down       key.Binding
	More       key.Binding
	Refresh    key.Binding
	ClearError key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultPreviewKeys returns the default preview key bindings.
func DefaultPreviewKeys() PreviewKeys {
	return PreviewKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		More: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "load more"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ClearError: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss error"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k PreviewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.More, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k PreviewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.More},
		{k.Refresh, k.ClearError, k.Help, k.Quit},
	}
}

var _ help.KeyMap = PreviewKeys{}

// =============================================================================
// Terminal container
// =============================================================================

// terminal is the masonry container of the preview. Its width is the
// terminal width in cells times the pixel width of one cell.
type terminal struct {
	mu     sync.Mutex
	cells  int
	cellPx float64
	subs   map[int]func()
	next   int
}

func newTerminal(cellPx float64) *terminal {
	return &terminal{cellPx: cellPx, subs: make(map[int]func())}
}

func (t *terminal) Width() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cells <= 0 {
		return 0, merrors.New(merrors.ErrCodeInvalidWidth, "terminal size not known yet")
	}
	return float64(t.cells) * t.cellPx, nil
}

func (t *terminal) OnResize(fn func()) func() {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// resize records a new terminal width and notifies listeners.
func (t *terminal) resize(cells int) {
	t.mu.Lock()
	t.cells = cells
	fns := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

var _ masonry.Container = (*terminal)(nil)

// =============================================================================
// PreviewModel - Live gallery preview
// =============================================================================

// Messages
type (
	// feedDoneMsg reports the end of a feed operation.
	feedDoneMsg struct{ err error }
	// reflowMsg reports that the controller produced a new state.
	reflowMsg struct{}
)

// PreviewModel is the bubbletea model for the gallery preview. The terminal
// is attached to the controller as its container, so resizes reflow the
// columns; scrolling to the bottom loads the next page.
type PreviewModel struct {
	ctx  context.Context
	feed *gallery.Feed
	ctrl *masonry.Controller
	term *terminal

	keys     PreviewKeys
	help     help.Model
	viewport viewport.Model

	width, height int
	busy          bool
	err           error
	reflows       *atomic.Int64
	changed       chan struct{}
	detach        func()
}

// NewPreviewModel creates a preview over feed, whose sink must be ctrl.
func NewPreviewModel(ctx context.Context, feed *gallery.Feed, ctrl *masonry.Controller, cellPx float64) PreviewModel {
	m := PreviewModel{
		ctx:      ctx,
		feed:     feed,
		ctrl:     ctrl,
		term:     newTerminal(cellPx),
		keys:     DefaultPreviewKeys(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
		reflows:  new(atomic.Int64),
		changed:  make(chan struct{}, 1),
	}
	reflows, changed := m.reflows, m.changed
	// Subscribers run synchronously inside controller calls, some of them
	// made from Update, so they must not block.
	ctrl.Subscribe(func(masonry.State) {
		reflows.Add(1)
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	m.detach = ctrl.Attach(m.term)
	return m
}

// Close detaches the terminal from the controller, stopping any pending
// coalesced resize. It is safe to call more than once.
func (m PreviewModel) Close() {
	if m.detach != nil {
		m.detach()
	}
}

func (m PreviewModel) Init() tea.Cmd {
	return tea.Batch(m.run(m.feed.Load), m.awaitReflow())
}

// awaitReflow waits for the next controller state change.
func (m PreviewModel) awaitReflow() tea.Cmd {
	ctx, changed := m.ctx, m.changed
	return func() tea.Msg {
		select {
		case <-changed:
			return reflowMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-2)
		m.term.resize(msg.Width)
		m.refresh()
		return m, m.fill()

	case reflowMsg:
		m.refresh()
		return m, tea.Batch(m.awaitReflow(), m.fill())

	case feedDoneMsg:
		m.busy = false
		m.err = msg.err
		m.refresh()
		return m, m.fill()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.viewport.Height = max(1, m.height-1-lipgloss.Height(m.footer()))
			return m, nil
		case key.Matches(msg, m.keys.More):
			return m, m.loadMore()
		case key.Matches(msg, m.keys.Refresh):
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.run(m.feed.Refresh)
		case key.Matches(msg, m.keys.ClearError):
			m.feed.ClearError()
			m.err = nil
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if m.viewport.AtBottom() {
		return m, tea.Batch(cmd, m.loadMore())
	}
	return m, cmd
}

// run executes a feed operation off the update loop.
func (m *PreviewModel) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return feedDoneMsg{err: op(ctx)} }
}

func (m *PreviewModel) loadMore() tea.Cmd {
	if m.busy || m.err != nil || m.feed.EndOfList() {
		return nil
	}
	m.busy = true
	return m.run(m.feed.LoadMore)
}

// fill loads further pages while the gallery does not fill the screen.
func (m *PreviewModel) fill() tea.Cmd {
	if m.height == 0 || m.viewport.TotalLineCount() > m.viewport.Height {
		return nil
	}
	return m.loadMore()
}

// refresh re-renders the current layout into the viewport.
func (m *PreviewModel) refresh() {
	if m.width == 0 {
		return
	}
	snap := m.feed.Snapshot()
	content := render.RenderText(m.ctrl.Layout(),
		render.WithTextWidth(m.width),
		render.WithMeta(pipeline.BuildMeta(snap.Visible)))
	if content == "" {
		content = previewStatusStyle.Render("No items to show.")
	}
	m.viewport.SetContent(content)
}

func (m PreviewModel) View() string {
	if m.width == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), m.viewport.View(), m.footer())
}

func (m PreviewModel) header() string {
	st := m.ctrl.State()
	title := StyleTitle.Render(appName)
	info := fmt.Sprintf("%s · %d cols × %.0fpx · %d reflows",
		pluralize(st.Columns.Len(), "item"), st.NumCols, st.ColWidth, m.reflows.Load())
	if st.Phase == masonry.Unmeasured {
		info += " · unmeasured"
	}
	return title + " " + previewStatusStyle.Render(info)
}

func (m PreviewModel) footer() string {
	var status string
	snap := m.feed.Snapshot()
	switch {
	case m.err != nil:
		status = previewErrorStyle.Render("error: " + m.err.Error())
	case snap.LoadingInitial:
		status = previewStatusStyle.Render("loading…")
	case snap.FetchingMore:
		status = previewStatusStyle.Render("loading more…")
	case snap.EndOfList:
		status = previewStatusStyle.Render("end of gallery")
	}
	parts := []string{m.help.View(m.keys)}
	if status != "" {
		parts = append([]string{status}, parts...)
	}
	return strings.Join(parts, "  ")
}
