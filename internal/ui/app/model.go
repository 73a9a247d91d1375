package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aggregatedto "beatmark/internal/modules/aggregate/dto"
	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/components"
	"beatmark/internal/ui/theme"
	editorview "beatmark/internal/ui/views/editor"
	epochsview "beatmark/internal/ui/views/epochs"
	statsview "beatmark/internal/ui/views/stats"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.
// Sub-view ports are defined in their own packages and narrowed further.

type sessionPort interface {
	Open(ctx context.Context, path string, reset bool) (sessiondto.SessionOutput, error)
	SetMode(ctx context.Context, mode string) (sessiondto.ChangeSet, error)
	Navigate(ctx context.Context, kind, label string) (sessiondto.ChangeSet, error)
	Zoom(ctx context.Context, in bool, factor float64) (sessiondto.ChangeSet, error)
	ZoomTo(ctx context.Context, start, end float64) (sessiondto.ChangeSet, error)
	ToggleEpoch(ctx context.Context, name string) (sessiondto.ChangeSet, error)
	Relabel(ctx context.Context, x, unitsPerPixel float64, label string) (sessiondto.ChangeSet, error)
	Pointer(ctx context.Context, phase, target string, x, unitsPerPixel float64, outside bool) (sessiondto.ChangeSet, error)
	Snapshot(ctx context.Context) (sessiondto.SnapshotOutput, error)
	Trace(ctx context.Context, secondary bool, from, to float64, columns int) (sessiondto.TraceOutput, error)
	Epochs(ctx context.Context) ([]sessiondto.EpochOutput, error)
	Selection(ctx context.Context) ([]sessiondto.SelectionOutput, error)
	Spans(ctx context.Context) ([]sessiondto.SpanOutput, error)
	Save(ctx context.Context) (sessiondto.SaveOutput, error)
	Stats(ctx context.Context, plugin string) (sessiondto.StatsOutput, error)
	Summary(ctx context.Context, plugin string) (sessiondto.SummaryOutput, error)
}

type pluginPort interface {
	List(ctx context.Context) ([]aggregatedto.PluginInfo, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabEditor tabID = iota
	tabEpochs
	tabStats
	tabCount
)

var tabLabels = [tabCount]string{
	"Editor", "Epochs", "Stats",
}

// tab bar plus its trailing newline
const tabBarHeight = 2

// ─── async messages ───────────────────────────────────────────────────────────

type openedMsg struct {
	out sessiondto.SessionOutput
	err error
}

type savedMsg struct {
	out sessiondto.SaveOutput
	err error
}

type summaryMsg struct {
	out sessiondto.SummaryOutput
	err error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Save    key.Binding
	Modes   key.Binding
	Page    key.Binding
	Jump    key.Binding
	Zoom    key.Binding
	Marker  key.Binding
	Toggle  key.Binding
	Copy    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save markers")),
		Modes:   key.NewBinding(key.WithKeys("d", "a", "r", "f"), key.WithHelp("d/a/r/f", "drag/add/remove/find")),
		Page:    key.NewBinding(key.WithKeys("h", "l"), key.WithHelp("h/l", "page")),
		Jump:    key.NewBinding(key.WithKeys("g", "G"), key.WithHelp("g/G", "start/end")),
		Zoom:    key.NewBinding(key.WithKeys("+", "-"), key.WithHelp("+/-", "zoom")),
		Marker:  key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n/N", "next/prev marker")),
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle epoch")),
		Copy:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy stats")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Modes, k.Page, k.Jump, k.Zoom, k.Marker},
		{k.Tab, k.Toggle, k.Copy, k.Save},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the global help
// overlay and the command palette. Editing goes through the session port;
// rendering is delegated to sub-views.
type Model struct {
	datasetPath string
	reset       bool

	session sessionPort

	editorView editorview.Model
	epochsView epochsview.Model
	statsView  statsview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	dataset   sessiondto.SessionOutput
	opened    bool
	quitArmed bool
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

func NewModel(datasetPath string, reset bool, session sessionPort, plugin pluginPort) Model {
	return Model{
		datasetPath: datasetPath,
		reset:       reset,
		session:     session,
		editorView:  editorview.New(session),
		epochsView:  epochsview.New(session),
		statsView:   statsview.New(statsPortBridge{session: session, plugin: plugin}),
		activeTab:   tabEditor,
		keys:        defaultKeys(),
		help:        help.New(),
		palette:     components.NewPalette(),
		status:      "opening " + datasetPath,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.openCmd(),
		m.statsView.Init(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.status = "open failed: " + msg.err.Error()
			return m, nil
		}
		m.opened = true
		m.dataset = msg.out
		m.status = fmt.Sprintf("opened %s: %d markers, %d epochs", msg.out.DatasetName, msg.out.Markers, len(msg.out.Epochs))
		if msg.out.Restored {
			m.status += " (restored)"
		}
		m.editorView.Refresh()
		return m, m.epochsView.Load()

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("saved %d markers", msg.out.Markers)
			m.quitArmed = false
		}
		m.editorView.Refresh()
		return m, nil

	case summaryMsg:
		if msg.err != nil {
			m.status = "summary failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("summary written to %s", msg.out.Path)
		}
		return m, nil

	case editorview.StatusMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
		} else {
			m.status = msg.Text
		}
		return m, nil

	case epochsview.ToggledMsg:
		if msg.Err != nil {
			m.status = "toggle " + msg.Name + ": " + msg.Err.Error()
		} else {
			m.status = "toggled " + msg.Name
		}
		m.editorView.Refresh()
		return m, nil

	case epochsview.LoadedMsg:
		var cmd tea.Cmd
		m.epochsView, cmd = m.epochsView.Update(msg)
		return m, cmd

	case statsview.ResultMsg, statsview.PluginsMsg:
		var cmd tea.Cmd
		m.statsView, cmd = m.statsView.Update(msg)
		return m, cmd

	case statsview.CopiedMsg:
		if msg.Err != nil {
			m.status = "copy failed: " + msg.Err.Error()
		} else {
			m.status = "statistics copied"
		}
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.MouseMsg:
		if m.activeTab != tabEditor || m.showHelp {
			return m, nil
		}
		msg.Y -= tabBarHeight
		var cmd tea.Cmd
		m.editorView, cmd = m.editorView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		// Yield to sub-view when its search filter is active.
		if m.subViewFiltering() {
			break
		}

		if msg.String() != "q" {
			m.quitArmed = false
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.editorView.Snapshot().Dirty && !m.quitArmed {
				m.quitArmed = true
				m.status = "unsaved markers: press q again to quit, s to save"
				return m, nil
			}
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			cmds = append(cmds, m.palette.Open())
			return m, tea.Batch(cmds...)
		case "s":
			return m, m.saveCmd()
		}
	}

	// Propagate the message to the active tab's sub-view.
	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabEditor:
		m.editorView, tabCmd = m.editorView.Update(msg)
	case tabEpochs:
		m.epochsView, tabCmd = m.epochsView.Update(msg)
	case tabStats:
		m.statsView, tabCmd = m.statsView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = lipgloss.NewStyle().Height(contentH).MaxHeight(contentH).Render(m.activeView())
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabEditor:
		return m.editorView.View()
	case tabEpochs:
		return m.epochsView.View()
	case tabStats:
		return m.statsView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "beatmark  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.opened {
		snap := m.editorView.Snapshot()
		badge := theme.ModeStyle(snap.Mode).Render(snap.Mode)
		if snap.Dirty {
			badge += theme.Hot.Render(" ●")
		}
		left = badge + "  " + left
	}
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)
	arg := func(i int) string {
		if len(parts) > i {
			return parts[i]
		}
		return ""
	}

	switch parts[0] {
	case "mode":
		if len(parts) < 2 {
			m.status = "usage: mode <drag|add|remove|find>"
			return m, nil
		}
		m.activeTab = tabEditor
		cmd := m.editorView.SetMode(parts[1])
		return m, cmd

	case "zoom":
		if len(parts) < 3 {
			m.status = "usage: zoom <start> <end>"
			return m, nil
		}
		start, err1 := strconv.ParseFloat(parts[1], 64)
		end, err2 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil {
			m.status = "zoom bounds must be numbers"
			return m, nil
		}
		m.activeTab = tabEditor
		cmd := m.editorView.ZoomTo(start, end)
		return m, cmd

	case "goto":
		t, err := strconv.ParseFloat(arg(1), 64)
		if err != nil {
			m.status = "usage: goto <seconds>"
			return m, nil
		}
		m.activeTab = tabEditor
		cmd := m.editorView.Goto(t)
		return m, cmd

	case "relabel":
		if len(parts) < 2 {
			m.status = "usage: relabel <label>"
			return m, nil
		}
		m.activeTab = tabEditor
		cmd := m.editorView.Relabel(parts[1])
		return m, cmd

	case "next":
		m.activeTab = tabEditor
		cmd := m.editorView.Navigate("next_marker", arg(1))
		return m, cmd

	case "prev":
		m.activeTab = tabEditor
		cmd := m.editorView.Navigate("prev_marker", arg(1))
		return m, cmd

	case "epoch":
		if len(parts) < 2 {
			m.status = "usage: epoch <name>"
			return m, nil
		}
		name := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		if _, err := m.session.ToggleEpoch(context.Background(), name); err != nil {
			m.status = "toggle " + name + ": " + err.Error()
			return m, nil
		}
		m.status = "toggled " + name
		m.editorView.Refresh()
		return m, m.epochsView.Load()

	case "save":
		return m, m.saveCmd()

	case "stats":
		m.activeTab = tabStats
		cmd := m.statsView.Run(arg(1))
		return m, cmd

	case "summary":
		return m, m.summaryCmd(arg(1))

	case "copy":
		return m, m.statsView.Copy()

	case "plugins":
		m.activeTab = tabStats
		m.status = "switched to Stats tab"
		return m, m.statsView.Init()

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// subViewFiltering reports whether the active tab's list filter is open,
// in which case global key bindings must yield to allow free typing.
func (m Model) subViewFiltering() bool {
	if m.activeTab == tabEpochs {
		return m.epochsView.Filtering()
	}
	return false
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 4}
	m.editorView, _ = m.editorView.Update(sz)
	m.epochsView, _ = m.epochsView.Update(sz)
	m.statsView, _ = m.statsView.Update(sz)
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) openCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Open(context.Background(), m.datasetPath, m.reset)
		return openedMsg{out: out, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Save(context.Background())
		return savedMsg{out: out, err: err}
	}
}

func (m Model) summaryCmd(plugin string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Summary(context.Background(), plugin)
		return summaryMsg{out: out, err: err}
	}
}

// ─── port bridges ─────────────────────────────────────────────────────────────

type statsPortBridge struct {
	session sessionPort
	plugin  pluginPort
}

func (b statsPortBridge) Stats(ctx context.Context, plugin string) (sessiondto.StatsOutput, error) {
	return b.session.Stats(ctx, plugin)
}

func (b statsPortBridge) Plugins(ctx context.Context) ([]aggregatedto.PluginInfo, error) {
	if b.plugin == nil {
		return nil, nil
	}
	return b.plugin.List(ctx)
}
