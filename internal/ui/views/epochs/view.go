package epochs

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type EpochsPort interface {
	Epochs(ctx context.Context) ([]sessiondto.EpochOutput, error)
	Selection(ctx context.Context) ([]sessiondto.SelectionOutput, error)
	Spans(ctx context.Context) ([]sessiondto.SpanOutput, error)
	ToggleEpoch(ctx context.Context, name string) (sessiondto.ChangeSet, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Epochs    []sessiondto.EpochOutput
	Selection []sessiondto.SelectionOutput
	Spans  []sessiondto.SpanOutput
	Err    error
}

// ToggledMsg reports a selection change so other views can refresh.
type ToggledMsg struct {
	Name string
	Err  error
}

// ─── list item ───────────────────────────────────────────────────────────────

type epochItem struct {
	epoch sessiondto.EpochOutput
	count int
}

func (i epochItem) Title() string {
	box := "[ ]"
	if i.epoch.Active {
		box = "[x]"
	}
	return box + " " + i.epoch.Name
}

func (i epochItem) Description() string {
	if i.epoch.Name == "None" {
		return fmt.Sprintf("markers outside every active epoch  %d", i.count)
	}
	return fmt.Sprintf("%.3f – %.3f s  %d markers", i.epoch.Start, i.epoch.End, i.count)
}

func (i epochItem) FilterValue() string { return i.epoch.Name }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    EpochsPort
	list    list.Model
	loading bool
	width   int
	height  int
}

func New(port EpochsPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Epochs"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return Model{port: port, list: l, loading: true}
}

func (m Model) Init() tea.Cmd {
	return m.Load()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.height)

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Epochs: " + msg.Err.Error()
			return m, nil
		}
		m.list.Title = "Epochs"
		counts := make(map[string]int, len(msg.Spans))
		for _, s := range msg.Spans {
			counts[s.Name] = s.Count
		}
		listed := make(map[string]bool, len(msg.Epochs))
		items := make([]list.Item, 0, len(msg.Selection))
		for _, e := range msg.Epochs {
			listed[e.Name] = true
			items = append(items, epochItem{epoch: e, count: counts[e.Name]})
		}
		// Selection entries without an interval, such as None.
		for _, sel := range msg.Selection {
			if listed[sel.Name] {
				continue
			}
			items = append(items, epochItem{epoch: sessiondto.EpochOutput{Name: sel.Name, Active: sel.Active}, count: counts[sel.Name]})
		}
		cmds = append(cmds, m.list.SetItems(items))

	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch msg.String() {
		case " ", "enter", "x":
			if item, ok := m.list.SelectedItem().(epochItem); ok {
				_, err := m.port.ToggleEpoch(context.Background(), item.epoch.Name)
				name := item.epoch.Name
				return m, tea.Batch(m.Load(), func() tea.Msg { return ToggledMsg{Name: name, Err: err} })
			}
		}
	}

	var lCmd tea.Cmd
	m.list, lCmd = m.list.Update(msg)
	cmds = append(cmds, lCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			theme.Muted.Render("No dataset loaded"))
	}
	return m.list.View()
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Load reads the epochs and their marker counts.
func (m Model) Load() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		epochs, err := m.port.Epochs(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		selection, err := m.port.Selection(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		spans, err := m.port.Spans(ctx)
		return LoadedMsg{Epochs: epochs, Selection: selection, Spans: spans, Err: err}
	}
}
