package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	aggregatedto "beatmark/internal/modules/aggregate/dto"
	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type StatsPort interface {
	Stats(ctx context.Context, plugin string) (sessiondto.StatsOutput, error)
	Plugins(ctx context.Context) ([]aggregatedto.PluginInfo, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type ResultMsg struct {
	Out sessiondto.StatsOutput
	Err error
}

type PluginsMsg struct {
	Plugins []aggregatedto.PluginInfo
	Err     error
}

// CopiedMsg reports a clipboard write of the current table.
type CopiedMsg struct{ Err error }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port     StatsPort
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	plugins  []aggregatedto.PluginInfo
	plugin   string
	markdown string
	errText  string
	loading  bool
	width    int
	height   int
}

func New(port StatsPort) Model {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)

	return Model{port: port, viewport: vp, spinner: sp, renderer: r}
}

func (m Model) Init() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return func() tea.Msg {
		plugins, err := m.port.Plugins(context.Background())
		return PluginsMsg{Plugins: plugins, Err: err}
	}
}

// Run aggregates the selected rows with plugin. An empty name reruns the
// last plugin, or the only enabled one.
func (m *Model) Run(plugin string) tea.Cmd {
	if plugin == "" {
		plugin = m.defaultPlugin()
	}
	if plugin == "" {
		m.errText = "no aggregator plugin; use :stats <plugin>"
		m.refreshContent()
		return nil
	}
	if m.port == nil {
		return nil
	}
	m.plugin = plugin
	m.loading = true
	port := m.port
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := port.Stats(context.Background(), plugin)
		return ResultMsg{Out: out, Err: err}
	})
}

// Markdown is the last rendered table source.
func (m Model) Markdown() string { return m.markdown }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.width
		m.viewport.Height = max(1, m.height-2)
		if r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(m.width),
		); err == nil {
			m.renderer = r
		}
		m.refreshContent()

	case PluginsMsg:
		if msg.Err != nil {
			m.errText = "plugins: " + msg.Err.Error()
		} else {
			m.plugins = msg.Plugins
		}
		m.refreshContent()

	case ResultMsg:
		m.loading = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.markdown = ""
		} else {
			m.errText = ""
			m.markdown = Table(msg.Out)
		}
		m.refreshContent()

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			cmd := m.Run("")
			return m, cmd
		case "y":
			return m, m.Copy()
		}

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var vCmd tea.Cmd
	m.viewport, vCmd = m.viewport.Update(msg)
	cmds = append(cmds, vCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Aggregating with "+m.plugin+"…")
	}
	hint := theme.Muted.Render("r: rerun  y: copy table  :stats <plugin>")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), "", hint)
}

// Copy writes the current table to the system clipboard.
func (m Model) Copy() tea.Cmd {
	text := m.markdown
	return func() tea.Msg {
		if text == "" {
			return CopiedMsg{Err: fmt.Errorf("nothing to copy")}
		}
		return CopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) defaultPlugin() string {
	if m.plugin != "" {
		return m.plugin
	}
	name := ""
	for _, p := range m.plugins {
		if !p.Enabled {
			continue
		}
		if name != "" {
			return ""
		}
		name = p.Name
	}
	return name
}

func (m *Model) refreshContent() {
	var body string
	switch {
	case m.errText != "":
		body = theme.Error.Render(m.errText)
	case m.markdown != "":
		body = m.markdown
		if m.renderer != nil {
			if out, err := m.renderer.Render(m.markdown); err == nil {
				body = out
			}
		}
	default:
		body = m.renderPlugins()
	}
	m.viewport.SetContent(body)
}

func (m Model) renderPlugins() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Aggregators") + "\n\n")
	if len(m.plugins) == 0 {
		sb.WriteString(theme.Muted.Render("no plugins installed"))
		return sb.String()
	}
	for _, p := range m.plugins {
		state := theme.Muted.Render("disabled")
		if p.Enabled {
			state = lipgloss.NewStyle().Foreground(theme.Green).Render("enabled")
		}
		fmt.Fprintf(&sb, "%s %s  %s\n", p.Name, theme.Muted.Render(p.Version), state)
	}
	return sb.String()
}

// Table renders per-epoch statistics as a markdown table, one row per epoch
// and one column per statistic.
func Table(out sessiondto.StatsOutput) string {
	seen := map[string]struct{}{}
	for _, e := range out.Epochs {
		for k := range e.Values {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Statistics (%s)\n\n", out.Plugin)
	if len(out.Epochs) == 0 {
		sb.WriteString("No selected markers.\n")
		return sb.String()
	}
	sb.WriteString("| epoch |")
	for _, c := range cols {
		sb.WriteString(" " + c + " |")
	}
	sb.WriteString("\n| --- |")
	for range cols {
		sb.WriteString(" ---: |")
	}
	sb.WriteString("\n")
	for _, e := range out.Epochs {
		sb.WriteString("| " + e.Epoch + " |")
		for _, c := range cols {
			v, ok := e.Values[c]
			if !ok {
				sb.WriteString(" – |")
				continue
			}
			fmt.Fprintf(&sb, " %.4g |", v)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
