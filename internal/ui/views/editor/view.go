package editor

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type EditorPort interface {
	SetMode(ctx context.Context, mode string) (sessiondto.ChangeSet, error)
	Navigate(ctx context.Context, kind, label string) (sessiondto.ChangeSet, error)
	Zoom(ctx context.Context, in bool, factor float64) (sessiondto.ChangeSet, error)
	ZoomTo(ctx context.Context, start, end float64) (sessiondto.ChangeSet, error)
	Relabel(ctx context.Context, x, unitsPerPixel float64, label string) (sessiondto.ChangeSet, error)
	Pointer(ctx context.Context, phase, target string, x, unitsPerPixel float64, outside bool) (sessiondto.ChangeSet, error)
	Snapshot(ctx context.Context) (sessiondto.SnapshotOutput, error)
	Trace(ctx context.Context, secondary bool, from, to float64, columns int) (sessiondto.TraceOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// StatusMsg carries the outcome of an editing input to the status bar.
type StatusMsg struct {
	Text string
	Err  error
}

const (
	targetDetail   = "detail"
	targetOverview = "overview"

	headerRows    = 1
	secondaryRows = 2
	// header, handles, bands, secondary title and rows, overview bar and axis
	fixedRows = headerRows + 1 + 1 + 1 + secondaryRows + 2
)

// ─── model ───────────────────────────────────────────────────────────────────

// Model draws the detail trace, the marker handles, the epoch bands, the
// secondary strip and the overview bar, and turns keys and mouse input into
// session commands. Calls into the port are synchronous: pointer phases must
// reach the session in order.
type Model struct {
	port      EditorPort
	snap      sessiondto.SnapshotOutput
	detail    sessiondto.TraceOutput
	secondary sessiondto.TraceOutput
	overview  sessiondto.TraceOutput
	pressed   string
	cursor    float64
	loaded    bool
	width     int
	height    int
}

func New(port EditorPort) Model {
	return Model{port: port}
}

// Snapshot is the last frame read from the session.
func (m Model) Snapshot() sessiondto.SnapshotOutput { return m.snap }

// Loaded reports whether a dataset frame has been read.
func (m Model) Loaded() bool { return m.loaded }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Refresh()

	case tea.KeyMsg:
		cmd := m.handleKey(msg.String())
		return m, cmd

	case tea.MouseMsg:
		cmd := m.handleMouse(msg)
		return m, cmd
	}
	return m, nil
}

// Refresh rereads the snapshot and the traces at the current size.
func (m *Model) Refresh() {
	if m.port == nil || m.width <= 0 {
		return
	}
	ctx := context.Background()
	snap, err := m.port.Snapshot(ctx)
	if err != nil {
		m.loaded = false
		return
	}
	m.snap = snap
	m.loaded = true
	if m.cursor < snap.WindowStart || m.cursor > snap.WindowEnd {
		m.cursor = (snap.WindowStart + snap.WindowEnd) / 2
	}
	m.detail, _ = m.port.Trace(ctx, false, snap.WindowStart, snap.WindowEnd, m.width)
	m.secondary, _ = m.port.Trace(ctx, true, snap.WindowStart, snap.WindowEnd, m.width)
	m.overview, _ = m.port.Trace(ctx, false, snap.BoundsStart, snap.BoundsEnd, m.width)
}

// ─── commands reachable from the palette ─────────────────────────────────────

func (m *Model) SetMode(mode string) tea.Cmd {
	return m.apply(m.port.SetMode(context.Background(), mode))
}

func (m *Model) Navigate(kind, label string) tea.Cmd {
	return m.apply(m.port.Navigate(context.Background(), kind, label))
}

func (m *Model) ZoomTo(start, end float64) tea.Cmd {
	return m.apply(m.port.ZoomTo(context.Background(), start, end))
}

// Goto centres the window on t, keeping its width.
func (m *Model) Goto(t float64) tea.Cmd {
	half := (m.snap.WindowEnd - m.snap.WindowStart) / 2
	return m.ZoomTo(t-half, t+half)
}

// Relabel changes the label of the marker under the cursor.
func (m *Model) Relabel(label string) tea.Cmd {
	return m.apply(m.port.Relabel(context.Background(), m.cursor, m.unitsPerPixel(), label))
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if !m.loaded {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			theme.Muted.Render("No dataset loaded"))
	}
	lines := make([]string, 0, m.height)
	lines = append(lines, m.renderHeader())
	for _, row := range PlotCells(m.detail, m.detailRows()) {
		lines = append(lines, m.renderDetailRow(row))
	}
	lines = append(lines, m.renderHandles(), m.renderBands())

	if m.secondary.Available {
		lines = append(lines, theme.Muted.Render("secondary"))
		for _, row := range PlotCells(m.secondary, secondaryRows) {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.Teal).Render(string(row)))
		}
	} else {
		lines = append(lines, theme.Muted.Render("no secondary series"))
		for i := 0; i < secondaryRows; i++ {
			lines = append(lines, "")
		}
	}
	lines = append(lines, m.renderOverview(), m.renderAxis())
	return strings.Join(lines, "\n")
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) detailRows() int {
	return max(3, m.height-fixedRows)
}

func (m Model) unitsPerPixel() float64 {
	if m.width <= 0 {
		return 0
	}
	return (m.snap.WindowEnd - m.snap.WindowStart) / float64(m.width)
}

func (m *Model) apply(cs sessiondto.ChangeSet, err error) tea.Cmd {
	m.Refresh()
	if err != nil {
		return status("", err)
	}
	return status(Describe(cs), nil)
}

func (m *Model) handleKey(k string) tea.Cmd {
	if m.port == nil || !m.loaded {
		return nil
	}
	switch k {
	case "d":
		return m.SetMode("drag")
	case "a":
		return m.SetMode("add")
	case "r":
		return m.SetMode("remove")
	case "f":
		return m.SetMode("find")
	case "h", "left":
		return m.Navigate("page_left", "")
	case "l", "right":
		return m.Navigate("page_right", "")
	case "g", "home":
		return m.Navigate("jump_start", "")
	case "G", "end":
		return m.Navigate("jump_end", "")
	case "n":
		return m.Navigate("next_marker", "")
	case "N":
		return m.Navigate("prev_marker", "")
	case "+", "=":
		return m.apply(m.port.Zoom(context.Background(), true, 0))
	case "-":
		return m.apply(m.port.Zoom(context.Background(), false, 0))
	case "esc":
		if m.pressed != "" {
			target := m.pressed
			m.pressed = ""
			return m.apply(m.port.Pointer(context.Background(), "cancel", target, m.cursor, m.unitsPerPixel(), false))
		}
	}
	return nil
}

// handleMouse expects Y relative to the top of this view.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.port == nil || !m.loaded {
		return nil
	}
	ctx := context.Background()
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		return m.apply(m.port.Zoom(ctx, true, 0))
	case msg.Button == tea.MouseButtonWheelDown:
		return m.apply(m.port.Zoom(ctx, false, 0))

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		target := m.targetAt(msg.Y)
		if target == "" {
			return nil
		}
		m.pressed = target
		x := m.timeAt(target, msg.X)
		if target == targetDetail {
			m.cursor = x
		}
		return m.apply(m.port.Pointer(ctx, "down", target, x, m.unitsPerPixel(), false))

	case msg.Action == tea.MouseActionMotion:
		if m.pressed == "" {
			if m.targetAt(msg.Y) == targetDetail {
				m.cursor = m.timeAt(targetDetail, msg.X)
			}
			return nil
		}
		x := m.timeAt(m.pressed, msg.X)
		if m.pressed == targetDetail {
			m.cursor = x
		}
		// Moves only change the frame; the status bar keeps the last report.
		_, err := m.port.Pointer(ctx, "move", m.pressed, x, m.unitsPerPixel(), m.outside(m.pressed, msg.X, msg.Y))
		m.Refresh()
		if err != nil {
			return status("", err)
		}
		return nil

	case msg.Action == tea.MouseActionRelease:
		if m.pressed == "" {
			return nil
		}
		target := m.pressed
		m.pressed = ""
		x := m.timeAt(target, msg.X)
		return m.apply(m.port.Pointer(ctx, "up", target, x, m.unitsPerPixel(), m.outside(target, msg.X, msg.Y)))
	}
	return nil
}

func (m Model) overviewRow() int {
	return headerRows + m.detailRows() + 1 + 1 + 1 + secondaryRows
}

func (m Model) targetAt(y int) string {
	switch {
	case y >= headerRows && y <= headerRows+m.detailRows():
		return targetDetail
	case y == m.overviewRow():
		return targetOverview
	}
	return ""
}

func (m Model) outside(target string, x, y int) bool {
	if x < 0 || x >= m.width {
		return true
	}
	return m.targetAt(y) != target
}

func (m Model) timeAt(target string, col int) float64 {
	if target == targetOverview {
		return ColumnTime(col, m.snap.BoundsStart, m.snap.BoundsEnd, m.width)
	}
	return ColumnTime(col, m.snap.WindowStart, m.snap.WindowEnd, m.width)
}

func (m Model) shaded(col int) bool {
	sh := m.snap.Shading
	if !sh.Active {
		return false
	}
	t := ColumnTime(col, m.snap.WindowStart, m.snap.WindowEnd, m.width)
	return t >= sh.Lo && t <= sh.Hi
}

func (m Model) renderHeader() string {
	name := truncate.StringWithTail(m.snap.DatasetName, uint(max(8, m.width/3)), "…")
	left := theme.Title.Render(name)
	right := theme.Muted.Render(fmt.Sprintf("%.3f – %.3f s   %d markers   cursor %.3f s",
		m.snap.WindowStart, m.snap.WindowEnd, m.snap.Markers, m.cursor))
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderDetailRow(row []rune) string {
	var sb strings.Builder
	for c, r := range row {
		style := theme.Trace
		if m.shaded(c) {
			style = style.Background(theme.Surface1)
		}
		sb.WriteString(style.Render(string(r)))
	}
	return sb.String()
}

func (m Model) renderHandles() string {
	cells := make([]string, m.width)
	for c := range cells {
		cells[c] = " "
	}
	for _, h := range m.snap.Handles {
		col, ok := Column(h.Time, m.snap.WindowStart, m.snap.WindowEnd, m.width)
		if !ok {
			continue
		}
		label := truncate.String(h.Label, 1)
		if h.Dragging {
			cells[col] = theme.Hot.Render(label)
			continue
		}
		cells[col] = theme.LabelStyle(h.Label).Render(label)
	}
	return strings.Join(cells, "")
}

func (m Model) renderBands() string {
	var sb strings.Builder
	prev := ""
	for c := 0; c < m.width; c++ {
		name := ""
		if c < len(m.detail.Epochs) {
			name = m.detail.Epochs[c]
		}
		if name == "" {
			sb.WriteString(" ")
			prev = ""
			continue
		}
		style := lipgloss.NewStyle().Foreground(theme.EpochColor(name))
		if name != prev {
			sb.WriteString(style.Render("▌"))
		} else {
			sb.WriteString(style.Render("▀"))
		}
		prev = name
	}
	return sb.String()
}

func (m Model) renderOverview() string {
	line := Sparkline(m.overview)
	if len(line) == 0 {
		return ""
	}
	lo, okLo := Column(m.snap.WindowStart, m.snap.BoundsStart, m.snap.BoundsEnd, m.width)
	hi, okHi := Column(m.snap.WindowEnd, m.snap.BoundsStart, m.snap.BoundsEnd, m.width)
	if !okLo {
		lo = 0
	}
	if !okHi {
		hi = m.width - 1
	}
	inside := lipgloss.NewStyle().Background(theme.Surface1).Foreground(theme.Lavender)
	if m.snap.Overview != "none" && m.snap.Overview != "" {
		inside = inside.Foreground(theme.Peach)
	}
	var sb strings.Builder
	for c, r := range line {
		if c >= lo && c <= hi {
			sb.WriteString(inside.Render(string(r)))
			continue
		}
		sb.WriteString(theme.Muted.Render(string(r)))
	}
	return sb.String()
}

func (m Model) renderAxis() string {
	left := fmt.Sprintf("%.1f s", m.snap.BoundsStart)
	right := fmt.Sprintf("%.1f s", m.snap.BoundsEnd)
	gap := max(1, m.width-len(left)-len(right))
	return theme.Muted.Render(left + strings.Repeat(" ", gap) + right)
}

// Describe turns a change set into one status line.
func Describe(cs sessiondto.ChangeSet) string {
	if len(cs.Changes) == 0 {
		if cs.Note != "" {
			return cs.Note
		}
		return "no change"
	}
	parts := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		switch c.Kind {
		case "added":
			parts = append(parts, fmt.Sprintf("added #%d at %.3f s", c.MarkerID, c.NewTime))
		case "removed":
			parts = append(parts, fmt.Sprintf("removed #%d", c.MarkerID))
		case "dragged":
			parts = append(parts, fmt.Sprintf("moved #%d %.3f → %.3f s", c.MarkerID, c.OldTime, c.NewTime))
		case "relabeled":
			parts = append(parts, fmt.Sprintf("relabeled #%d %s", c.MarkerID, c.Detail))
		case "window":
			parts = append(parts, "window "+c.Detail)
		default:
			parts = append(parts, c.Kind+" "+c.Detail)
		}
	}
	if len(parts) > 3 {
		parts = append(parts[:3], fmt.Sprintf("+%d more", len(parts)-3))
	}
	return strings.Join(parts, ", ")
}

func status(text string, err error) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text, Err: err} }
}
