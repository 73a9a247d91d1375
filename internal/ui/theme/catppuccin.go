package theme

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")
	Yellow   = lipgloss.Color("#f9e2af")
	Mauve    = lipgloss.Color("#cba6f7")
	Teal     = lipgloss.Color("#94e2d5")
	Pink     = lipgloss.Color("#f5c2e7")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	Error = lipgloss.NewStyle().Foreground(Red)
	Trace = lipgloss.NewStyle().Foreground(Green)
	Shade = lipgloss.NewStyle().Background(Surface1)
)

// Marker labels used by the bundled configuration. Anything else falls back
// to Text.
var labelColors = map[string]lipgloss.Color{
	"N": Sapphire,
	"L": Yellow,
	"S": Red,
	"T": Mauve,
	"1": Teal,
	"2": Pink,
}

var modeColors = map[string]lipgloss.Color{
	"drag":   Lavender,
	"add":    Green,
	"remove": Red,
	"find":   Yellow,
}

var epochPalette = []lipgloss.Color{Sapphire, Peach, Mauve, Teal, Yellow, Pink, Green, Lavender}

func LabelStyle(label string) lipgloss.Style {
	c, ok := labelColors[label]
	if !ok {
		c = Text
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

func ModeStyle(mode string) lipgloss.Style {
	c, ok := modeColors[mode]
	if !ok {
		c = Subtext0
	}
	return lipgloss.NewStyle().Background(c).Foreground(Base).Bold(true).Padding(0, 1)
}

// EpochColor picks a stable color for an epoch name.
func EpochColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return epochPalette[h.Sum32()%uint32(len(epochPalette))]
}
