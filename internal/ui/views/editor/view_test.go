package editor_test

import (
	"context"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	sessiondto "beatmark/internal/modules/session/dto"
	"beatmark/internal/ui/views/editor"
)

type pointerCall struct {
	phase   string
	target  string
	x       float64
	upp     float64
	outside bool
}

type fakePort struct {
	pointers []pointerCall
	modes    []string
	navs     []string
}

func (p *fakePort) SetMode(_ context.Context, mode string) (sessiondto.ChangeSet, error) {
	p.modes = append(p.modes, mode)
	return sessiondto.ChangeSet{Changes: []sessiondto.ChangeOutput{{Kind: "mode", Detail: mode}}}, nil
}

func (p *fakePort) Navigate(_ context.Context, kind, _ string) (sessiondto.ChangeSet, error) {
	p.navs = append(p.navs, kind)
	return sessiondto.ChangeSet{}, nil
}

func (p *fakePort) Zoom(context.Context, bool, float64) (sessiondto.ChangeSet, error) {
	return sessiondto.ChangeSet{}, nil
}

func (p *fakePort) ZoomTo(_ context.Context, start, end float64) (sessiondto.ChangeSet, error) {
	return sessiondto.ChangeSet{}, nil
}

func (p *fakePort) Relabel(context.Context, float64, float64, string) (sessiondto.ChangeSet, error) {
	return sessiondto.ChangeSet{}, nil
}

func (p *fakePort) Pointer(_ context.Context, phase, target string, x, upp float64, outside bool) (sessiondto.ChangeSet, error) {
	p.pointers = append(p.pointers, pointerCall{phase: phase, target: target, x: x, upp: upp, outside: outside})
	return sessiondto.ChangeSet{}, nil
}

func (p *fakePort) Snapshot(context.Context) (sessiondto.SnapshotOutput, error) {
	return sessiondto.SnapshotOutput{
		DatasetName: "subject",
		Mode:        "add",
		WindowStart: 0,
		WindowEnd:   8,
		BoundsStart: 0,
		BoundsEnd:   20,
		Overview:    "none",
	}, nil
}

func (p *fakePort) Trace(_ context.Context, secondary bool, _, _ float64, columns int) (sessiondto.TraceOutput, error) {
	return sessiondto.TraceOutput{Available: !secondary, Min: 0, Max: 1, Buckets: make([]sessiondto.BucketOutput, columns), Epochs: make([]string, columns)}, nil
}

func sized(port *fakePort) editor.Model {
	m := editor.New(port)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMouseDragBecomesDetailPointerEvents(t *testing.T) {
	t.Parallel()
	port := &fakePort{}
	m := sized(port)
	if !m.Loaded() {
		t.Fatalf("expected a loaded frame")
	}

	m, _ = m.Update(tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: 20, Y: 30, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	_, _ = m.Update(tea.MouseMsg{X: 20, Y: 6, Action: tea.MouseActionRelease})

	if len(port.pointers) != 3 {
		t.Fatalf("expected down, move, up; got %+v", port.pointers)
	}
	down, move, up := port.pointers[0], port.pointers[1], port.pointers[2]
	if down.phase != "down" || down.target != "detail" || !near(down.x, 1.05) || !near(down.upp, 0.1) {
		t.Fatalf("unexpected down %+v", down)
	}
	if move.phase != "move" || !move.outside || !near(move.x, 2.05) {
		t.Fatalf("unexpected move %+v", move)
	}
	if up.phase != "up" || up.outside || up.target != "detail" {
		t.Fatalf("unexpected up %+v", up)
	}
}

func TestMouseOnOverviewRowTargetsOverview(t *testing.T) {
	t.Parallel()
	port := &fakePort{}
	m := sized(port)

	// 20 rows: header, 12 detail rows, handles, bands, secondary title and
	// two rows, then the overview bar.
	_, _ = m.Update(tea.MouseMsg{X: 40, Y: 18, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(port.pointers) != 1 {
		t.Fatalf("expected one pointer event, got %+v", port.pointers)
	}
	got := port.pointers[0]
	if got.target != "overview" || !near(got.x, 10.125) {
		t.Fatalf("unexpected overview press %+v", got)
	}
}

func TestMouseOutsideTargetsIsIgnored(t *testing.T) {
	t.Parallel()
	port := &fakePort{}
	m := sized(port)
	_, _ = m.Update(tea.MouseMsg{X: 3, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if len(port.pointers) != 0 {
		t.Fatalf("header press should be ignored, got %+v", port.pointers)
	}
}

func TestKeysDispatchModesAndNavigation(t *testing.T) {
	t.Parallel()
	port := &fakePort{}
	m := sized(port)
	for _, k := range []string{"r", "l", "G", "n"} {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
	if len(port.modes) != 1 || port.modes[0] != "remove" {
		t.Fatalf("unexpected modes %v", port.modes)
	}
	want := []string{"page_right", "jump_end", "next_marker"}
	if len(port.navs) != len(want) {
		t.Fatalf("unexpected navigation %v", port.navs)
	}
	for i := range want {
		if port.navs[i] != want[i] {
			t.Fatalf("unexpected navigation %v", port.navs)
		}
	}
}
