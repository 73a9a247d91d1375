package domain

import (
	"fmt"

	apperrors "beatmark/internal/platform/errors"
)

type CommandKind string

const (
	CommandMode          CommandKind = "mode"
	CommandPageLeft      CommandKind = "page_left"
	CommandPageRight     CommandKind = "page_right"
	CommandJumpStart     CommandKind = "jump_start"
	CommandJumpEnd       CommandKind = "jump_end"
	CommandZoomIn        CommandKind = "zoom_in"
	CommandZoomOut       CommandKind = "zoom_out"
	CommandNextMarker    CommandKind = "next_marker"
	CommandPrevMarker    CommandKind = "prev_marker"
	CommandToggleEpoch   CommandKind = "toggle_epoch"
	CommandSetEpoch      CommandKind = "set_epoch"
	CommandZoomSelection CommandKind = "zoom_selection"
	CommandRelabel       CommandKind = "relabel"
)

var commandKinds = map[CommandKind]struct{}{
	CommandMode: {}, CommandPageLeft: {}, CommandPageRight: {}, CommandJumpStart: {}, CommandJumpEnd: {},
	CommandZoomIn: {}, CommandZoomOut: {}, CommandNextMarker: {}, CommandPrevMarker: {},
	CommandToggleEpoch: {}, CommandSetEpoch: {}, CommandZoomSelection: {}, CommandRelabel: {},
}

// Command is one entry of the control surface. Only the fields its Kind
// reads are used.
type Command struct {
	Kind   CommandKind
	Mode   string
	Factor float64
	Label  string
	Epoch  string
	Active bool
	Start  float64
	End    float64
	X      float64
	// UnitsPerPixel scales the hit tolerance for CommandRelabel.
	UnitsPerPixel float64
}

func (c Command) Validate() error {
	if _, ok := commandKinds[c.Kind]; !ok {
		return fmt.Errorf("%w: unknown command %q", apperrors.ErrInvalidInput, c.Kind)
	}
	switch c.Kind {
	case CommandMode:
		if c.Mode == "" {
			return fmt.Errorf("%w: mode command needs a mode", apperrors.ErrInvalidInput)
		}
	case CommandToggleEpoch, CommandSetEpoch:
		if c.Epoch == "" {
			return fmt.Errorf("%w: %s needs an epoch name", apperrors.ErrInvalidInput, c.Kind)
		}
	case CommandRelabel:
		if c.Label == "" {
			return fmt.Errorf("%w: relabel needs a label", apperrors.ErrInvalidInput)
		}
	}
	return nil
}

type PointerPhase string

const (
	PhaseDown   PointerPhase = "down"
	PhaseMove   PointerPhase = "move"
	PhaseUp     PointerPhase = "up"
	PhaseCancel PointerPhase = "cancel"
)

type PointerTarget string

const (
	TargetDetail   PointerTarget = "detail"
	TargetOverview PointerTarget = "overview"
)

type PointerEvent struct {
	Phase         PointerPhase
	Target        PointerTarget
	X             float64
	UnitsPerPixel float64
	Outside       bool
}

func (p PointerEvent) Validate() error {
	switch p.Phase {
	case PhaseDown, PhaseMove, PhaseUp, PhaseCancel:
	default:
		return fmt.Errorf("%w: pointer phase %q", apperrors.ErrInvalidInput, p.Phase)
	}
	switch p.Target {
	case TargetDetail, TargetOverview:
	default:
		return fmt.Errorf("%w: pointer target %q", apperrors.ErrInvalidInput, p.Target)
	}
	return nil
}

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeDragged ChangeKind = "dragged"
	ChangeRelabel ChangeKind = "relabeled"
	ChangeWindow  ChangeKind = "window"
	ChangeMode    ChangeKind = "mode"
	ChangeEpoch   ChangeKind = "epoch"
)

// Change is one observable effect of a command or pointer event.
type Change struct {
	Kind     ChangeKind
	MarkerID int64
	OldTime  float64
	NewTime  float64
	Detail   string
}
