package domain

import (
	"fmt"
	"strings"

	apperrors "beatmark/internal/platform/errors"
)

type Mode int

const (
	ModeDrag Mode = iota
	ModeAdd
	ModeRemove
	ModeFind
)

var modeNames = [...]string{"drag", "add", "remove", "find"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) Validate() error {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Errorf("%w: unknown mode %d", apperrors.ErrInvalidInput, int(m))
	}
	return nil
}

// Interval reports whether the mode selects a time interval.
func (m Mode) Interval() bool {
	return m == ModeRemove || m == ModeFind
}

func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", apperrors.ErrInvalidInput, s)
}
