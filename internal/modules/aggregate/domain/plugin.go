package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

type Capability string

const CapabilityAggregate Capability = "aggregate"

var (
	ErrPluginDisabled    = errors.New("plugin is disabled")
	ErrChecksumMismatch  = errors.New("plugin checksum mismatch")
	ErrCapabilityMissing = errors.New("plugin capability missing")
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrPluginTimeout     = errors.New("plugin timeout")
	ErrBadResult         = errors.New("plugin returned an invalid result")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Manifest is one entry of plugins.json.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Binary       string       `json:"binary"`
	SHA256       string       `json:"sha256"`
	Enabled      bool         `json:"enabled"`
	Capabilities []Capability `json:"capabilities"`
	TimeoutMS    int          `json:"timeout_ms,omitempty"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("plugin sha256 must be lowercase 64-char hex")
	}
	if m.TimeoutMS < 0 {
		return fmt.Errorf("plugin timeout must not be negative")
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("plugin capabilities are required")
	}
	seen := map[Capability]struct{}{}
	for _, capability := range m.Capabilities {
		if err := capability.Validate(); err != nil {
			return err
		}
		if _, ok := seen[capability]; ok {
			return fmt.Errorf("duplicate capability: %s", capability)
		}
		seen[capability] = struct{}{}
	}
	return nil
}

func (c Capability) Validate() error {
	switch c {
	case CapabilityAggregate:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

func (m Manifest) HasCapability(capability Capability) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type Metadata struct {
	Name         string
	Version      string
	Capabilities []Capability
	// Statistics names what the plugin can compute per epoch.
	Statistics []string
}

// Sample is one exploded row: a marker, the epoch it is counted under and the
// interval from the previous marker.
type Sample struct {
	MarkerID int64
	Time     float64
	Label    string
	Epoch    string
	IBI      float64
}

type Request struct {
	Samples []Sample
	// Statistics restricts the result when non-empty.
	Statistics []string
}

func (r Request) Validate() error {
	for _, s := range r.Samples {
		if s.Epoch == "" {
			return fmt.Errorf("sample for marker %d has no epoch", s.MarkerID)
		}
		if math.IsNaN(s.IBI) || math.IsInf(s.IBI, 0) || math.IsNaN(s.Time) || math.IsInf(s.Time, 0) {
			return fmt.Errorf("sample for marker %d is not finite", s.MarkerID)
		}
	}
	return nil
}

// Result maps an epoch name to named statistics.
type Result map[string]map[string]float64

func (r Result) Validate() error {
	for epoch, values := range r {
		if epoch == "" {
			return fmt.Errorf("%w: empty epoch name", ErrBadResult)
		}
		for name, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s.%s is not finite", ErrBadResult, epoch, name)
			}
		}
	}
	return nil
}
