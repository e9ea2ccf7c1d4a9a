// Package config holds the budget constants of a simulated control-loop run.
//
// The compiled-in defaults reproduce the reference loop: 100000 sensor points,
// a 10 ms budget, 3.9 ms of modeled subsystem overhead and a 1.5 ms forced
// delay over 10 cycles, with a 2 ms jitter spike on the last cycle. A YAML
// profile may override any subset of them for the comparison tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Compiled-in defaults
const (
	DefaultPoints        = 100000
	DefaultBudgetMs      = 10.0
	DefaultOverheadMs    = 3.9
	DefaultForcedDelayMs = 1.5
	DefaultJitterMs      = 2.0
	DefaultCycles        = 10

	// SpikeLastCycle designates the final cycle of the run as the spike cycle.
	SpikeLastCycle = 0
)

// Bounds enforced by Validate
const (
	MaxPoints  = 1 << 24
	MaxCycles  = 1000000
	MaxDelayMs = 1000.0
)

// ErrInvalidProfile wraps every validation failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile is the full set of run constants. It is read-only once a run starts.
type Profile struct {
	Points        int      `yaml:"points"`
	BudgetMs      float64  `yaml:"budget_ms"`
	OverheadMs    float64  `yaml:"overhead_ms"`
	ForcedDelayMs float64  `yaml:"forced_delay_ms"`
	JitterMs      float64  `yaml:"jitter_ms"`
	SpikeCycle    int      `yaml:"spike_cycle"`
	Cycles        int      `yaml:"cycles"`
	Variants      []string `yaml:"variants,omitempty"`
}

// Default returns the compiled-in profile.
func Default() Profile {
	return Profile{
		Points:        DefaultPoints,
		BudgetMs:      DefaultBudgetMs,
		OverheadMs:    DefaultOverheadMs,
		ForcedDelayMs: DefaultForcedDelayMs,
		JitterMs:      DefaultJitterMs,
		SpikeCycle:    SpikeLastCycle,
		Cycles:        DefaultCycles,
	}
}

// Load reads a YAML profile from path. Keys absent from the file keep their
// compiled-in defaults.
func Load(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses a YAML profile over the defaults and validates it. Unknown
// keys are rejected so that typos do not silently fall back to defaults.
func Decode(r io.Reader) (Profile, error) {
	p := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Encode writes p as YAML.
func (p Profile) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks every field against its bounds.
func (p Profile) Validate() error {
	switch {
	case p.Points <= 0 || p.Points > MaxPoints:
		return fmt.Errorf("%w: points must be in [1, %d], got %d", ErrInvalidProfile, MaxPoints, p.Points)
	case p.Cycles <= 0 || p.Cycles > MaxCycles:
		return fmt.Errorf("%w: cycles must be in [1, %d], got %d", ErrInvalidProfile, MaxCycles, p.Cycles)
	case !finite(p.BudgetMs) || p.BudgetMs <= 0:
		return fmt.Errorf("%w: budget_ms must be positive, got %v", ErrInvalidProfile, p.BudgetMs)
	case !finite(p.OverheadMs) || p.OverheadMs < 0:
		return fmt.Errorf("%w: overhead_ms must not be negative, got %v", ErrInvalidProfile, p.OverheadMs)
	case !finite(p.ForcedDelayMs) || p.ForcedDelayMs < 0 || p.ForcedDelayMs > MaxDelayMs:
		return fmt.Errorf("%w: forced_delay_ms must be in [0, %v], got %v", ErrInvalidProfile, MaxDelayMs, p.ForcedDelayMs)
	case !finite(p.JitterMs) || p.JitterMs < 0:
		return fmt.Errorf("%w: jitter_ms must not be negative, got %v", ErrInvalidProfile, p.JitterMs)
	case p.SpikeCycle < 0 || p.SpikeCycle > p.Cycles:
		return fmt.Errorf("%w: spike_cycle must be in [0, %d], got %d", ErrInvalidProfile, p.Cycles, p.SpikeCycle)
	}
	return nil
}

// ForcedDelay returns the blocking wait performed every cycle.
func (p Profile) ForcedDelay() time.Duration {
	return MillisToDuration(p.ForcedDelayMs)
}

// SpikeIndex returns the 1-based cycle that carries the jitter addend, or 0
// when jitter is disabled.
func (p Profile) SpikeIndex() int {
	if p.JitterMs <= 0 {
		return 0
	}
	if p.SpikeCycle == SpikeLastCycle {
		return p.Cycles
	}
	return p.SpikeCycle
}

// IsSpike reports whether 1-based cycle carries the jitter addend.
func (p Profile) IsSpike(cycle int) bool {
	idx := p.SpikeIndex()
	return idx != 0 && cycle == idx
}

// FloorMs is the smallest total a cycle can report: overhead plus forced delay.
func (p Profile) FloorMs() float64 {
	return p.OverheadMs + p.ForcedDelayMs
}

// MillisToDuration converts fractional milliseconds to a Duration, rounding to
// the nearest nanosecond.
func MillisToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
