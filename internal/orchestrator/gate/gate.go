// Package gate decides per frame whether to run recognition or reuse the
// cached detection result.
package gate

import "time"

// Default throttling parameters.
const (
	DefaultCooldown = 150 * time.Millisecond
	DefaultMaxSkip  = 10
)

// Decision is the outcome of a gate check.
type Decision int

const (
	Reuse Decision = iota
	Process
)

func (d Decision) String() string {
	if d == Process {
		return "process"
	}
	return "reuse"
}

// Config holds throttling parameters.
type Config struct {
	Cooldown time.Duration // minimum time between Process decisions
	MaxSkip  int           // cache reuses allowed after the cooldown
}

// DefaultConfig returns the standard throttling parameters.
func DefaultConfig() Config {
	return Config{Cooldown: DefaultCooldown, MaxSkip: DefaultMaxSkip}
}

// ThrottleState is the gate's mutable state.
type ThrottleState struct {
	LastProcessed time.Time
	Skipped       int
}

// Decide applies the throttling rules to s and returns the decision.
// s is only mutated on the skip and process branches.
func Decide(s *ThrottleState, cfg Config, now time.Time, cacheNonEmpty bool) Decision {
	if now.Sub(s.LastProcessed) < cfg.Cooldown {
		return Reuse
	}
	if cacheNonEmpty && s.Skipped < cfg.MaxSkip {
		s.Skipped++
		return Reuse
	}
	s.Skipped = 0
	s.LastProcessed = now
	return Process
}

// Gate owns a ThrottleState. Not safe for concurrent use; it belongs to the
// detection driver goroutine.
type Gate struct {
	cfg   Config
	state ThrottleState
}

// New creates a gate. Negative values are clamped to zero.
func New(cfg Config) *Gate {
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.MaxSkip < 0 {
		cfg.MaxSkip = 0
	}
	return &Gate{cfg: cfg}
}

// Decide returns whether the frame arriving at now should be processed.
func (g *Gate) Decide(now time.Time, cacheNonEmpty bool) Decision {
	return Decide(&g.state, g.cfg, now, cacheNonEmpty)
}

// State returns a copy of the throttle state.
func (g *Gate) State() ThrottleState { return g.state }

// Config returns the gate's parameters.
func (g *Gate) Config() Config { return g.cfg }
