// Package resilience guards calls to remote dependencies: a circuit breaker
// that trips on outages and backoff retry for readiness checks.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
)

// State represents circuit breaker state
type State uint32

const (
	Closed   State = iota // calls pass through
	Open                  // calls fail fast with ErrOpen
	HalfOpen              // probing the dependency
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// Outcome says how a finished call counts against the breaker.
type Outcome int

const (
	Ignored Outcome = iota // caller gave up; says nothing about the dependency
	Healthy                // dependency answered, even if with an error
	Outage                 // dependency is down or misbehaving
)

// ClassifyOutage counts transport failures and server faults as outages.
// Rejections of the request itself (bad frame, invalid argument, failed
// recognition of one image) prove the dependency is up.
func ClassifyOutage(err error) Outcome {
	if err == nil {
		return Healthy
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Ignored
	}
	switch apperrors.CodeOf(apperrors.FromGRPCError(err)) {
	case apperrors.CodeCancelled:
		return Ignored
	case apperrors.CodeUnavailable, apperrors.CodeTimeout, apperrors.CodeInternal,
		apperrors.CodeRecognitionUnavailable, apperrors.CodeUnknown:
		return Outage
	default:
		return Healthy
	}
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name     string    `json:"name"`
	State    State     `json:"-"`
	Status   string    `json:"state"`
	Failures int       `json:"consecutive_failures"`
	Opens    int64     `json:"opens"`
	Rejected int64     `json:"rejected"`
	OpenedAt time.Time `json:"opened_at,omitzero"`
}

// Breaker trips after consecutive outages and fails fast until a probe
// succeeds again.
type Breaker struct {
	cfg       Config
	state     atomic.Uint32
	failures  atomic.Int32
	successes atomic.Int32
	openedAt  atomic.Int64 // unix nano of the last trip
	opens     atomic.Int64
	rejected  atomic.Int64
}

// New creates a breaker with config
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.state.Store(uint32(Closed))
	return b
}

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns current state
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Snapshot reports the breaker state and counters.
func (b *Breaker) Snapshot() Snapshot {
	st := b.State()
	s := Snapshot{
		Name:     b.cfg.Name,
		State:    st,
		Status:   st.String(),
		Failures: int(b.failures.Load()),
		Opens:    b.opens.Load(),
		Rejected: b.rejected.Load(),
	}
	if ns := b.openedAt.Load(); ns != 0 {
		s.OpenedAt = time.Unix(0, ns)
	}
	return s
}

// Call runs fn under the breaker. A failure only counts as an outage when
// ctx is still live and Classify says so; a call abandoned by its caller
// leaves the breaker untouched.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.record(Ignored)
		return zero, err
	}
	b.record(b.cfg.Classify(err))
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (b *Breaker) allow() error {
	if b.State() != Open {
		return nil
	}
	if time.Since(time.Unix(0, b.openedAt.Load())) > b.cfg.ResetTimeout {
		b.transition(Open, HalfOpen)
		return nil
	}
	b.rejected.Add(1)
	return ErrOpen
}

func (b *Breaker) record(o Outcome) {
	switch o {
	case Healthy:
		b.failures.Store(0)
		if b.State() == HalfOpen && b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(HalfOpen, Closed)
		}
	case Outage:
		n := b.failures.Add(1)
		switch b.State() {
		case HalfOpen:
			b.trip(HalfOpen)
		case Closed:
			if n >= int32(b.cfg.Threshold) {
				b.trip(Closed)
			}
		}
	}
}

func (b *Breaker) trip(from State) {
	b.openedAt.Store(time.Now().UnixNano())
	if b.transition(from, Open) {
		b.opens.Add(1)
	}
}

// transition moves from -> to; only one of several racing callers wins.
func (b *Breaker) transition(from, to State) bool {
	if !b.state.CompareAndSwap(uint32(from), uint32(to)) {
		return false
	}
	b.successes.Store(0)
	switch to {
	case Closed:
		b.failures.Store(0)
		slog.Info("circuit breaker closed", "breaker", b.cfg.Name)
	case Open:
		slog.Warn("circuit breaker opened", "breaker", b.cfg.Name, "failures", b.failures.Load())
	case HalfOpen:
		slog.Info("circuit breaker half-open", "breaker", b.cfg.Name)
	}
	return true
}
