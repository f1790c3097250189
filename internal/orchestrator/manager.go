package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/config"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/detect"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/gate"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/results"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/resilience"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/syncx"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/transform"
)

// Session describes the active detection session.
type Session struct {
	Query     string    `json:"query"`
	StartedAt time.Time `json:"started_at"`
}

// Stats summarizes the manager state.
type Stats struct {
	Active      bool                 `json:"active"`
	Session     *Session             `json:"session,omitempty"`
	Pipeline    detect.Stats         `json:"pipeline"`
	Metrics     transform.Metrics    `json:"metrics"`
	Subscribers int                  `json:"subscribers"`
	Recognizer  *resilience.Snapshot `json:"recognizer,omitempty"` // set for breaker-guarded engines
}

// breakerReporter is implemented by engines guarded by a circuit breaker.
type breakerReporter interface {
	BreakerSnapshot() resilience.Snapshot
}

type session struct {
	info   Session
	driver *detect.Driver
	slot   *syncx.Mailbox[*camera.Frame]
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs at most one detection session at a time and owns the layout
// metrics shared by every session.
type Manager struct {
	engine      recognition.Engine
	cfg         *config.Config
	transformer *transform.Transformer
	broadcaster *results.Broadcaster

	metricsMu sync.Mutex // serializes metric writers
	metrics   *syncx.Snapshot[transform.Metrics]

	mu      sync.RWMutex
	baseCtx context.Context
	active  *session
	stopped bool
}

// New creates a manager.
func New(engine recognition.Engine, cfg *config.Config) *Manager {
	orientation, _ := transform.ParseOrientation(cfg.Transform.Orientation)
	return &Manager{
		engine: engine,
		cfg:    cfg,
		transformer: transform.New(transform.Config{
			Orientation:    orientation,
			ReferenceRatio: cfg.Transform.ReferenceAspectRatio,
		}),
		broadcaster: results.NewBroadcaster(ResultBroadcastBuffer, ResultHistorySize),
		metrics:     syncx.NewSnapshot(transform.Metrics{}),
		baseCtx:     context.Background(),
	}
}

// Start sets the context sessions run under. Sessions end when ctx does.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
	trace.Logger(ctx).Info("detection manager started", "orientation", m.transformer.Orientation())
	return nil
}

// StartSession begins detecting query, replacing any running session.
func (m *Manager) StartSession(ctx context.Context, query string) (Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Session{}, apperrors.New(apperrors.CodeInvalidArgument, "query must not be blank")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return Session{}, apperrors.New(apperrors.CodeUnavailable, "manager stopped")
	}
	m.stopLocked(ctx)

	p := m.cfg.Pipeline
	driver := detect.NewDriver(m.engine, m.transformer, m.metrics.Load, m.broadcaster, detect.Config{
		Query:                query,
		MaxMatches:           p.MaxMatches,
		PaddingRatio:         p.PaddingRatio,
		SimilarFrameDistance: p.SimilarFrameDistance,
		Gate:                 gate.Config{Cooldown: p.FrameCooldown, MaxSkip: p.MaxFrameSkip},
	})

	sctx, cancel := context.WithCancel(m.baseCtx)
	s := &session{
		info:   Session{Query: query, StartedAt: time.Now()},
		driver: driver,
		slot:   camera.NewSlot(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		_ = driver.Run(sctx, s.slot.C())
	}()
	m.active = s

	trace.Logger(ctx).Info("detection session started", "query", query)
	return s.info, nil
}

// StopSession ends the running session. Reports whether one was running.
func (m *Manager) StopSession(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) bool {
	s := m.active
	if s == nil {
		return false
	}
	m.active = nil
	s.cancel()
	s.slot.Close()
	<-s.done

	st := s.driver.Stats()
	trace.Logger(ctx).Info("detection session stopped",
		"query", s.info.Query,
		"frames", st.Frames,
		"processed", st.Processed,
		"failures", st.Failures,
		"duration", time.Since(s.info.StartedAt))
	return true
}

// SubmitFrame hands f to the running session. The frame replaces any frame
// the session has not picked up yet. Without a session the frame is released
// and a SESSION_INACTIVE error returned.
func (m *Manager) SubmitFrame(f *camera.Frame) error {
	if f == nil {
		return apperrors.New(apperrors.CodeFrameInvalid, "nil frame")
	}
	m.recordImage(f.Width, f.Height)

	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.active
	if s == nil {
		f.Release()
		return apperrors.New(apperrors.CodeSessionInactive, "no active detection session")
	}
	if !s.slot.Put(f) {
		return apperrors.New(apperrors.CodeSessionInactive, "detection session closing")
	}
	return nil
}

// UpdateLayout publishes new preview dimensions. Zero means unknown.
func (m *Manager) UpdateLayout(width, height, density float64) error {
	if width < 0 || height < 0 || density < 0 {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "invalid layout %gx%g@%g", width, height, density)
	}
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	m.metrics.Update(func(cur transform.Metrics) transform.Metrics {
		return cur.WithPreview(width, height, density)
	})
	return nil
}

func (m *Manager) recordImage(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	cur := m.metrics.Load()
	if cur.ImageWidth == float64(width) && cur.ImageHeight == float64(height) {
		return
	}
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()
	m.metrics.Update(func(cur transform.Metrics) transform.Metrics {
		return cur.WithImage(width, height)
	})
}

// Metrics returns the current layout snapshot.
func (m *Manager) Metrics() transform.Metrics {
	return m.metrics.Load()
}

// Session returns the active session, if any.
func (m *Manager) Session() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return Session{}, false
	}
	return m.active.info, true
}

// Latest returns the active session's cached result.
func (m *Manager) Latest() results.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return results.Result{}
	}
	return m.active.driver.Cache().Get()
}

// Results returns the broadcaster that carries every emitted result.
func (m *Manager) Results() *results.Broadcaster {
	return m.broadcaster
}

// Stats returns a snapshot of the manager state.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{
		Metrics:     m.metrics.Load(),
		Subscribers: m.broadcaster.Subscribers(),
	}
	if r, ok := m.engine.(breakerReporter); ok {
		snap := r.BreakerSnapshot()
		st.Recognizer = &snap
	}
	if m.active != nil {
		info := m.active.info
		st.Active = true
		st.Session = &info
		st.Pipeline = m.active.driver.Stats()
	}
	return st
}

// Stop ends any session and closes result subscriptions.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.stopLocked(context.Background())
	m.mu.Unlock()
	m.broadcaster.Close()
}
