// Package detect runs the per-frame detection pipeline: throttle, recognize,
// match, project into preview space and publish.
package detect

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/gate"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/match"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/results"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/transform"
)

// Sink receives emitted results.
type Sink interface {
	Publish(r results.Result)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(results.Result)

// Publish calls fn.
func (fn SinkFunc) Publish(r results.Result) { fn(r) }

// Config holds per-session pipeline settings.
type Config struct {
	Query                string
	MaxMatches           int
	PaddingRatio         float64
	SimilarFrameDistance int // negative disables the similar-frame check
	Gate                 gate.Config
}

// Stats are cumulative pipeline counters for one session.
type Stats struct {
	Frames      int64         `json:"frames"`
	Processed   int64         `json:"processed"`
	Reused      int64         `json:"reused"`
	Similar     int64         `json:"similar"`
	Failures    int64         `json:"failures"`
	Empty       int64         `json:"empty"` // processed frames without image data
	Emitted     int64         `json:"emitted"`
	LastLatency time.Duration `json:"last_latency"`
}

type counters struct {
	frames, processed, reused, similar, failures, empty, emitted atomic.Int64
	lastLatency                                                  atomic.Int64
}

type outcome struct {
	doc *recognition.Document
	err error
}

// Driver owns the throttle state and result cache of one detection session
// and processes frames one at a time on the goroutine calling Run.
type Driver struct {
	engine      recognition.Engine
	transformer *transform.Transformer
	metrics     func() transform.Metrics
	sink        Sink
	cfg         Config

	gate    *gate.Gate
	matcher *match.Matcher
	cache   *results.Cache
	sim     *similarity
	now     func() time.Time
	stats   counters
}

// NewDriver creates a driver. metrics is called once per processed frame to
// obtain the current layout snapshot.
func NewDriver(engine recognition.Engine, t *transform.Transformer, metrics func() transform.Metrics, sink Sink, cfg Config) *Driver {
	if metrics == nil {
		metrics = func() transform.Metrics { return transform.Metrics{} }
	}
	if sink == nil {
		sink = SinkFunc(func(results.Result) {})
	}
	return &Driver{
		engine:      engine,
		transformer: t,
		metrics:     metrics,
		sink:        sink,
		cfg:         cfg,
		gate:        gate.New(cfg.Gate),
		matcher:     match.NewMatcher(cfg.Query, cfg.MaxMatches),
		cache:       results.NewCache(),
		sim:         newSimilarity(cfg.SimilarFrameDistance),
		now:         time.Now,
	}
}

// Run consumes frames until ctx is done or frames is closed. Every received
// frame is released exactly once.
func (d *Driver) Run(ctx context.Context, frames <-chan *camera.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			d.handle(ctx, f)
		}
	}
}

// Cache returns the session's result cache.
func (d *Driver) Cache() *results.Cache { return d.cache }

// Query returns the session query.
func (d *Driver) Query() string { return d.cfg.Query }

// Stats returns a copy of the pipeline counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Frames:      d.stats.frames.Load(),
		Processed:   d.stats.processed.Load(),
		Reused:      d.stats.reused.Load(),
		Similar:     d.stats.similar.Load(),
		Failures:    d.stats.failures.Load(),
		Empty:       d.stats.empty.Load(),
		Emitted:     d.stats.emitted.Load(),
		LastLatency: time.Duration(d.stats.lastLatency.Load()),
	}
}

func (d *Driver) handle(ctx context.Context, f *camera.Frame) {
	d.stats.frames.Add(1)
	now := f.Timestamp
	if now.IsZero() {
		now = d.now()
	}

	cached := d.cache.Get()
	if d.gate.Decide(now, !cached.Empty()) == gate.Reuse {
		f.Release()
		d.stats.reused.Add(1)
		d.emitCached(cached)
		return
	}

	if !f.HasImage() {
		f.Release()
		d.stats.empty.Add(1)
		return
	}

	hash := d.sim.hash(f)
	if !cached.Empty() && d.sim.similar(hash) {
		f.Release()
		d.stats.similar.Add(1)
		d.emitCached(cached)
		return
	}

	d.stats.processed.Add(1)
	width, height := f.Width, f.Height
	ts := now

	ctx, span := trace.StartSpan(ctx, "detect.recognize")
	span.SetAttr("query", d.cfg.Query)
	span.SetAttr("width", width)
	span.SetAttr("height", height)
	defer span.End()

	done := make(chan outcome, 1)
	go func() {
		var o outcome
		func() {
			defer f.Release()
			o.doc, o.err = d.engine.Recognize(ctx, f)
		}()
		done <- o
	}()

	var o outcome
	select {
	case <-ctx.Done():
		span.SetAttr("discarded", true)
		return
	case o = <-done:
	}

	latency := time.Since(span.StartTime)
	span.SetAttr("latency_ms", latency.Milliseconds())
	d.stats.lastLatency.Store(int64(latency))

	if o.err != nil {
		d.stats.failures.Add(1)
		span.SetAttr("error", o.err.Error())
		trace.Logger(ctx).Warn("recognition failed", "query", d.cfg.Query, "error", o.err)
		return
	}

	d.sim.remember(hash)
	quads := Project(o.doc, d.matcher, d.transformer, width, height, d.metrics().WithImage(width, height), d.cfg.PaddingRatio)
	span.SetAttr("matches", len(quads))

	r := results.Result{Quads: quads, Timestamp: ts, Query: d.cfg.Query}
	d.cache.Set(r)
	d.publish(r)
}

func (d *Driver) emitCached(r results.Result) {
	if r.Empty() {
		return
	}
	r.Cached = true
	d.publish(r)
}

func (d *Driver) publish(r results.Result) {
	d.stats.emitted.Add(1)
	d.sink.Publish(r)
}

// Project matches doc against m and maps each match into padded, normalized
// preview coordinates. It is a pure function of its inputs.
func Project(doc *recognition.Document, m *match.Matcher, t *transform.Transformer, imageWidth, imageHeight int, metrics transform.Metrics, padding float64) []geometry.Quad {
	raw := m.Match(doc)
	if len(raw) == 0 {
		return nil
	}
	out := make([]geometry.Quad, len(raw))
	for i, q := range raw {
		out[i] = geometry.Expand(t.Transform(q, imageWidth, imageHeight, metrics), padding)
	}
	return out
}
