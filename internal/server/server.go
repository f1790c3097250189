// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/config"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/results"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/syncx"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
)

// Overlay is the detection surface driven by the server.
type Overlay interface {
	StartSession(ctx context.Context, query string) (orchestrator.Session, error)
	StopSession(ctx context.Context) bool
	Session() (orchestrator.Session, bool)
	SubmitFrame(f *camera.Frame) error
	UpdateLayout(width, height, density float64) error
	Latest() results.Result
	Results() *results.Broadcaster
	Stats() orchestrator.Stats
}

var _ Overlay = (*orchestrator.Manager)(nil)

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	overlay Overlay
	origins []string
	proc    *process.Process

	mu    sync.RWMutex
	conns map[*websocket.Conn]*client

	unsubscribe func()
	done        chan struct{}
}

// New creates a new server and starts fanning results out to WebSocket
// clients.
func New(overlay Overlay, cfg *config.Config) *Server {
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("process stats unavailable", "error", err)
	}

	sub, cancel := overlay.Results().Subscribe()
	s := &Server{
		overlay:     overlay,
		origins:     origins,
		proc:        proc,
		conns:       make(map[*websocket.Conn]*client),
		unsubscribe: cancel,
		done:        make(chan struct{}),
	}
	go s.broadcastDetections(sub)
	return s
}

// Close stops the result fan-out.
func (s *Server) Close() {
	s.unsubscribe()
	<-s.done
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleStartSession)
	mux.HandleFunc("DELETE /api/session", s.handleStopSession)
	mux.HandleFunc("POST /api/layout", s.handleLayout)
	mux.HandleFunc("POST /api/frames", s.handleFrame)
	mux.HandleFunc("GET /api/detections", s.handleDetections)
	mux.HandleFunc("GET /api/detections/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(MaxFrameBytes)

	// Get trace context from HTTP upgrade request
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := trace.Logger(ctx)

	cl := &client{conn: conn, out: syncx.NewMailbox[DetectionsMessage](nil)}
	go s.writeLoop(ctx, cl)

	s.mu.Lock()
	s.conns[conn] = cl
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		cl.out.Close()
	}()

	log.Info("websocket connected", "remote", r.RemoteAddr)

	rl := &rateLimiter{}
	rotation := 0
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if typ == websocket.MessageBinary {
			s.submitFrame(ctx, conn, data, rotation)
			continue
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			s.writeError(ctx, conn, "RATE_LIMITED", "rate limit exceeded")
			continue
		}

		var base Message
		if err := json.Unmarshal(data, &base); err != nil {
			s.writeError(ctx, conn, apperrors.CodeInvalidArgument.String(), "malformed message")
			continue
		}

		switch base.Type {
		case "layout":
			var msg LayoutMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if err := s.overlay.UpdateLayout(msg.Width, msg.Height, msg.Density); err != nil {
				s.writeAppError(ctx, conn, err)
			}
		case "frame_info":
			var msg FrameInfoMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				rotation = msg.Rotation
			}
		case "search":
			var msg SearchMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			info, err := s.overlay.StartSession(ctx, msg.Query)
			if err != nil {
				s.writeAppError(ctx, conn, err)
				continue
			}
			s.write(ctx, conn, SessionMessage{Type: "session", Active: true, Query: info.Query})
		case "stop":
			s.overlay.StopSession(ctx)
			s.write(ctx, conn, SessionMessage{Type: "session", Active: false})
		default:
			s.writeError(ctx, conn, apperrors.CodeInvalidArgument.String(), "unknown message type "+strconv.Quote(base.Type))
		}
	}
}

func (s *Server) submitFrame(ctx context.Context, conn *websocket.Conn, data []byte, rotation int) {
	f, err := camera.FromEncoded(data, rotation, time.Now(), nil)
	if err == nil {
		err = s.overlay.SubmitFrame(f)
	}
	if err != nil && !apperrors.IsCode(err, apperrors.CodeSessionInactive) {
		trace.Logger(ctx).Debug("frame rejected", "error", err)
		s.writeAppError(ctx, conn, err)
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg any) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, msg)
}

func (s *Server) writeError(ctx context.Context, conn *websocket.Conn, code, message string) {
	s.write(ctx, conn, ErrorMessage{Type: "error", Code: code, Message: message})
}

func (s *Server) writeAppError(ctx context.Context, conn *websocket.Conn, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	s.writeError(ctx, conn, apperrors.CodeOf(err).String(), msg)
}

// client is one WebSocket connection. Detections reach it through a
// keep-latest mailbox drained by a single writer, so a slow client only ever
// skips to the newest result and never sees an older one after a newer one.
type client struct {
	conn *websocket.Conn
	out  *syncx.Mailbox[DetectionsMessage]
}

func (s *Server) writeLoop(ctx context.Context, cl *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-cl.out.C():
			s.write(ctx, cl.conn, msg)
		}
	}
}

func (s *Server) broadcastDetections(sub <-chan results.Result) {
	defer close(s.done)
	for r := range sub {
		msg := detectionsMessage(r)

		s.mu.RLock()
		for _, cl := range s.conns {
			cl.out.Put(msg)
		}
		s.mu.RUnlock()
	}
}

// REST handlers

type sessionRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, ok := s.overlay.Session()
	if !ok {
		writeJSON(w, http.StatusOK, SessionMessage{Type: "session", Active: false})
		return
	}
	writeJSON(w, http.StatusOK, SessionMessage{Type: "session", Active: true, Query: info.Query})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "malformed session request"))
		return
	}
	info, err := s.overlay.StartSession(r.Context(), req.Query)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionMessage{Type: "session", Active: true, Query: info.Query})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	stopped := s.overlay.StopSession(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var msg LayoutMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeErr(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "malformed layout"))
		return
	}
	if err := s.overlay.UpdateLayout(msg.Width, msg.Height, msg.Density); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.overlay.Stats().Metrics)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFrameBytes))
	if err != nil {
		writeErr(w, apperrors.Wrap(err, apperrors.CodeFrameInvalid, "read frame"))
		return
	}
	rotation, _ := strconv.Atoi(r.URL.Query().Get("rotation"))
	f, err := camera.FromEncoded(data, rotation, time.Now(), nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.overlay.SubmitFrame(f); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, detectionsMessage(s.overlay.Latest()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeErr(w, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid limit %q", v))
			return
		}
		n = min(parsed, MaxHistoryLimit)
	}
	recent := s.overlay.Results().Recent(n)
	out := make([]DetectionsMessage, len(recent))
	for i, res := range recent {
		out[i] = detectionsMessage(res)
	}
	writeJSON(w, http.StatusOK, out)
}

// ProcessStats describes the platform process.
type ProcessStats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

type statsResponse struct {
	Overlay orchestrator.Stats `json:"overlay"`
	Process ProcessStats       `json:"process"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Overlay: s.overlay.Stats(),
		Process: s.processStats(r.Context()),
	})
}

func (s *Server) processStats(ctx context.Context) ProcessStats {
	ps := ProcessStats{Goroutines: runtime.NumGoroutine()}
	if s.proc == nil {
		return ps
	}
	if cpu, err := s.proc.CPUPercentWithContext(ctx); err == nil {
		ps.CPUPercent = cpu
	}
	if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
		ps.RSSBytes = mem.RSS
	}
	if n, err := s.proc.NumThreadsWithContext(ctx); err == nil {
		ps.Threads = n
	}
	return ps
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, httpStatus(code), ErrorMessage{Type: "error", Code: code.String(), Message: msg})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument, apperrors.CodeFrameInvalid:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeSessionInactive:
		return http.StatusConflict
	case apperrors.CodeUnavailable, apperrors.CodeRecognitionUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
