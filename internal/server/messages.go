package server

import (
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/orchestrator/results"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

// LayoutMessage reports the preview surface size.
type LayoutMessage struct {
	Type    string  `json:"type"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Density float64 `json:"density"`
}

// SearchMessage starts or restarts a session with a new query.
type SearchMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// FrameInfoMessage sets the rotation applied to subsequent binary frames.
type FrameInfoMessage struct {
	Type     string `json:"type"`
	Rotation int    `json:"rotation"`
}

// DetectionsMessage carries one result; quads are [[x,y] x4] in normalized
// preview space.
type DetectionsMessage struct {
	Type      string          `json:"type"`
	Quads     [][4][2]float64 `json:"quads"`
	Timestamp int64           `json:"timestamp"` // unix ms
	Query     string          `json:"query,omitempty"`
	Cached    bool            `json:"cached,omitempty"`
}

// SessionMessage reports the session state after a control message.
type SessionMessage struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
	Query  string `json:"query,omitempty"`
}

// ErrorMessage reports a rejected request.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func detectionsMessage(r results.Result) DetectionsMessage {
	msg := DetectionsMessage{
		Type:   "detections",
		Quads:  make([][4][2]float64, len(r.Quads)),
		Query:  r.Query,
		Cached: r.Cached,
	}
	if !r.Timestamp.IsZero() {
		msg.Timestamp = r.Timestamp.UnixMilli()
	}
	for i, q := range r.Quads {
		msg.Quads[i] = quadPairs(q)
	}
	return msg
}

func quadPairs(q geometry.Quad) [4][2]float64 {
	var out [4][2]float64
	for i, p := range q {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}
