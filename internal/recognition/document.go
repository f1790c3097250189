// Package recognition defines the recognized-text document model and the
// engine contract the detection pipeline consumes.
package recognition

import (
	"context"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
)

// Element is the smallest recognized unit, usually a word. Corners are in
// image pixel space; well-formed elements carry exactly four.
type Element struct {
	Text    string           `json:"text"`
	Corners []geometry.Point `json:"corners"`
}

// Line is an ordered run of elements.
type Line struct {
	Text     string    `json:"text"`
	Elements []Element `json:"elements"`
}

// Block is an ordered group of lines.
type Block struct {
	Text  string `json:"text"`
	Lines []Line `json:"lines"`
}

// Document is the full recognition result for one frame.
type Document struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// ElementCount returns the number of elements across all blocks.
func (d *Document) ElementCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, b := range d.Blocks {
		for _, l := range b.Lines {
			n += len(l.Elements)
		}
	}
	return n
}

// Engine recognizes text in a frame. Implementations must not release the
// frame; ownership stays with the caller.
type Engine interface {
	Recognize(ctx context.Context, f *camera.Frame) (*Document, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, f *camera.Frame) (*Document, error)

// Recognize calls fn.
func (fn EngineFunc) Recognize(ctx context.Context, f *camera.Frame) (*Document, error) {
	return fn(ctx, f)
}
