// Package tesseract implements recognition.Engine on top of the Tesseract OCR
// library via gosseract.
package tesseract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
)

// DefaultLanguage is used when no languages are configured.
const DefaultLanguage = "eng"

// Engine runs Tesseract on encoded frames. A fresh client is created per call
// since gosseract clients are not safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates a Tesseract engine for the given languages.
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

// Name identifies the engine in logs and health output.
func (e *Engine) Name() string { return "tesseract" }

// Recognize implements recognition.Engine.
func (e *Engine) Recognize(ctx context.Context, f *camera.Frame) (*recognition.Document, error) {
	if !f.HasImage() {
		return nil, apperrors.New(apperrors.CodeFrameInvalid, "frame has no image")
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "recognition cancelled")
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRecognitionUnavailable, "set languages")
	}
	if err := c.SetImageFromBytes(f.Data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFrameInvalid, "set image")
	}

	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "recognize text")
	}

	doc := buildDocument(boxes)
	slog.Debug("tesseract recognized", "elements", doc.ElementCount(), "width", f.Width, "height", f.Height)
	return doc, nil
}

// buildDocument groups word boxes, which Tesseract emits in reading order,
// into blocks and lines. Each paragraph's lines form separate lines.
func buildDocument(boxes []gosseract.BoundingBox) *recognition.Document {
	var b recognition.Builder
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		r := box.Box
		b.Add(box.BlockNum, box.ParNum, box.LineNum, word, recognition.RectCorners(
			float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y),
		))
	}
	return b.Document()
}
