package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/syncx"
)

// Capturer produces analysis frames on demand.
type Capturer interface {
	Capture() (*Frame, error)
	Close()
}

// NewSlot creates the keep-latest hand-off between a frame source and the
// pipeline. Frames evicted before they are consumed are released.
func NewSlot() *syncx.Mailbox[*Frame] {
	return syncx.NewMailbox(func(f *Frame) { f.Release() })
}

// ScreenCapturer grabs a desktop display as an upright frame source.
type ScreenCapturer struct {
	display int
}

// NewScreenCapturer creates a capturer for the given display index.
func NewScreenCapturer(display int) (*ScreenCapturer, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "display %d not available (%d active)", display, n)
	}
	return &ScreenCapturer{display: display}, nil
}

// Capture grabs the display and encodes it as JPEG.
func (c *ScreenCapturer) Capture() (*Frame, error) {
	img, err := screenshot.CaptureDisplay(c.display)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "capture display")
	}
	return encodeFrame(img, time.Now())
}

// Close is a no-op; screenshot holds no resources between captures.
func (c *ScreenCapturer) Close() {}

func encodeFrame(img image.Image, ts time.Time) (*Frame, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: CaptureJPEGQuality}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFrameInvalid, "encode frame")
	}
	b := img.Bounds()
	return NewFrame(buf.Bytes(), "jpeg", b.Dx(), b.Dy(), 0, ts, nil), nil
}

// Pump captures frames at rate (Hz) and hands them to submit until ctx ends.
func Pump(ctx context.Context, c Capturer, rate float64, submit func(*Frame)) {
	if rate <= 0 {
		rate = DefaultCaptureRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := c.Capture()
			if err != nil {
				slog.Debug("capture error", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(CaptureErrorBackoff):
				}
				continue
			}
			submit(frame)
		}
	}
}
