package camera

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
)

// FromEncoded builds a frame from an encoded image, reading dimensions from its header.
func FromEncoded(data []byte, rotation int, ts time.Time, release func()) (*Frame, error) {
	if len(data) == 0 {
		return NewFrame(nil, "", 0, 0, rotation, ts, release), nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFrameInvalid, "decode frame header")
	}
	return NewFrame(data, format, cfg.Width, cfg.Height, rotation, ts, release), nil
}

// Decode returns the decoded frame image.
func (f *Frame) Decode() (image.Image, error) {
	if !f.HasImage() {
		return nil, apperrors.New(apperrors.CodeFrameInvalid, "frame has no image")
	}
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFrameInvalid, fmt.Sprintf("decode %s frame", f.Format))
	}
	return img, nil
}

// Thumbnail downsamples img to fit within size×size.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*size/b.Dx())
	} else {
		w = max(1, b.Dx()*size/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
