package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestFrameReleaseOnce(t *testing.T) {
	var released atomic.Int32
	f := NewFrame([]byte{1}, "jpeg", 1, 1, 0, time.Now(), func() { released.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Release()
		}()
	}
	wg.Wait()

	if got := released.Load(); got != 1 {
		t.Errorf("release called %d times, want 1", got)
	}
}

func TestFrameNilSafe(t *testing.T) {
	var f *Frame
	f.Release()
	if f.HasImage() {
		t.Error("nil frame should not have an image")
	}
}

func TestFromEncoded(t *testing.T) {
	data := makePNG(t, 40, 30)
	f, err := FromEncoded(data, 90, time.Unix(10, 0), nil)
	if err != nil {
		t.Fatalf("FromEncoded() error = %v", err)
	}
	if f.Width != 40 || f.Height != 30 {
		t.Errorf("size = %dx%d, want 40x30", f.Width, f.Height)
	}
	if f.Format != "png" || f.Rotation != 90 {
		t.Errorf("format = %q rotation = %d, want png 90", f.Format, f.Rotation)
	}

	img, err := f.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("decoded width = %d, want 40", img.Bounds().Dx())
	}
}

func TestFromEncodedEmpty(t *testing.T) {
	f, err := FromEncoded(nil, 0, time.Now(), nil)
	if err != nil {
		t.Fatalf("FromEncoded(nil) error = %v", err)
	}
	if f.HasImage() {
		t.Error("empty frame should not have an image")
	}
	if _, err := f.Decode(); !apperrors.IsCode(err, apperrors.CodeFrameInvalid) {
		t.Errorf("Decode() error = %v, want FRAME_INVALID", err)
	}
}

func TestFromEncodedGarbage(t *testing.T) {
	_, err := FromEncoded([]byte("not an image"), 0, time.Now(), nil)
	if !apperrors.IsCode(err, apperrors.CodeFrameInvalid) {
		t.Errorf("error = %v, want FRAME_INVALID", err)
	}
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	th := Thumbnail(img, 64)
	if th.Bounds().Dx() != 64 || th.Bounds().Dy() != 16 {
		t.Errorf("thumbnail = %v, want 64x16", th.Bounds())
	}

	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if Thumbnail(small, 64) != image.Image(small) {
		t.Error("small images should be returned as is")
	}
}

func TestEncodeFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	f, err := encodeFrame(img, time.Unix(5, 0))
	if err != nil {
		t.Fatalf("encodeFrame() error = %v", err)
	}
	if f.Format != "jpeg" || f.Width != 32 || f.Height != 16 || !f.HasImage() {
		t.Errorf("unexpected frame: %s %dx%d", f.Format, f.Width, f.Height)
	}
}

func TestSlotReleasesEvicted(t *testing.T) {
	var released atomic.Int32
	slot := NewSlot()

	for i := 0; i < 3; i++ {
		slot.Put(NewFrame([]byte{1}, "jpeg", 1, 1, 0, time.Now(), func() { released.Add(1) }))
	}

	if got := released.Load(); got != 2 {
		t.Errorf("released = %d, want 2", got)
	}
	f := <-slot.C()
	f.Release()
	if got := released.Load(); got != 3 {
		t.Errorf("released = %d, want 3", got)
	}
}

type fakeCapturer struct {
	calls atomic.Int32
	err   error
}

func (c *fakeCapturer) Capture() (*Frame, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return NewFrame([]byte{1}, "jpeg", 1, 1, 0, time.Now(), nil), nil
}

func (c *fakeCapturer) Close() {}

func TestPump(t *testing.T) {
	c := &fakeCapturer{}
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan *Frame, 10)
	done := make(chan struct{})
	go func() {
		Pump(ctx, c, 200, func(f *Frame) {
			select {
			case got <- f:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pump did not stop after cancel")
	}
}

func TestPumpBacksOffOnError(t *testing.T) {
	c := &fakeCapturer{err: errors.New("no display")}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	Pump(ctx, c, 1000, func(*Frame) { t.Error("submit should not be called") })

	if n := c.calls.Load(); n != 1 {
		t.Errorf("capture calls = %d, want 1 during backoff", n)
	}
}
