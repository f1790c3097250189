package recognition

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
)

func TestBuilderGroupsBlocksAndLines(t *testing.T) {
	var b Builder
	b.Add(1, 0, 1, "hello", RectCorners(0, 0, 10, 5))
	b.Add(1, 0, 1, "world", RectCorners(12, 0, 22, 5))
	b.Add(1, 0, 2, "second", RectCorners(0, 6, 12, 11))
	b.Add(2, 0, 1, "other", RectCorners(0, 20, 10, 25))

	doc := b.Document()
	if len(doc.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(doc.Blocks))
	}
	if len(doc.Blocks[0].Lines) != 2 {
		t.Fatalf("lines in first block = %d, want 2", len(doc.Blocks[0].Lines))
	}
	if got := doc.Blocks[0].Lines[0].Text; got != "hello world" {
		t.Errorf("line text = %q, want %q", got, "hello world")
	}
	if got := doc.Blocks[0].Text; got != "hello world\nsecond" {
		t.Errorf("block text = %q", got)
	}
	if got := doc.Text; got != "hello world\nsecond\n\nother" {
		t.Errorf("document text = %q", got)
	}
	if doc.ElementCount() != 4 {
		t.Errorf("ElementCount() = %d, want 4", doc.ElementCount())
	}
}

func TestBuilderEmpty(t *testing.T) {
	var b Builder
	doc := b.Document()
	if len(doc.Blocks) != 0 || doc.Text != "" {
		t.Errorf("empty builder should produce empty document: %+v", doc)
	}
}

func TestRectCorners(t *testing.T) {
	c := RectCorners(1, 2, 3, 4)
	if len(c) != 4 {
		t.Fatalf("corners = %d, want 4", len(c))
	}
	if c[0].X != 1 || c[0].Y != 2 || c[2].X != 3 || c[2].Y != 4 {
		t.Errorf("unexpected corners: %+v", c)
	}
}

func TestNilDocumentElementCount(t *testing.T) {
	var d *Document
	if d.ElementCount() != 0 {
		t.Error("nil document should have zero elements")
	}
}

func TestEngineFunc(t *testing.T) {
	want := &Document{Text: "x"}
	var e Engine = EngineFunc(func(context.Context, *camera.Frame) (*Document, error) {
		return want, nil
	})
	got, err := e.Recognize(context.Background(), nil)
	if err != nil || got != want {
		t.Errorf("Recognize() = (%v, %v)", got, err)
	}
}
