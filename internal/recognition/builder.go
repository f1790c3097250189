package recognition

import (
	"strings"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
)

// Builder assembles a Document from a flat stream of words tagged with their
// block, paragraph and line numbers, in reading order.
type Builder struct {
	doc     Document
	last    lineKey
	started bool
}

type lineKey struct{ block, paragraph, line int }

// Add appends a word. A change in block number opens a new block. Line numbers
// restart in each paragraph, so a change in paragraph or line opens a new line.
func (b *Builder) Add(block, paragraph, line int, text string, corners []geometry.Point) {
	key := lineKey{block, paragraph, line}
	switch {
	case !b.started || block != b.last.block:
		b.doc.Blocks = append(b.doc.Blocks, Block{})
		b.started = true
		b.openLine()
	case key != b.last:
		b.openLine()
	}
	b.last = key

	blk := &b.doc.Blocks[len(b.doc.Blocks)-1]
	ln := &blk.Lines[len(blk.Lines)-1]
	ln.Elements = append(ln.Elements, Element{Text: text, Corners: corners})
}

func (b *Builder) openLine() {
	blk := &b.doc.Blocks[len(b.doc.Blocks)-1]
	blk.Lines = append(blk.Lines, Line{})
}

// Document finalizes text fields and returns the assembled document.
func (b *Builder) Document() *Document {
	doc := b.doc
	blockTexts := make([]string, 0, len(doc.Blocks))
	for i := range doc.Blocks {
		blk := &doc.Blocks[i]
		lineTexts := make([]string, 0, len(blk.Lines))
		for j := range blk.Lines {
			ln := &blk.Lines[j]
			words := make([]string, 0, len(ln.Elements))
			for _, el := range ln.Elements {
				words = append(words, el.Text)
			}
			ln.Text = strings.Join(words, " ")
			lineTexts = append(lineTexts, ln.Text)
		}
		blk.Text = strings.Join(lineTexts, "\n")
		blockTexts = append(blockTexts, blk.Text)
	}
	doc.Text = strings.Join(blockTexts, "\n\n")
	return &doc
}

// RectCorners returns the four corners of an axis-aligned rectangle in
// clockwise order starting at the top-left.
func RectCorners(minX, minY, maxX, maxY float64) []geometry.Point {
	return []geometry.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}
