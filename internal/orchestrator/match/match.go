// Package match filters a recognized document against a search query.
package match

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/geometry"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
)

// MaxMatches caps the number of quads a single frame can produce.
const MaxMatches = 5

// Matcher finds elements whose text contains a query, ignoring case.
type Matcher struct {
	folded string
	limit  int
	caser  cases.Caser
}

// NewMatcher creates a matcher. A limit outside (0, MaxMatches] becomes
// MaxMatches.
func NewMatcher(query string, limit int) *Matcher {
	if limit <= 0 || limit > MaxMatches {
		limit = MaxMatches
	}
	c := cases.Fold()
	return &Matcher{folded: c.String(query), limit: limit, caser: c}
}

// Limit returns the match cap.
func (m *Matcher) Limit() int { return m.limit }

// Match returns the corner quads of matching elements in traversal order,
// stopping once the limit is reached. Elements without exactly four corners
// are skipped.
func (m *Matcher) Match(doc *recognition.Document) []geometry.Quad {
	if doc == nil {
		return nil
	}
	var out []geometry.Quad
	for _, block := range doc.Blocks {
		for _, line := range block.Lines {
			for _, el := range line.Elements {
				q, ok := geometry.QuadFromPoints(el.Corners)
				if !ok {
					continue
				}
				if !strings.Contains(m.caser.String(el.Text), m.folded) {
					continue
				}
				out = append(out, q)
				if len(out) == m.limit {
					return out
				}
			}
		}
	}
	return out
}

// Match is a convenience wrapper using the default limit.
func Match(doc *recognition.Document, query string) []geometry.Quad {
	return NewMatcher(query, MaxMatches).Match(doc)
}
