package query

import (
	"iter"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

// Engine evaluates filters against an index.
type Engine struct {
	idx *storage.ShapeIndex
}

// NewEngine creates an engine over idx.
func NewEngine(idx *storage.ShapeIndex) *Engine {
	return &Engine{idx: idx}
}

// Index returns the underlying index.
func (e *Engine) Index() *storage.ShapeIndex {
	return e.idx
}

// candidates narrows the scan to one group when the filter allows it.
// Group order is insertion order, so results stay in index order either way.
func (e *Engine) candidates(f Filter) iter.Seq[shapes.Shape] {
	if pipe, ok := f.singleGroup(); ok {
		return e.idx.GroupShapes(pipe)
	}
	return e.idx.All()
}

// Find returns the matching shapes in index order.
func (e *Engine) Find(f Filter) []shapes.Shape {
	var out []shapes.Shape
	for s := range e.candidates(f) {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of matches without collecting them.
func (e *Engine) Count(f Filter) int {
	n := 0
	for s := range e.candidates(f) {
		if f.Matches(s) {
			n++
		}
	}
	return n
}

// CountByKind breaks the matches down by variant.
func (e *Engine) CountByKind(f Filter) map[shapes.Kind]int {
	counts := make(map[shapes.Kind]int)
	for s := range e.candidates(f) {
		if f.Matches(s) {
			counts[s.Kind()]++
		}
	}
	return counts
}
