package storage

import (
	"encoding/json"
	"errors"
	"iter"
	"slices"

	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

// SkippedRecord is a raw record left out of the index.
type SkippedRecord struct {
	Position int
	ID       *shapes.ID
	Reason   string
	Err      error
}

// ShapeIndex is the immutable lookup structure built once from the dataset.
// It holds no locks: nothing mutates it after BuildIndex returns, so any
// number of goroutines may read it concurrently.
type ShapeIndex struct {
	byID       map[shapes.ID]shapes.Shape
	order      []shapes.ID
	groups     map[shapes.PipeID][]shapes.ID
	groupOrder []shapes.PipeID
	skipped    []SkippedRecord
}

// BuildIndex decodes every raw record and indexes the valid ones. Malformed
// records and repeated ids are skipped and logged; the build itself never fails.
func BuildIndex(records []json.RawMessage, logger logging.Logger) *ShapeIndex {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := newBuilder(len(records))

	for pos, raw := range records {
		s, err := shapes.Decode(raw)
		if err != nil {
			skip := SkippedRecord{Position: pos, Err: err, Reason: err.Error()}
			var re *shapes.RecordError
			if errors.As(err, &re) {
				re.Position = pos
				skip.ID = re.ID
				skip.Reason = re.Error()
			}
			b.skip(skip, logger)
			continue
		}
		b.add(pos, s, logger)
	}

	return b.finish(logger)
}

// NewIndex indexes already-decoded shapes. Repeated ids are skipped.
func NewIndex(items []shapes.Shape, logger logging.Logger) *ShapeIndex {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := newBuilder(len(items))
	for pos, s := range items {
		b.add(pos, s, logger)
	}
	return b.finish(logger)
}

type builder struct {
	idx *ShapeIndex
}

func newBuilder(n int) *builder {
	return &builder{idx: &ShapeIndex{
		byID:   make(map[shapes.ID]shapes.Shape, n),
		order:  make([]shapes.ID, 0, n),
		groups: make(map[shapes.PipeID][]shapes.ID),
	}}
}

func (b *builder) skip(rec SkippedRecord, logger logging.Logger) {
	b.idx.skipped = append(b.idx.skipped, rec)
	fields := []logging.Field{logging.Int("position", rec.Position), logging.Error(rec.Err)}
	if rec.ID != nil {
		fields = append(fields, logging.ShapeID(int64(*rec.ID)))
	}
	logger.Warn("skipping shape record", fields...)
}

func (b *builder) add(pos int, s shapes.Shape, logger logging.Logger) {
	base := s.Common()
	if _, exists := b.idx.byID[base.ID]; exists {
		id := base.ID
		err := NewError("index").Shape(int64(id)).Cause(ErrDuplicateID).Err()
		b.skip(SkippedRecord{Position: pos, ID: &id, Reason: err.Error(), Err: err}, logger)
		return
	}

	b.idx.byID[base.ID] = s
	b.idx.order = append(b.idx.order, base.ID)
	if _, seen := b.idx.groups[base.PipeID]; !seen {
		b.idx.groupOrder = append(b.idx.groupOrder, base.PipeID)
	}
	b.idx.groups[base.PipeID] = append(b.idx.groups[base.PipeID], base.ID)
}

func (b *builder) finish(logger logging.Logger) *ShapeIndex {
	logger.Info("shape index built",
		logging.Count(len(b.idx.order)),
		logging.Int("groups", len(b.idx.groupOrder)),
		logging.Int("skipped", len(b.idx.skipped)))
	return b.idx
}

// Len is the number of indexed shapes.
func (x *ShapeIndex) Len() int { return len(x.order) }

// GroupCount is the number of distinct pipe groups.
func (x *ShapeIndex) GroupCount() int { return len(x.groupOrder) }

// Get returns the shape with the given id or an ErrShapeNotFound error.
func (x *ShapeIndex) Get(id shapes.ID) (shapes.Shape, error) {
	s, ok := x.byID[id]
	if !ok {
		return nil, ShapeNotFoundError(int64(id))
	}
	return s, nil
}

// Lookup is Get without the error allocation.
func (x *ShapeIndex) Lookup(id shapes.ID) (shapes.Shape, bool) {
	s, ok := x.byID[id]
	return s, ok
}

// Group returns the ids of a pipe group in insertion order.
func (x *ShapeIndex) Group(pipeID shapes.PipeID) ([]shapes.ID, error) {
	ids, ok := x.groups[pipeID]
	if !ok {
		return nil, GroupNotFoundError(int64(pipeID))
	}
	return slices.Clone(ids), nil
}

// HasGroup reports whether any shape belongs to pipeID.
func (x *ShapeIndex) HasGroup(pipeID shapes.PipeID) bool {
	_, ok := x.groups[pipeID]
	return ok
}

// GroupSize returns the member count of a group, zero if absent.
func (x *ShapeIndex) GroupSize(pipeID shapes.PipeID) int {
	return len(x.groups[pipeID])
}

// PipeIDs returns group ids in first-seen order.
func (x *ShapeIndex) PipeIDs() []shapes.PipeID {
	return slices.Clone(x.groupOrder)
}

// IDs returns every indexed id in insertion order.
func (x *ShapeIndex) IDs() []shapes.ID {
	return slices.Clone(x.order)
}

// All yields every shape in insertion order.
func (x *ShapeIndex) All() iter.Seq[shapes.Shape] {
	return func(yield func(shapes.Shape) bool) {
		for _, id := range x.order {
			if !yield(x.byID[id]) {
				return
			}
		}
	}
}

// GroupShapes yields the shapes of one group in insertion order. An unknown
// group yields nothing.
func (x *ShapeIndex) GroupShapes(pipeID shapes.PipeID) iter.Seq[shapes.Shape] {
	return func(yield func(shapes.Shape) bool) {
		for _, id := range x.groups[pipeID] {
			if !yield(x.byID[id]) {
				return
			}
		}
	}
}

// Skipped returns the records left out of the index.
func (x *ShapeIndex) Skipped() []SkippedRecord {
	return slices.Clone(x.skipped)
}
