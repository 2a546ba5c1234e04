package query

import (
	"encoding/json"
	"testing"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes/shapetest"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

func networkIndex(t testing.TB) *storage.ShapeIndex {
	t.Helper()
	return storage.BuildIndex(shapetest.Network(), nil)
}

func indexOf(records ...json.RawMessage) *storage.ShapeIndex {
	return storage.BuildIndex(records, nil)
}

func idsOf(items []shapes.Shape) []shapes.ID {
	out := make([]shapes.ID, len(items))
	for i, s := range items {
		out[i] = s.Common().ID
	}
	return out
}

func intp(v int) *int { return &v }
