package query

import (
	"encoding/json"
	"testing"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes/shapetest"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LimitConfig
		wantErr bool
	}{
		{"default", DefaultLimitConfig(), false},
		{"tight", LimitConfig{DefaultLimit: 1, MaxLimit: 1}, false},
		{"max above ceiling", LimitConfig{DefaultLimit: 20, MaxLimit: 100}, true},
		{"zero max", LimitConfig{DefaultLimit: 0, MaxLimit: 0}, true},
		{"zero default", LimitConfig{DefaultLimit: 0, MaxLimit: 10}, true},
		{"default above max", LimitConfig{DefaultLimit: 30, MaxLimit: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				_, gerr := NewGovernor(tt.cfg)
				assert.Error(t, gerr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGovernor_Limit(t *testing.T) {
	g := DefaultGovernor()
	tests := []struct {
		name      string
		requested *int
		want      int
	}{
		{"unspecified", nil, 20},
		{"in range", intp(7), 7},
		{"upper bound", intp(50), 50},
		{"above", intp(100), 50},
		{"zero", intp(0), 1},
		{"negative", intp(-5), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Limit(tt.requested))
		})
	}
}

func TestGovernor_ClampScenario(t *testing.T) {
	idx := indexOf(shapetest.Lines(1, 120, 5, 50)...)
	matches := NewEngine(idx).Find(Filter{}.WithPipeIDs(5))
	require.Len(t, matches, 120)

	page := DefaultGovernor().CompactPage(matches, intp(100), nil)
	assert.Len(t, page.Items, 50)
	assert.Equal(t, 50, page.Returned)
	assert.Equal(t, 120, page.TotalMatches)
	assert.Equal(t, 50, page.Limit)
	assert.True(t, page.HasMore)
}

func TestGovernor_Offset(t *testing.T) {
	idx := indexOf(shapetest.Lines(1, 30, 5, 50)...)
	all := NewEngine(idx).Find(Filter{})
	g := DefaultGovernor()

	page := g.CompactPage(all, intp(10), intp(25))
	assert.Equal(t, 5, page.Returned)
	assert.Equal(t, shapes.ID(26), page.Items[0].ID)
	assert.False(t, page.HasMore)

	page = g.CompactPage(all, nil, intp(500))
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 30, page.TotalMatches)

	page = g.CompactPage(all, nil, intp(-3))
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 20, page.Returned)
}

func TestCompactProjection(t *testing.T) {
	idx := networkIndex(t)

	marshal := func(id shapes.ID) map[string]any {
		s, err := idx.Get(id)
		require.NoError(t, err)
		data, err := json.Marshal(CompactOf(s))
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	line := marshal(1)
	assert.Equal(t, map[string]any{"id": float64(1), "shape_name": "Line", "DN": float64(100)}, line)

	tee := marshal(3)
	assert.Equal(t, []any{float64(100), float64(80), float64(80)}, tee["DN"])

	end := marshal(11)
	assert.Equal(t, "end", end["type"])
	assert.Equal(t, 1.2, end["arm"])

	center := marshal(4)
	assert.Equal(t, "center", center["type"])
	assert.NotContains(t, center, "arm")
	assert.NotContains(t, center, "vertices")
	assert.NotContains(t, center, "connectors")
}

func TestDetailProjection(t *testing.T) {
	s, err := networkIndex(t).Get(20)
	require.NoError(t, err)

	d := DetailOf(s)
	assert.Equal(t, shapes.PipeID(19), d.PipeID)
	assert.Equal(t, []shapes.ID{10, 999}, d.Connectors)
	assert.Len(t, d.Vertices, 2)
	assert.Equal(t, 2, d.ConnectorsCount)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vertices":[{"x":0,"y":0},{"x":1,"y":2}]`)
}

func TestGovernorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	idx := indexOf(shapetest.Lines(1, 120, 5, 50)...)
	all := NewEngine(idx).Find(Filter{})
	g := DefaultGovernor()

	properties.Property("returned never exceeds the ceiling and total is unaffected", prop.ForAll(
		func(limit, offset int) bool {
			page := g.CompactPage(all, &limit, &offset)
			return page.Returned <= MaxLimit &&
				page.Returned >= 0 &&
				page.TotalMatches == len(all) &&
				page.Returned == len(page.Items)
		},
		gen.IntRange(-10, 1000),
		gen.IntRange(-10, 200),
	))

	properties.Property("conjunction equals intersection", prop.ForAll(
		func(kind string, pipe int64) bool {
			engine := NewEngine(networkIndex(t))
			both := idsOf(engine.Find(Filter{}.WithShapeNames(kind).WithPipeIDs(pipe)))
			byPipe := make(map[shapes.ID]bool)
			for _, id := range idsOf(engine.Find(Filter{}.WithPipeIDs(pipe))) {
				byPipe[id] = true
			}
			var want []shapes.ID
			for _, id := range idsOf(engine.Find(Filter{}.WithShapeNames(kind))) {
				if byPipe[id] {
					want = append(want, id)
				}
			}
			if len(want) != len(both) {
				return false
			}
			for i := range want {
				if want[i] != both[i] {
					return false
				}
			}
			return true
		},
		gen.OneConstOf("Line", "Tee", "Elbow", "Sprinkler", "Valve"),
		gen.Int64Range(16, 20),
	))

	properties.TestingRun(t)
}
