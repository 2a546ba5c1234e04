package pipenet

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dd0wney/cluso-pipenet/pkg/query"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes/shapetest"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, records ...json.RawMessage) *Service {
	t.Helper()
	if records == nil {
		records = shapetest.Network()
	}
	svc, err := FromRecords(records)
	require.NoError(t, err)
	return svc
}

func ptr[T any](v T) *T { return &v }

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestNew_RejectsBadLimits(t *testing.T) {
	_, err := New(storage.BuildIndex(nil, nil), WithLimits(query.LimitConfig{DefaultLimit: 20, MaxLimit: 80}))
	assert.Error(t, err)
}

func TestWithLogger_Nil(t *testing.T) {
	var svc *Service
	require.NotPanics(t, func() {
		var err error
		svc, err = FromRecords(shapetest.Network(), WithLogger(nil))
		require.NoError(t, err)
	})
	assert.Equal(t, 9, svc.ListAvailableShapes().TotalObjects)
}

func TestListAvailableShapes(t *testing.T) {
	got := newService(t).ListAvailableShapes()

	assert.Equal(t, 9, got.TotalObjects)
	assert.Equal(t, map[string]int{"Line": 3, "Tee": 1, "Elbow": 1, "Sprinkler": 4}, got.ShapeTypes)
	assert.Equal(t, query.SprinklerBreakdown{Total: 4, End: 3, Center: 1}, got.Sprinklers)
	assert.Equal(t, 3, got.PipeGroups)
	assert.Equal(t, []shapes.Diameter{20, 25, 50, 65, 80, 100}, got.AvailableDN)
}

func TestListAvailableShapes_ReportsZeroKinds(t *testing.T) {
	got := newService(t, shapetest.Line(1, 1, 50)).ListAvailableShapes()
	assert.Equal(t, map[string]int{"Line": 1, "Tee": 0, "Elbow": 0, "Sprinkler": 0}, got.ShapeTypes)
}

func TestGetStatistics(t *testing.T) {
	st := newService(t).GetStatistics()
	assert.Equal(t, 9, st.TotalObjects)
	require.NotNil(t, st.ArmStatistics)
	assert.Equal(t, 3, st.ArmStatistics.Count)

	m := toMap(t, st)
	arm := m["arm_statistics"].(map[string]any)
	assert.InDelta(t, 1.5, arm["avg"], 1e-9)
}

func TestGetStatistics_ArmAbsent(t *testing.T) {
	st := newService(t, shapetest.CenterSprinkler(1, 1, 25), shapetest.Line(2, 1, 25)).GetStatistics()
	assert.Nil(t, st.ArmStatistics)

	m := toMap(t, st)
	v, present := m["arm_statistics"]
	assert.True(t, present, "absence is explicit")
	assert.Nil(t, v)
}

func TestGetStatistics_EmptyDataset(t *testing.T) {
	st := newService(t, []json.RawMessage{}...).GetStatistics()
	assert.Zero(t, st.TotalObjects)
	assert.Nil(t, st.ArmStatistics)
	assert.NotNil(t, st.DNDistribution)
}

func TestCountObjects(t *testing.T) {
	svc := newService(t)

	got := svc.CountObjects(CountParams{PipeID: ptr(int64(17))})
	assert.Equal(t, 4, got.TotalMatches)
	assert.Equal(t, map[string]int{"Line": 2, "Tee": 1, "Sprinkler": 1}, got.ByShape)
	assert.Equal(t, Filters{"pipe_id": int64(17)}, got.FiltersApplied)

	none := svc.CountObjects(CountParams{ShapeName: ptr("Valve")})
	assert.Zero(t, none.TotalMatches)
	assert.Empty(t, none.ByShape)
}

func TestFindObjects(t *testing.T) {
	svc := newService(t)

	got := svc.FindObjects(FindParams{ShapeName: ptr("Sprinkler"), SprinklerType: ptr("end")})
	assert.Equal(t, 3, got.TotalMatches)
	require.Len(t, got.Items, 3)
	assert.Equal(t, shapes.ID(11), got.Items[0].ID)
	require.NotNil(t, got.Items[0].Arm)
	assert.Equal(t, 1.2, *got.Items[0].Arm)

	got = svc.FindObjects(FindParams{DN: ptr(80.0)})
	assert.Equal(t, 2, got.TotalMatches)

	got = svc.FindObjects(FindParams{SprinklerType: ptr("pendant")})
	assert.Zero(t, got.TotalMatches)
	assert.Empty(t, got.Items)
}

func TestFindObjects_ClampsLimit(t *testing.T) {
	svc := newService(t, shapetest.Lines(1, 120, 5, 50)...)

	got := svc.FindObjects(FindParams{ShapeName: ptr("Line"), Limit: ptr(PageArg(100))})
	assert.Len(t, got.Items, 50)
	assert.Equal(t, 120, got.TotalMatches)
	assert.True(t, got.HasMore)

	m := toMap(t, got)
	assert.Equal(t, float64(120), m["total_matches"])
	assert.Len(t, m["objects"], 50)
	assert.NotContains(t, m["objects"].([]any)[0], "vertices")
}

func TestFindObjects_Conjunctive(t *testing.T) {
	svc := newService(t)
	for _, kind := range []string{"Line", "Tee", "Elbow", "Sprinkler"} {
		for _, pipe := range []int64{17, 18, 19} {
			both := svc.FindObjects(FindParams{ShapeName: ptr(kind), PipeID: ptr(pipe), Limit: ptr(PageArg(50))})
			byKind := svc.FindObjects(FindParams{ShapeName: ptr(kind), Limit: ptr(PageArg(50))})
			byPipe := svc.FindObjects(FindParams{PipeID: ptr(pipe), Limit: ptr(PageArg(50))})

			inPipe := map[shapes.ID]bool{}
			for _, c := range byPipe.Items {
				inPipe[c.ID] = true
			}
			var want []shapes.ID
			for _, c := range byKind.Items {
				if inPipe[c.ID] {
					want = append(want, c.ID)
				}
			}
			var got []shapes.ID
			for _, c := range both.Items {
				got = append(got, c.ID)
			}
			assert.Equal(t, want, got, "%s in %d", kind, pipe)
		}
	}
}

func TestSearchByCriteria(t *testing.T) {
	svc := newService(t)

	var c Criteria
	require.NoError(t, json.Unmarshal([]byte(`{"shape_name":["Tee","Elbow"],"pipe_id":[17,18]}`), &c))
	got := svc.SearchByCriteria(c)
	assert.Equal(t, 2, got.TotalMatches)
	assert.Equal(t, shapes.ID(3), got.Items[0].ID)
	assert.Equal(t, shapes.ID(10), got.Items[1].ID)

	require.NoError(t, json.Unmarshal([]byte(`{"DN":25,"type":"end"}`), &c))
	got = svc.SearchByCriteria(Criteria{DN: c.DN, Type: c.Type})
	assert.Equal(t, 2, got.TotalMatches)
	assert.Equal(t, []float64{25}, got.FiltersApplied["DN"])
}

func TestGetObjectLocations(t *testing.T) {
	got := newService(t).GetObjectLocations(LocationParams{PipeID: ptr(int64(19))})
	require.Len(t, got.Items, 1)
	assert.Equal(t, []shapes.ID{10, 999}, got.Items[0].Connectors)
	assert.Len(t, got.Items[0].Vertices, 2)

	bounded := newService(t, shapetest.Lines(1, 80, 1, 50)...).GetObjectLocations(LocationParams{Limit: ptr(PageArg(75))})
	assert.Len(t, bounded.Items, 50)
	assert.Equal(t, 80, bounded.TotalMatches)
}

func TestAnalyzePipeGroup(t *testing.T) {
	svc := newService(t,
		shapetest.Line(1, 17, 100, 3),
		shapetest.Line(2, 17, 80, 3),
		shapetest.Tee(3, 17, []float64{100, 80, 80}, 1, 2, 4),
		shapetest.CenterSprinkler(4, 17, 80, 3),
		shapetest.Line(5, 18, 25),
	)

	got, err := svc.AnalyzePipeGroup(GroupParams{PipeID: ptr(int64(17))})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Line": 2, "Tee": 1, "Sprinkler": 1}, got.ShapeDistribution)
	assert.Equal(t, []shapes.Diameter{80, 100}, got.DNValues)
	assert.Equal(t, 4, got.TotalObjects)
	assert.Equal(t, 4, got.TotalMatches)

	ids := []shapes.ID{}
	for _, c := range got.Items {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []shapes.ID{1, 2, 3, 4}, ids)

	_, err = svc.AnalyzePipeGroup(GroupParams{PipeID: ptr(int64(404))})
	assert.ErrorIs(t, err, storage.ErrGroupNotFound)
}

func TestAnalyzeSprinklers(t *testing.T) {
	svc := newService(t)

	got := svc.AnalyzeSprinklers(SprinklerParams{SprinklerType: ptr("end")})
	assert.Equal(t, 3, got.Breakdown.End)
	assert.Equal(t, 0, got.Breakdown.Center)
	require.NotNil(t, got.ArmStatistics)
	assert.Equal(t, 3, got.ArmStatistics.Count)
	assert.InDelta(t, 1.2, got.ArmStatistics.Min, 1e-9)
	assert.InDelta(t, 1.8, got.ArmStatistics.Max, 1e-9)
	assert.InDelta(t, 1.5, got.ArmStatistics.Mean, 1e-9)
	assert.Equal(t, Filters{"sprinkler_type": "end"}, got.FiltersApplied)

	center := svc.AnalyzeSprinklers(SprinklerParams{SprinklerType: ptr("center")})
	assert.Equal(t, 1, center.TotalMatches)
	assert.Nil(t, center.ArmStatistics)

	group := svc.AnalyzeSprinklers(SprinklerParams{PipeID: ptr(int64(17))})
	assert.Equal(t, 1, group.Breakdown.Total)
}

func TestAnalyzeConnections(t *testing.T) {
	svc := newService(t,
		shapetest.Tee(1, 1, []float64{100, 80, 80}, 2, 3, 999),
		shapetest.Line(2, 1, 100, 1),
		shapetest.Line(3, 1, 80, 1),
	)

	got, err := svc.AnalyzeConnections(ConnectionParams{ObjectID: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, 3, got.DeclaredConnectors)
	assert.Equal(t, 2, got.ResolvedCount)
	assert.Equal(t, 1, got.MissingCount)
	assert.Equal(t, []shapes.ID{999}, got.MissingIDs)
	assert.True(t, got.Consistent)
	assert.True(t, got.ArityOK)
	assert.Equal(t, "3-4", got.ExpectedArity)
	require.Len(t, got.Resolved, 2)
	assert.Equal(t, shapes.ID(2), got.Resolved[0].ID)
	assert.Equal(t, 1, got.Resolved[1].Slot)
	assert.Equal(t, shapes.PipeID(1), got.Resolved[0].PipeID)
	assert.Equal(t, 2, got.Resolved[0].VerticesCount)
	assert.Equal(t, []shapes.ID{1}, got.Resolved[0].Connectors)

	m := toMap(t, got)
	obj := m["object"].(map[string]any)
	assert.Contains(t, obj, "vertices", "connection analysis is not elided")
	for _, r := range m["resolved"].([]any) {
		n := r.(map[string]any)
		assert.Contains(t, n, "vertices", "neighbor %v", n["id"])
		assert.Contains(t, n, "connectors", "neighbor %v", n["id"])
		assert.Len(t, n["vertices"], 2)
	}
	assert.NotNil(t, m["warnings"])
}

func TestAnalyzeConnections_NotFound(t *testing.T) {
	_, err := newService(t).AnalyzeConnections(ConnectionParams{ObjectID: ptr(int64(999))})
	assert.ErrorIs(t, err, storage.ErrShapeNotFound)
	assert.True(t, storage.IsNotFound(err))
}

func TestGetShapeTypeInfo(t *testing.T) {
	info := GetShapeTypeInfo()
	require.Len(t, info.Kinds, 4)
	assert.Equal(t, "2", info.Kinds[0].Connectors)
	assert.Equal(t, "3-4", info.Kinds[1].Connectors)
	assert.Equal(t, "1 (end), 1-2 (center)", info.Kinds[3].Connectors)
	assert.Equal(t, []string{"end", "center"}, info.SprinklerTypes)
}

func TestService_ConcurrentReads(t *testing.T) {
	svc := newService(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.FindObjects(FindParams{Limit: ptr(PageArg(i))})
			svc.GetStatistics()
			_, _ = svc.AnalyzeConnections(ConnectionParams{ObjectID: ptr(int64(i))})
		}(i)
	}
	wg.Wait()
}
