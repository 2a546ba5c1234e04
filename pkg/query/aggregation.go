package query

import (
	"cmp"
	"iter"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
	"github.com/dd0wney/cluso-pipenet/pkg/storage"
)

// TopGroupsLimit caps DatasetStats.TopGroups.
const TopGroupsLimit = 10

// ArmStats summarizes the arm lengths of end sprinklers. It is only ever
// produced for a non-empty set; callers receive nil otherwise.
type ArmStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"avg"`
}

// SprinklerBreakdown counts sprinklers by subtype.
type SprinklerBreakdown struct {
	Total  int `json:"total"`
	End    int `json:"end"`
	Center int `json:"center"`
}

func (b *SprinklerBreakdown) add(s shapes.Shape) {
	st, ok := shapes.SprinklerTypeOf(s)
	if !ok {
		return
	}
	b.Total++
	switch st {
	case shapes.SprinklerEnd:
		b.End++
	case shapes.SprinklerCenter:
		b.Center++
	}
}

// DiameterCount is the number of shapes using one DN. A Tee counts once per
// distinct branch diameter.
type DiameterCount struct {
	DN    shapes.Diameter `json:"DN"`
	Count int             `json:"count"`
}

// GroupSize is a pipe group and its member count.
type GroupSize struct {
	PipeID shapes.PipeID `json:"pipe_id"`
	Count  int           `json:"count"`
}

// DatasetStats is the dataset-wide summary.
type DatasetStats struct {
	TotalObjects         int
	ByKind               map[shapes.Kind]int
	PipeGroups           int
	Sprinklers           SprinklerBreakdown
	Arm                  *ArmStats
	DiameterDistribution []DiameterCount
	TopGroups            []GroupSize
	WithConnectors       int
	WithVertices         int
	Skipped              int
}

// DatasetStatistics aggregates over the whole index.
func DatasetStatistics(idx *storage.ShapeIndex) DatasetStats {
	st := DatasetStats{
		TotalObjects: idx.Len(),
		ByKind:       make(map[shapes.Kind]int),
		PipeGroups:   idx.GroupCount(),
		Skipped:      len(idx.Skipped()),
	}

	perDN := make(map[shapes.Diameter]int)
	for s := range idx.All() {
		st.ByKind[s.Kind()]++
		st.Sprinklers.add(s)
		base := s.Common()
		if base.DeclaredConnectors() > 0 {
			st.WithConnectors++
		}
		if len(base.Vertices) > 0 {
			st.WithVertices++
		}
		for _, d := range distinct(s.Diameters()) {
			perDN[d]++
		}
	}
	st.Arm = ArmStatistics(idx.All())

	for _, d := range slices.Sorted(maps.Keys(perDN)) {
		st.DiameterDistribution = append(st.DiameterDistribution, DiameterCount{DN: d, Count: perDN[d]})
	}

	groups := make([]GroupSize, 0, idx.GroupCount())
	for _, pipe := range idx.PipeIDs() {
		groups = append(groups, GroupSize{PipeID: pipe, Count: idx.GroupSize(pipe)})
	}
	// Stable keeps first-seen order among equal sizes.
	slices.SortStableFunc(groups, func(a, b GroupSize) int { return cmp.Compare(b.Count, a.Count) })
	if len(groups) > TopGroupsLimit {
		groups = groups[:TopGroupsLimit]
	}
	st.TopGroups = groups

	return st
}

// GroupStats is the summary of one pipe group.
type GroupStats struct {
	PipeID     shapes.PipeID
	Count      int
	ByKind     map[shapes.Kind]int
	Diameters  []shapes.Diameter
	Sprinklers SprinklerBreakdown
}

// GroupStatistics aggregates one pipe group. An unknown group yields
// storage.ErrGroupNotFound.
func GroupStatistics(idx *storage.ShapeIndex, pipeID shapes.PipeID) (GroupStats, error) {
	if !idx.HasGroup(pipeID) {
		return GroupStats{}, storage.GroupNotFoundError(int64(pipeID))
	}

	st := GroupStats{PipeID: pipeID, ByKind: make(map[shapes.Kind]int)}
	var all []shapes.Diameter
	for s := range idx.GroupShapes(pipeID) {
		st.Count++
		st.ByKind[s.Kind()]++
		st.Sprinklers.add(s)
		all = append(all, s.Diameters()...)
	}
	st.Diameters = distinct(all)
	return st, nil
}

// SprinklerStats summarizes a set of sprinklers.
type SprinklerStats struct {
	Breakdown SprinklerBreakdown
	Arm       *ArmStats
}

// SprinklerStatistics summarizes the sprinklers among the given shapes.
func SprinklerStatistics(items []shapes.Shape) SprinklerStats {
	var st SprinklerStats
	for _, s := range items {
		st.Breakdown.add(s)
	}
	st.Arm = ArmStatistics(slices.Values(items))
	return st
}

// ArmStatistics computes min/max/mean over end sprinklers only. It returns
// nil when there are none.
func ArmStatistics(seq iter.Seq[shapes.Shape]) *ArmStats {
	var st *ArmStats
	var sum float64
	for s := range seq {
		sp, ok := s.(*shapes.Sprinkler)
		if !ok {
			continue
		}
		arm, ok := sp.Arm()
		if !ok {
			continue
		}
		if st == nil {
			st = &ArmStats{Min: arm, Max: arm}
		}
		st.Count++
		st.Min = min(st.Min, arm)
		st.Max = max(st.Max, arm)
		sum += arm
	}
	if st != nil {
		st.Mean = sum / float64(st.Count)
	}
	return st
}

// distinct returns the sorted set of diameters.
func distinct(ds []shapes.Diameter) []shapes.Diameter {
	out := slices.Clone(ds)
	slices.Sort(out)
	return slices.Compact(out)
}
