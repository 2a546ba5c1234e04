package pipenet

import (
	"slices"

	"github.com/dd0wney/cluso-pipenet/pkg/query"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

func kindCounts(byKind map[shapes.Kind]int, includeZero bool) map[string]int {
	out := make(map[string]int, len(byKind))
	if includeZero {
		for _, k := range shapes.Kinds() {
			out[string(k)] = 0
		}
	}
	for k, n := range byKind {
		out[string(k)] = n
	}
	return out
}

// ListAvailableShapes reports counts by kind, the sprinkler breakdown, the
// number of pipe groups and the DN values in use.
func (s *Service) ListAvailableShapes() ShapesSummary {
	st := query.DatasetStatistics(s.idx)
	dns := make([]shapes.Diameter, 0, len(st.DiameterDistribution))
	for _, d := range st.DiameterDistribution {
		dns = append(dns, d.DN)
	}
	return ShapesSummary{
		TotalObjects: st.TotalObjects,
		ShapeTypes:   kindCounts(st.ByKind, true),
		Sprinklers:   st.Sprinklers,
		PipeGroups:   st.PipeGroups,
		AvailableDN:  dns,
	}
}

// GetStatistics returns the dataset-wide aggregate.
func (s *Service) GetStatistics() Statistics {
	st := query.DatasetStatistics(s.idx)
	return Statistics{
		TotalObjects:          st.TotalObjects,
		ShapeDistribution:     kindCounts(st.ByKind, false),
		PipeGroups:            st.PipeGroups,
		Sprinklers:            st.Sprinklers,
		ArmStatistics:         st.Arm,
		DNDistribution:        nonNil(st.DiameterDistribution),
		TopPipeGroups:         nonNil(st.TopGroups),
		ObjectsWithVertices:   st.WithVertices,
		ObjectsWithConnectors: st.WithConnectors,
		SkippedRecords:        st.Skipped,
	}
}

func filterOf(shapeName *string, pipeID *int64, dn *float64, sprinklerType *string) (query.Filter, Filters) {
	var f query.Filter
	echo := Filters{}
	if shapeName != nil {
		f = f.WithShapeNames(*shapeName)
		echo["shape_name"] = *shapeName
	}
	if pipeID != nil {
		f = f.WithPipeIDs(*pipeID)
		echo["pipe_id"] = *pipeID
	}
	if dn != nil {
		f = f.WithDiameters(*dn)
		echo["DN"] = *dn
	}
	if sprinklerType != nil {
		f = f.WithSprinklerTypes(*sprinklerType)
		echo["sprinkler_type"] = *sprinklerType
	}
	return f, echo
}

// CountObjects counts the matches of a filter without listing them.
func (s *Service) CountObjects(p CountParams) CountResult {
	f, echo := filterOf(p.ShapeName, p.PipeID, p.DN, p.SprinklerType)
	byKind := s.engine.CountByKind(f)
	total := 0
	for _, n := range byKind {
		total += n
	}
	return CountResult{
		TotalMatches:   total,
		ByShape:        kindCounts(byKind, false),
		FiltersApplied: echo,
	}
}

// FindObjects returns a governed compact listing of the filter's matches.
func (s *Service) FindObjects(p FindParams) ObjectList {
	f, echo := filterOf(p.ShapeName, p.PipeID, p.DN, p.SprinklerType)
	return ObjectList{
		Page:           s.gov.CompactPage(s.engine.Find(f), (*int)(p.Limit), (*int)(p.Offset)),
		FiltersApplied: echo,
	}
}

// SearchByCriteria is FindObjects with a list of alternatives per key.
func (s *Service) SearchByCriteria(c Criteria) ObjectList {
	var f query.Filter
	echo := Filters{}
	if len(c.ShapeName) > 0 {
		f = f.WithShapeNames(c.ShapeName...)
		echo["shape_name"] = []string(c.ShapeName)
	}
	if len(c.PipeID) > 0 {
		f = f.WithPipeIDs(c.PipeID...)
		echo["pipe_id"] = []int64(c.PipeID)
	}
	if len(c.DN) > 0 {
		f = f.WithDiameters(c.DN...)
		echo["DN"] = []float64(c.DN)
	}
	if len(c.Type) > 0 {
		f = f.WithSprinklerTypes(c.Type...)
		echo["type"] = []string(c.Type)
	}
	return ObjectList{
		Page:           s.gov.CompactPage(s.engine.Find(f), (*int)(c.Limit), (*int)(c.Offset)),
		FiltersApplied: echo,
	}
}

// GetObjectLocations lists full records, vertices and connectors included.
// Detail is opted into explicitly here and remains bounded by the governor.
func (s *Service) GetObjectLocations(p LocationParams) LocationList {
	f, echo := filterOf(p.ShapeName, p.PipeID, nil, nil)
	return LocationList{
		Page:           s.gov.DetailPage(s.engine.Find(f), (*int)(p.Limit), (*int)(p.Offset)),
		FiltersApplied: echo,
	}
}

// AnalyzePipeGroup returns the group aggregate and a governed member list.
func (s *Service) AnalyzePipeGroup(p GroupParams) (GroupReport, error) {
	var pipeID shapes.PipeID
	if p.PipeID != nil {
		pipeID = shapes.PipeID(*p.PipeID)
	}
	st, err := query.GroupStatistics(s.idx, pipeID)
	if err != nil {
		return GroupReport{}, err
	}

	members := s.engine.Find(query.Filter{PipeIDs: []shapes.PipeID{pipeID}})
	return GroupReport{
		PipeID:            pipeID,
		TotalObjects:      st.Count,
		ShapeDistribution: kindCounts(st.ByKind, false),
		DNValues:          st.Diameters,
		Sprinklers:        st.Sprinklers,
		Page:              s.gov.CompactPage(members, (*int)(p.Limit), (*int)(p.Offset)),
	}, nil
}

// AnalyzeSprinklers summarizes the sprinklers matching the optional group and
// subtype, with arm statistics over the end sprinklers among them.
func (s *Service) AnalyzeSprinklers(p SprinklerParams) SprinklerReport {
	name := string(shapes.KindSprinkler)
	f, echo := filterOf(&name, p.PipeID, nil, p.SprinklerType)
	delete(echo, "shape_name")

	matches := s.engine.Find(f)
	st := query.SprinklerStatistics(matches)
	return SprinklerReport{
		Breakdown:      st.Breakdown,
		ArmStatistics:  st.Arm,
		FiltersApplied: echo,
		Page:           s.gov.CompactPage(matches, (*int)(p.Limit), (*int)(p.Offset)),
	}
}

// AnalyzeConnections resolves the connectors of one object.
func (s *Service) AnalyzeConnections(p ConnectionParams) (ConnectionReport, error) {
	var id shapes.ID
	if p.ObjectID != nil {
		id = shapes.ID(*p.ObjectID)
	}
	r, err := query.AnalyzeConnections(s.idx, id)
	if err != nil {
		return ConnectionReport{}, err
	}

	resolved := make([]NeighborInfo, len(r.Resolved))
	for i, n := range r.Resolved {
		resolved[i] = NeighborInfo{Detail: query.DetailOf(n.Shape), Slot: n.Slot}
	}

	return ConnectionReport{
		Object:             query.DetailOf(r.Shape),
		DeclaredConnectors: r.Declared,
		ExpectedConnectors: r.ExpectedCount,
		ExpectedArity:      r.ExpectedArity.String(),
		ResolvedCount:      len(r.Resolved),
		Resolved:           resolved,
		MissingCount:       r.MissingCount(),
		MissingIDs:         nonNil(r.Missing),
		Consistent:         r.Consistent,
		ArityOK:            r.ArityOK(),
		Warnings:           nonNil(r.Warnings),
	}, nil
}

// PipeIDs lists the pipe groups in first-seen order.
func (s *Service) PipeIDs() []shapes.PipeID {
	return s.idx.PipeIDs()
}

// KindNames lists the known variant names, sorted.
func KindNames() []string {
	names := make([]string, 0, 4)
	for _, k := range shapes.Kinds() {
		names = append(names, string(k))
	}
	slices.Sort(names)
	return names
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
