package pipenet

import (
	"github.com/dd0wney/cluso-pipenet/pkg/query"
	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

// Filters echoes the predicates an operation evaluated.
type Filters map[string]any

// ShapesSummary is the result of list_available_shapes.
type ShapesSummary struct {
	TotalObjects int                      `json:"total_objects"`
	ShapeTypes   map[string]int           `json:"shape_types"`
	Sprinklers   query.SprinklerBreakdown `json:"sprinkler_types"`
	PipeGroups   int                      `json:"pipe_groups"`
	AvailableDN  []shapes.Diameter        `json:"available_DN"`
}

// Statistics is the result of get_statistics. ArmStatistics is null when
// the dataset has no end sprinklers.
type Statistics struct {
	TotalObjects          int                      `json:"total_objects"`
	ShapeDistribution     map[string]int           `json:"shape_distribution"`
	PipeGroups            int                      `json:"pipe_groups"`
	Sprinklers            query.SprinklerBreakdown `json:"sprinklers"`
	ArmStatistics         *query.ArmStats          `json:"arm_statistics"`
	DNDistribution        []query.DiameterCount    `json:"dn_distribution"`
	TopPipeGroups         []query.GroupSize        `json:"top_pipe_groups"`
	ObjectsWithVertices   int                      `json:"objects_with_vertices"`
	ObjectsWithConnectors int                      `json:"objects_with_connectors"`
	SkippedRecords        int                      `json:"skipped_records"`
}

// CountResult is the result of count_objects.
type CountResult struct {
	TotalMatches   int            `json:"total_matches"`
	ByShape        map[string]int `json:"by_shape"`
	FiltersApplied Filters        `json:"filters_applied"`
}

// ObjectList is a governed list of compact projections.
type ObjectList struct {
	query.Page[query.Compact]
	FiltersApplied Filters `json:"filters_applied"`
}

// LocationList is a governed list of full-detail records.
type LocationList struct {
	query.Page[query.Detail]
	FiltersApplied Filters `json:"filters_applied"`
}

// GroupReport is the result of analyze_pipe_group.
type GroupReport struct {
	PipeID            shapes.PipeID            `json:"pipe_id"`
	TotalObjects      int                      `json:"total_objects"`
	ShapeDistribution map[string]int           `json:"shape_distribution"`
	DNValues          []shapes.Diameter        `json:"DN_values"`
	Sprinklers        query.SprinklerBreakdown `json:"sprinklers"`
	query.Page[query.Compact]
}

// SprinklerReport is the result of analyze_sprinklers. ArmStatistics is
// null when no end sprinkler matched.
type SprinklerReport struct {
	Breakdown      query.SprinklerBreakdown `json:"breakdown"`
	ArmStatistics  *query.ArmStats          `json:"arm_statistics"`
	FiltersApplied Filters                  `json:"filters_applied"`
	query.Page[query.Compact]
}

// NeighborInfo is one resolved connector, carrying the neighbor in full.
type NeighborInfo struct {
	query.Detail
	Slot int `json:"connector_index"`
}

// ConnectionReport is the result of analyze_connections. It is exempt from
// elision and pagination since it is bounded by connector arity.
type ConnectionReport struct {
	Object             query.Detail    `json:"object"`
	DeclaredConnectors int             `json:"declared_connectors"`
	ExpectedConnectors int             `json:"expected_connectors"`
	ExpectedArity      string          `json:"expected_arity"`
	ResolvedCount      int             `json:"resolved_count"`
	Resolved           []NeighborInfo  `json:"resolved"`
	MissingCount       int             `json:"missing_count"`
	MissingIDs         []shapes.ID     `json:"missing_ids"`
	Consistent         bool            `json:"consistent"`
	ArityOK            bool            `json:"arity_ok"`
	Warnings           []query.Warning `json:"warnings"`
}
