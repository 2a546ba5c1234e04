package tools

import (
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/query"
)

// Tool names.
const (
	ToolListAvailableShapes = "list_available_shapes"
	ToolGetStatistics       = "get_statistics"
	ToolCountObjects        = "count_objects"
	ToolFindObjects         = "find_objects"
	ToolSearchByCriteria    = "search_by_criteria"
	ToolGetObjectLocations  = "get_object_locations"
	ToolAnalyzePipeGroup    = "analyze_pipe_group"
	ToolAnalyzeSprinklers   = "analyze_sprinklers"
	ToolAnalyzeConnections  = "analyze_connections"
	ToolGetShapeTypeInfo    = "get_shape_type_info"
)

type noArgs struct{}

func fptr(v float64) *float64 { return &v }

func kindEnum() []any {
	return []any{"Line", "Tee", "Elbow", "Sprinkler"}
}

func paging(limits query.LimitConfig, params map[string]ParamDef) map[string]ParamDef {
	params["limit"] = ParamDef{
		Type:        ParamTypeInt,
		Description: "maximum objects to return; values outside the range are clamped",
		Default:     limits.DefaultLimit,
		Minimum:     fptr(query.MinLimit),
		Maximum:     fptr(float64(limits.MaxLimit)),
	}
	params["offset"] = ParamDef{
		Type:        ParamTypeInt,
		Description: "number of matches to skip",
		Default:     0,
		Minimum:     fptr(0),
	}
	return params
}

func filterParams() map[string]ParamDef {
	return map[string]ParamDef{
		"shape_name":     {Type: ParamTypeString, Description: "shape kind", Enum: kindEnum()},
		"pipe_id":        {Type: ParamTypeInt, Description: "pipe group id"},
		"DN":             {Type: ParamTypeFloat, Description: "nominal diameter; a Tee matches when any branch has it"},
		"sprinkler_type": {Type: ParamTypeString, Description: "sprinkler subtype", Enum: []any{"end", "center"}},
	}
}

// NewPipenetRegistry registers every pipenet operation as a tool.
func NewPipenetRegistry(svc *pipenet.Service) *Registry {
	r := NewRegistry()
	limits := svc.Limits()

	must := func(def ToolDefinition, h Handler) {
		if err := r.Register(def, h); err != nil {
			panic(err)
		}
	}

	must(ToolDefinition{
		Name:        ToolListAvailableShapes,
		Description: "Counts by shape kind, sprinkler subtypes, pipe group count and DN values in use.",
		Parameters:  map[string]ParamDef{},
	}, BindPure(func(noArgs) pipenet.ShapesSummary { return svc.ListAvailableShapes() }))

	must(ToolDefinition{
		Name:        ToolGetStatistics,
		Description: "Dataset-wide statistics: distributions, sprinkler arm statistics, largest pipe groups.",
		Parameters:  map[string]ParamDef{},
	}, BindPure(func(noArgs) pipenet.Statistics { return svc.GetStatistics() }))

	must(ToolDefinition{
		Name:        ToolCountObjects,
		Description: "Counts objects matching all given filters without listing them.",
		Parameters:  filterParams(),
	}, BindPure(svc.CountObjects))

	must(ToolDefinition{
		Name:        ToolFindObjects,
		Description: "Lists objects matching all given filters as compact records.",
		Parameters:  paging(limits, filterParams()),
		Paginated:   true,
	}, BindPure(svc.FindObjects))

	must(ToolDefinition{
		Name:        ToolSearchByCriteria,
		Description: "Like find_objects, but each filter may list alternatives, e.g. {\"shape_name\": [\"Tee\", \"Elbow\"], \"DN\": 25}.",
		Parameters: paging(limits, map[string]ParamDef{
			"shape_name": {Type: ParamTypeFlexible, Description: "shape kind or list of kinds"},
			"pipe_id":    {Type: ParamTypeFlexible, Description: "pipe group id or list of ids"},
			"DN":         {Type: ParamTypeFlexible, Description: "diameter or list of diameters"},
			"type":       {Type: ParamTypeFlexible, Description: "sprinkler subtype or list of subtypes"},
		}),
		Paginated: true,
	}, BindPure(svc.SearchByCriteria))

	must(ToolDefinition{
		Name:        ToolGetObjectLocations,
		Description: "Lists full records including vertices and connectors.",
		Parameters: paging(limits, map[string]ParamDef{
			"shape_name": {Type: ParamTypeString, Description: "shape kind", Enum: kindEnum()},
			"pipe_id":    {Type: ParamTypeInt, Description: "pipe group id"},
		}),
		Paginated: true,
	}, BindPure(svc.GetObjectLocations))

	must(ToolDefinition{
		Name:        ToolAnalyzePipeGroup,
		Description: "Summarizes one pipe group: counts by kind, DN values, and its objects.",
		Parameters: paging(limits, map[string]ParamDef{
			"pipe_id": {Type: ParamTypeInt, Description: "pipe group id", Required: true},
		}),
		Paginated: true,
	}, Bind(svc.AnalyzePipeGroup))

	must(ToolDefinition{
		Name:        ToolAnalyzeSprinklers,
		Description: "Sprinkler breakdown and arm statistics, optionally within one group or subtype.",
		Parameters: paging(limits, map[string]ParamDef{
			"pipe_id":        {Type: ParamTypeInt, Description: "pipe group id"},
			"sprinkler_type": {Type: ParamTypeString, Description: "sprinkler subtype", Enum: []any{"end", "center"}},
		}),
		Paginated: true,
	}, BindPure(svc.AnalyzeSprinklers))

	must(ToolDefinition{
		Name:        ToolAnalyzeConnections,
		Description: "Resolves the connectors of one object into found neighbors and dangling ids.",
		Parameters: map[string]ParamDef{
			"object_id": {Type: ParamTypeInt, Description: "object id", Required: true},
		},
	}, Bind(svc.AnalyzeConnections))

	must(ToolDefinition{
		Name:        ToolGetShapeTypeInfo,
		Description: "Describes the shape kinds and record fields.",
		Parameters:  map[string]ParamDef{},
	}, BindPure(func(noArgs) pipenet.ShapeTypeInfo { return pipenet.GetShapeTypeInfo() }))

	return r
}
