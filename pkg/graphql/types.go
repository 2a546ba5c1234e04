package graphql

import (
	"encoding/json"

	"github.com/graphql-go/graphql"
)

// Resolvers convert service results to their JSON form once and every
// object field reads its key from the resulting map, so the GraphQL view
// can never drift from the tool output.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// prop exposes key of a JSON-object source as a field of type t.
func prop(t graphql.Output, key, description string) *graphql.Field {
	return &graphql.Field{
		Type:        t,
		Description: description,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if m, ok := p.Source.(map[string]any); ok {
				return m[key], nil
			}
			return nil, nil
		},
	}
}

func merge(sets ...graphql.Fields) graphql.Fields {
	out := graphql.Fields{}
	for _, fs := range sets {
		for name, f := range fs {
			out[name] = f
		}
	}
	return out
}

var shapeNameEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "ShapeName",
	Values: graphql.EnumValueConfigMap{
		"Line":      &graphql.EnumValueConfig{Value: "Line"},
		"Tee":       &graphql.EnumValueConfig{Value: "Tee"},
		"Elbow":     &graphql.EnumValueConfig{Value: "Elbow"},
		"Sprinkler": &graphql.EnumValueConfig{Value: "Sprinkler"},
	},
})

var sprinklerTypeEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "SprinklerType",
	Values: graphql.EnumValueConfigMap{
		"end":    &graphql.EnumValueConfig{Value: "end"},
		"center": &graphql.EnumValueConfig{Value: "center"},
	},
})

func summaryFields() graphql.Fields {
	return graphql.Fields{
		"id":        prop(Long, "id", ""),
		"shapeName": prop(graphql.String, "shape_name", ""),
		"dn":        prop(JSON, "DN", "a number, or a list of branch diameters for a Tee"),
		"type":      prop(graphql.String, "type", "sprinkler subtype"),
		"arm":       prop(graphql.Float, "arm", "end sprinkler arm length"),
	}
}

var shapeSummaryType = graphql.NewObject(graphql.ObjectConfig{
	Name:   "ShapeSummary",
	Fields: summaryFields(),
})

func detailFields() graphql.Fields {
	return merge(summaryFields(), graphql.Fields{
		"pipeId":             prop(Long, "pipe_id", ""),
		"vertices":           prop(JSON, "vertices", "opaque geometry"),
		"connectors":         prop(graphql.NewList(Long), "connectors", ""),
		"unparsedConnectors": prop(JSON, "unparsed_connectors", ""),
		"verticesCount":      prop(graphql.Int, "vertices_count", ""),
		"connectorsCount":    prop(graphql.Int, "connectors_count", ""),
	})
}

var shapeDetailType = graphql.NewObject(graphql.ObjectConfig{
	Name:   "ShapeDetail",
	Fields: detailFields(),
})

var neighborType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Neighbor",
	Fields: merge(detailFields(), graphql.Fields{
		"connectorIndex": prop(graphql.Int, "connector_index", "position in the source's connector list"),
	}),
})

var warningType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ConnectionWarning",
	Fields: graphql.Fields{
		"code":      prop(graphql.String, "code", ""),
		"message":   prop(graphql.String, "message", ""),
		"connector": prop(Long, "connector", ""),
	},
})

var breakdownType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SprinklerBreakdown",
	Fields: graphql.Fields{
		"total":  prop(graphql.Int, "total", ""),
		"end":    prop(graphql.Int, "end", ""),
		"center": prop(graphql.Int, "center", ""),
	},
})

var armStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ArmStatistics",
	Fields: graphql.Fields{
		"count": prop(graphql.Int, "count", ""),
		"min":   prop(graphql.Float, "min", ""),
		"max":   prop(graphql.Float, "max", ""),
		"avg":   prop(graphql.Float, "avg", ""),
	},
})

var diameterCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DiameterCount",
	Fields: graphql.Fields{
		"dn":    prop(graphql.Float, "DN", ""),
		"count": prop(graphql.Int, "count", ""),
	},
})

var groupSizeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GroupSize",
	Fields: graphql.Fields{
		"pipeId": prop(Long, "pipe_id", ""),
		"count":  prop(graphql.Int, "count", ""),
	},
})

var statisticsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Statistics",
	Fields: graphql.Fields{
		"totalObjects":          prop(graphql.Int, "total_objects", ""),
		"shapeDistribution":     prop(JSON, "shape_distribution", "count per shape name"),
		"pipeGroups":            prop(graphql.Int, "pipe_groups", ""),
		"sprinklers":            prop(breakdownType, "sprinklers", ""),
		"armStatistics":         prop(armStatsType, "arm_statistics", "null without end sprinklers"),
		"dnDistribution":        prop(graphql.NewList(diameterCountType), "dn_distribution", ""),
		"topPipeGroups":         prop(graphql.NewList(groupSizeType), "top_pipe_groups", ""),
		"objectsWithVertices":   prop(graphql.Int, "objects_with_vertices", ""),
		"objectsWithConnectors": prop(graphql.Int, "objects_with_connectors", ""),
		"skippedRecords":        prop(graphql.Int, "skipped_records", ""),
	},
})

var availableShapesType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AvailableShapes",
	Fields: graphql.Fields{
		"totalObjects":   prop(graphql.Int, "total_objects", ""),
		"shapeTypes":     prop(JSON, "shape_types", "count per shape name, zero counts included"),
		"sprinklerTypes": prop(breakdownType, "sprinkler_types", ""),
		"pipeGroups":     prop(graphql.Int, "pipe_groups", ""),
		"availableDN":    prop(graphql.NewList(graphql.Float), "available_DN", ""),
	},
})

var countType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CountResult",
	Fields: graphql.Fields{
		"totalMatches":   prop(graphql.Int, "total_matches", ""),
		"byShape":        prop(JSON, "by_shape", ""),
		"filtersApplied": prop(JSON, "filters_applied", ""),
	},
})

// pageFields are shared by every governed listing.
func pageFields(item *graphql.Object) graphql.Fields {
	return graphql.Fields{
		"objects":      prop(graphql.NewList(item), "objects", ""),
		"totalMatches": prop(graphql.Int, "total_matches", "size of the full result set"),
		"returned":     prop(graphql.Int, "returned", ""),
		"limit":        prop(graphql.Int, "limit", "effective limit after clamping"),
		"offset":       prop(graphql.Int, "offset", ""),
		"hasMore":      prop(graphql.Boolean, "has_more", ""),
	}
}

var objectPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ObjectPage",
	Fields: merge(pageFields(shapeSummaryType), graphql.Fields{
		"filtersApplied": prop(JSON, "filters_applied", ""),
	}),
})

var locationPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LocationPage",
	Fields: merge(pageFields(shapeDetailType), graphql.Fields{
		"filtersApplied": prop(JSON, "filters_applied", ""),
	}),
})

var pipeGroupType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PipeGroup",
	Fields: merge(pageFields(shapeSummaryType), graphql.Fields{
		"pipeId":            prop(Long, "pipe_id", ""),
		"totalObjects":      prop(graphql.Int, "total_objects", ""),
		"shapeDistribution": prop(JSON, "shape_distribution", ""),
		"dnValues":          prop(graphql.NewList(graphql.Float), "DN_values", ""),
		"sprinklers":        prop(breakdownType, "sprinklers", ""),
	}),
})

var sprinklerReportType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SprinklerReport",
	Fields: merge(pageFields(shapeSummaryType), graphql.Fields{
		"breakdown":      prop(breakdownType, "breakdown", ""),
		"armStatistics":  prop(armStatsType, "arm_statistics", ""),
		"filtersApplied": prop(JSON, "filters_applied", ""),
	}),
})

var connectionReportType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ConnectionReport",
	Fields: graphql.Fields{
		"object":             prop(shapeDetailType, "object", ""),
		"declaredConnectors": prop(graphql.Int, "declared_connectors", ""),
		"expectedConnectors": prop(graphql.Int, "expected_connectors", ""),
		"expectedArity":      prop(graphql.String, "expected_arity", ""),
		"resolvedCount":      prop(graphql.Int, "resolved_count", ""),
		"resolved":           prop(graphql.NewList(neighborType), "resolved", ""),
		"missingCount":       prop(graphql.Int, "missing_count", ""),
		"missingIds":         prop(graphql.NewList(Long), "missing_ids", ""),
		"consistent":         prop(graphql.Boolean, "consistent", "resolved plus missing equals declared"),
		"arityOk":            prop(graphql.Boolean, "arity_ok", ""),
		"warnings":           prop(graphql.NewList(warningType), "warnings", ""),
	},
})
