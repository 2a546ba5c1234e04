package pipenet

import (
	"github.com/dd0wney/cluso-pipenet/pkg/shapes"
)

// FieldInfo documents one record field.
type FieldInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PresentOn   string `json:"present_on"`
}

// KindInfo documents one variant.
type KindInfo struct {
	ShapeName   string `json:"shape_name"`
	Description string `json:"description"`
	Vertices    int    `json:"vertices"`
	Connectors  string `json:"connectors"`
	DN          string `json:"DN"`
}

// ShapeTypeInfo is the static schema documentation returned by
// get_shape_type_info.
type ShapeTypeInfo struct {
	Kinds          []KindInfo  `json:"shape_types"`
	Fields         []FieldInfo `json:"fields"`
	SprinklerTypes []string    `json:"sprinkler_types"`
	Notes          []string    `json:"notes"`
}

func arityOf(s shapes.Shape) string {
	return shapes.ExpectedArity(s).String()
}

// GetShapeTypeInfo documents the record schema. It does not read the dataset.
func GetShapeTypeInfo() ShapeTypeInfo {
	return ShapeTypeInfo{
		Kinds: []KindInfo{
			{
				ShapeName:   string(shapes.KindLine),
				Description: "straight pipe segment",
				Vertices:    2,
				Connectors:  arityOf(&shapes.Line{}),
				DN:          "single diameter",
			},
			{
				ShapeName:   string(shapes.KindTee),
				Description: "junction joining three or four branches",
				Vertices:    1,
				Connectors:  arityOf(&shapes.Tee{}),
				DN:          "one diameter per branch, aligned with connectors",
			},
			{
				ShapeName:   string(shapes.KindElbow),
				Description: "direction change between two segments",
				Vertices:    1,
				Connectors:  arityOf(&shapes.Elbow{}),
				DN:          "single diameter",
			},
			{
				ShapeName:   string(shapes.KindSprinkler),
				Description: "discharge head; end sprinklers take 1 connector, center sprinklers 1-2",
				Vertices:    4,
				Connectors:  arityOf(&shapes.Sprinkler{Mount: shapes.EndMount{}}) + " (end), " + arityOf(&shapes.Sprinkler{Mount: shapes.CenterMount{}}) + " (center)",
				DN:          "single diameter",
			},
		},
		Fields: []FieldInfo{
			{Name: "id", Description: "unique identifier, used by analyze_connections", PresentOn: "all"},
			{Name: "shape_name", Description: "variant tag: Line, Tee, Elbow or Sprinkler", PresentOn: "all"},
			{Name: "pipe_id", Description: "pipe group identifier", PresentOn: "all"},
			{Name: "DN", Description: "nominal diameter", PresentOn: "all"},
			{Name: "vertices", Description: "opaque coordinate points", PresentOn: "all"},
			{Name: "connectors", Description: "ids of neighboring shapes; may dangle at the network boundary", PresentOn: "all"},
			{Name: "type", Description: "sprinkler subtype: end or center", PresentOn: "Sprinkler"},
			{Name: "arm", Description: "arm length", PresentOn: "Sprinkler with type end"},
		},
		SprinklerTypes: []string{string(shapes.SprinklerEnd), string(shapes.SprinklerCenter)},
		Notes: []string{
			"list results return at most 50 objects (default 20); total_matches reports the full count",
			"listings show id, shape_name, DN, type and arm; use get_object_locations or analyze_connections for full detail",
			"unknown filter values match nothing rather than failing",
		},
	}
}
