package graphql

import (
	"fmt"

	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/graphql-go/graphql"
)

func filterArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"shapeName":     &graphql.ArgumentConfig{Type: shapeNameEnum},
		"pipeId":        &graphql.ArgumentConfig{Type: Long},
		"dn":            &graphql.ArgumentConfig{Type: graphql.Float, Description: "a Tee matches when any branch has this diameter"},
		"sprinklerType": &graphql.ArgumentConfig{Type: sprinklerTypeEnum},
	}
}

func pagingArgs(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args["limit"] = &graphql.ArgumentConfig{Type: graphql.Int, Description: "clamped to the configured range"}
	args["offset"] = &graphql.ArgumentConfig{Type: graphql.Int}
	return args
}

func stringArg(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

func pageArg(args map[string]any, key string) *pipenet.PageArg {
	if v, ok := args[key].(int); ok {
		a := pipenet.PageArg(v)
		return &a
	}
	return nil
}

func floatArg(args map[string]any, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func longArg(args map[string]any, key string) *int64 {
	if n, ok := coerceLong(args[key]).(int64); ok {
		return &n
	}
	return nil
}

// NewSchema builds the read-only query schema over svc. Every list field
// goes through the service's response governor.
func NewSchema(svc *pipenet.Service) (graphql.Schema, error) {
	if svc == nil {
		return graphql.Schema{}, fmt.Errorf("graphql: nil service")
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"statistics": &graphql.Field{
				Type: statisticsType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.GetStatistics())
				},
			},
			"availableShapes": &graphql.Field{
				Type: availableShapesType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.ListAvailableShapes())
				},
			},
			"shapeTypes": &graphql.Field{
				Type:        JSON,
				Description: "record schema documentation",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(pipenet.GetShapeTypeInfo())
				},
			},
			"count": &graphql.Field{
				Type: countType,
				Args: filterArgs(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.CountObjects(pipenet.CountParams{
						ShapeName:     stringArg(p.Args, "shapeName"),
						PipeID:        longArg(p.Args, "pipeId"),
						DN:            floatArg(p.Args, "dn"),
						SprinklerType: stringArg(p.Args, "sprinklerType"),
					}))
				},
			},
			"objects": &graphql.Field{
				Type: objectPageType,
				Args: pagingArgs(filterArgs()),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.FindObjects(pipenet.FindParams{
						ShapeName:     stringArg(p.Args, "shapeName"),
						PipeID:        longArg(p.Args, "pipeId"),
						DN:            floatArg(p.Args, "dn"),
						SprinklerType: stringArg(p.Args, "sprinklerType"),
						Limit:         pageArg(p.Args, "limit"),
						Offset:        pageArg(p.Args, "offset"),
					}))
				},
			},
			"locations": &graphql.Field{
				Type:        locationPageType,
				Description: "full records including vertices and connectors",
				Args: pagingArgs(graphql.FieldConfigArgument{
					"shapeName": &graphql.ArgumentConfig{Type: shapeNameEnum},
					"pipeId":    &graphql.ArgumentConfig{Type: Long},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.GetObjectLocations(pipenet.LocationParams{
						ShapeName: stringArg(p.Args, "shapeName"),
						PipeID:    longArg(p.Args, "pipeId"),
						Limit:     pageArg(p.Args, "limit"),
						Offset:    pageArg(p.Args, "offset"),
					}))
				},
			},
			"pipeGroup": &graphql.Field{
				Type: pipeGroupType,
				Args: pagingArgs(graphql.FieldConfigArgument{
					"pipeId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(Long)},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					report, err := svc.AnalyzePipeGroup(pipenet.GroupParams{
						PipeID: longArg(p.Args, "pipeId"),
						Limit:  pageArg(p.Args, "limit"),
						Offset: pageArg(p.Args, "offset"),
					})
					if err != nil {
						return nil, err
					}
					return jsonValue(report)
				},
			},
			"sprinklers": &graphql.Field{
				Type: sprinklerReportType,
				Args: pagingArgs(graphql.FieldConfigArgument{
					"pipeId":        &graphql.ArgumentConfig{Type: Long},
					"sprinklerType": &graphql.ArgumentConfig{Type: sprinklerTypeEnum},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return jsonValue(svc.AnalyzeSprinklers(pipenet.SprinklerParams{
						PipeID:        longArg(p.Args, "pipeId"),
						SprinklerType: stringArg(p.Args, "sprinklerType"),
						Limit:         pageArg(p.Args, "limit"),
						Offset:        pageArg(p.Args, "offset"),
					}))
				},
			},
			"connections": &graphql.Field{
				Type: connectionReportType,
				Args: graphql.FieldConfigArgument{
					"objectId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(Long)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					report, err := svc.AnalyzeConnections(pipenet.ConnectionParams{
						ObjectID: longArg(p.Args, "objectId"),
					})
					if err != nil {
						return nil, err
					}
					return jsonValue(report)
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
