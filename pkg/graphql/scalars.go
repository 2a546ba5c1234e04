package graphql

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Long is a 64-bit integer. Shape and pipe ids do not fit GraphQL's
// 32-bit Int.
var Long = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Long",
	Description: "64-bit signed integer",
	Serialize:   coerceLong,
	ParseValue:  coerceLong,
	ParseLiteral: func(valueAST ast.Value) any {
		if v, ok := valueAST.(*ast.IntValue); ok {
			if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
				return n
			}
		}
		return nil
	},
})

func coerceLong(value any) any {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return nil
		}
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	return nil
}

// JSON passes structured values through unchanged. It carries the parts of
// a result whose shape varies: per-kind maps, DN (a number or, for a Tee, a
// list) and opaque vertices.
var JSON = graphql.NewScalar(graphql.ScalarConfig{
	Name:         "JSON",
	Description:  "Arbitrary JSON value",
	Serialize:    func(value any) any { return value },
	ParseValue:   func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any { return nil },
})
