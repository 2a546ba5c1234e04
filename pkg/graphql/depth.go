package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth admits every query the schema can express
// (connections > resolved > field is three levels) with headroom.
const DefaultMaxDepth = 6

// queryDepth returns the deepest selection nesting of any operation.
// Fragment spreads are expanded; a fragment cycle stops at the revisit.
func queryDepth(doc *ast.Document) int {
	fragments := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		if f, ok := def.(*ast.FragmentDefinition); ok && f.Name != nil {
			fragments[f.Name.Value] = f
		}
	}

	maxDepth := 0
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			maxDepth = max(maxDepth, selectionDepth(op.SelectionSet, 0, fragments, map[string]bool{}))
		}
	}
	return maxDepth
}

func selectionDepth(set *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if set == nil || len(set.Selections) == 0 {
		return depth
	}

	deepest := depth
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if sel.Name != nil && strings.HasPrefix(sel.Name.Value, "__") {
				continue
			}
			deepest = max(deepest, selectionDepth(sel.SelectionSet, depth+1, fragments, visiting))

		case *ast.InlineFragment:
			deepest = max(deepest, selectionDepth(sel.SelectionSet, depth, fragments, visiting))

		case *ast.FragmentSpread:
			if sel.Name == nil {
				continue
			}
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || visiting[name] {
				continue
			}
			visiting[name] = true
			deepest = max(deepest, selectionDepth(frag.SelectionSet, depth, fragments, visiting))
			delete(visiting, name)
		}
	}
	return deepest
}

// ValidateQueryDepth parses query and rejects it when its nesting exceeds
// maxDepth.
func ValidateQueryDepth(query string, maxDepth int) error {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}

	if depth := queryDepth(doc); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}
