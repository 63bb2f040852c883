package graphqlapi

import (
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// dateTime serializes time.Time as ISO-8601 / RFC 3339 strings.
var dateTime = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "DateTime",
	Description: "An ISO-8601 timestamp.",
	Serialize: func(value any) any {
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339)
		case *time.Time:
			if v == nil {
				return nil
			}
			return v.UTC().Format(time.RFC3339)
		}
		return nil
	},
	ParseValue: func(value any) any {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		return t
	},
	ParseLiteral: func(valueAST ast.Value) any {
		lit, ok := valueAST.(*ast.StringValue)
		if !ok {
			return nil
		}
		t, err := time.Parse(time.RFC3339, lit.Value)
		if err != nil {
			return nil
		}
		return t
	},
})

// jsonScalar passes arbitrary JSON through untouched. Enrichment blobs,
// custom fields, and analysis payloads are opaque to this service.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "An opaque JSON value.",
	Serialize:   func(value any) any { return value },
	ParseValue:  func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any {
		return astToValue(valueAST)
	},
})

func astToValue(v ast.Value) any {
	switch node := v.(type) {
	case *ast.StringValue:
		return node.Value
	case *ast.BooleanValue:
		return node.Value
	case *ast.IntValue:
		return node.Value
	case *ast.FloatValue:
		return node.Value
	case *ast.EnumValue:
		return node.Value
	case *ast.ListValue:
		out := make([]any, 0, len(node.Values))
		for _, item := range node.Values {
			out = append(out, astToValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]any, len(node.Fields))
		for _, field := range node.Fields {
			out[field.Name.Value] = astToValue(field.Value)
		}
		return out
	}
	return nil
}
