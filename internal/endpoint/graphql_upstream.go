package endpoint

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// GraphQLOperation is a single logical call destined for an upstream
// GraphQL endpoint: {query: string, variables?}.
type GraphQLOperation struct {
	Query     string
	Variables map[string]interface{}
}

// BatchGraphQLOperations encodes N logical calls into the single upstream
// POST body the @graphQL(batch:true) directive produces (spec.md §4.3(b),
// seed scenario 3): an array of {query: "..."} objects in arrival order.
func BatchGraphQLOperations(ops []GraphQLOperation) []map[string]interface{} {
	out := make([]map[string]interface{}, len(ops))
	for i, op := range ops {
		entry := map[string]interface{}{"query": op.Query}
		if len(op.Variables) > 0 {
			entry["variables"] = op.Variables
		}
		out[i] = entry
	}
	return out
}

// FlattenFragments resolves every FragmentSpread in query against its
// FragmentDefinition, inlines the fragment's selection set, and re-emits a
// fragment-free operation as text.
//
// Resolves SPEC_FULL.md §11 Open Question (a): the gateway forwards
// fragment-free queries upstream rather than the fragment definitions
// themselves, since the upstream has no guarantee of sharing the
// gateway's fragment namespace.
func FlattenFragments(query string) (string, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: source.NewSource(&source.Source{Body: []byte(query)})})
	if err != nil {
		return "", fmt.Errorf("endpoint: parse upstream graphql query: %w", err)
	}

	fragments := map[string]*ast.FragmentDefinition{}
	var operations []*ast.OperationDefinition
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		case *ast.OperationDefinition:
			operations = append(operations, d)
		}
	}

	var sb strings.Builder
	for i, op := range operations {
		if i > 0 {
			sb.WriteString("\n")
		}
		printOperation(&sb, op, fragments)
	}
	return strings.TrimSpace(sb.String()), nil
}

func printOperation(sb *strings.Builder, op *ast.OperationDefinition, fragments map[string]*ast.FragmentDefinition) {
	sb.WriteString(op.Operation)
	if op.Name != nil {
		sb.WriteString(" ")
		sb.WriteString(op.Name.Value)
	}
	printSelectionSet(sb, op.SelectionSet, fragments)
}

func printSelectionSet(sb *strings.Builder, set *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition) {
	if set == nil {
		return
	}
	sb.WriteString("{")
	printSelections(sb, set.Selections, fragments)
	sb.WriteString("}")
}

// printSelections writes sels without surrounding braces, so a fragment
// spread's selections land directly inside the enclosing selection set.
func printSelections(sb *strings.Builder, sels []ast.Selection, fragments map[string]*ast.FragmentDefinition) {
	for i, sel := range sels {
		if i > 0 {
			sb.WriteString(" ")
		}
		switch s := sel.(type) {
		case *ast.Field:
			printField(sb, s, fragments)
		case *ast.InlineFragment:
			sb.WriteString("...")
			if s.TypeCondition != nil {
				sb.WriteString(" on ")
				sb.WriteString(s.TypeCondition.Name.Value)
			}
			printSelectionSet(sb, s.SelectionSet, fragments)
		case *ast.FragmentSpread:
			frag, ok := fragments[s.Name.Value]
			if !ok || frag.SelectionSet == nil {
				continue
			}
			printSelections(sb, frag.SelectionSet.Selections, fragments)
		}
	}
}

func printField(sb *strings.Builder, f *ast.Field, fragments map[string]*ast.FragmentDefinition) {
	if f.Alias != nil {
		sb.WriteString(f.Alias.Value)
		sb.WriteString(":")
	}
	sb.WriteString(f.Name.Value)
	if len(f.Arguments) > 0 {
		sb.WriteString("(")
		for i, arg := range f.Arguments {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(arg.Name.Value)
			sb.WriteString(":")
			sb.WriteString(printValue(arg.Value))
		}
		sb.WriteString(")")
	}
	if f.SelectionSet != nil {
		printSelectionSet(sb, f.SelectionSet, fragments)
	}
}

func printValue(v ast.Value) string {
	switch val := v.(type) {
	case *ast.StringValue:
		return fmt.Sprintf("%q", val.Value)
	case *ast.IntValue:
		return val.Value
	case *ast.FloatValue:
		return val.Value
	case *ast.BooleanValue:
		if val.Value {
			return "true"
		}
		return "false"
	case *ast.EnumValue:
		return val.Value
	case *ast.Variable:
		return "$" + val.Name.Value
	case *ast.NullValue:
		return "null"
	default:
		return "null"
	}
}
