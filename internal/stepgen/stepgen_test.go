package stepgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/expression"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

func sampleBlueprint() *blueprint.Blueprint {
	bp := blueprint.New("Query", "")
	bp.Register("Query", "")
	bp.Register("User", "")

	bp.SetFields("User", []blueprint.Field{
		{Name: "id", Output: tschema.String(), Resolver: expression.PathExpr(nil, expression.Identity())},
		{Name: "posts", Output: tschema.Array(tschema.String()), Resolver: expression.EndpointCall(&endpoint.Endpoint{}, expression.Identity())},
	})
	bp.SetFields("Query", []blueprint.Field{
		{Name: "user", Output: tschema.String(), Resolver: expression.EndpointCall(&endpoint.Endpoint{}, expression.Identity())},
	})
	return bp
}

func TestGenerateClassifiesStepsByResolverShape(t *testing.T) {
	bp := sampleBlueprint()
	gen := NewGenerator(bp, nil, nil)

	root := gen.Generate("Query")
	require.Equal(t, KindObject, root.Kind)
	require.Len(t, root.Children, 1)
	require.Equal(t, KindQuery, root.Children[0].Kind)
}

func TestGenerateAppliesOmitAndRename(t *testing.T) {
	bp := sampleBlueprint()
	mods := map[string][]Modification{
		"User": {{Field: "id", Rename: "userID"}, {Field: "posts", Omit: true}},
	}
	gen := NewGenerator(bp, mods, nil)

	root := gen.Generate("User")
	require.Len(t, root.Children, 1)
	require.Equal(t, "userID", root.Children[0].Name)
}

func TestGenerateMemoizesRecursiveTypes(t *testing.T) {
	bp := blueprint.New("Query", "")
	bp.Register("Query", "")
	bp.Register("Node", "")
	bp.SetFields("Node", []blueprint.Field{
		{Name: "self", Output: tschema.String(), Resolver: expression.Identity()},
	})
	bp.SetFields("Query", []blueprint.Field{
		{Name: "node", Output: tschema.String(), Resolver: expression.Identity()},
	})

	gen := NewGenerator(bp, nil, nil)
	first := gen.Generate("Node")
	second := gen.Generate("Node")
	require.Same(t, first, second, "recursive type references must share one declared Step")
}
