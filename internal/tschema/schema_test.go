package tschema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
)

func TestMatches(t *testing.T) {
	s := Object(map[string]*Schema{
		"id":   Int(),
		"name": String(),
		"age":  Optional(Int()),
	}, []string{"id", "name", "age"})

	v, err := dynamicvalue.FromJSON([]byte(`{"id":1,"name":"foo"}`))
	require.NoError(t, err)
	require.True(t, Matches(s, v))

	bad, err := dynamicvalue.FromJSON([]byte(`{"id":"not-an-int","name":"foo"}`))
	require.NoError(t, err)
	require.False(t, Matches(s, bad))
}

func TestIsSubtypeWidthCovariant(t *testing.T) {
	a := Object(map[string]*Schema{
		"id":    Int(),
		"name":  String(),
		"extra": Bool(),
	}, nil)
	b := Object(map[string]*Schema{
		"id":   Int(),
		"name": String(),
	}, nil)
	require.True(t, IsSubtype(a, b))
	require.False(t, IsSubtype(b, a))
}
