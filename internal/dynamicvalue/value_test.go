package dynamicvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	cases := []string{
		`null`,
		`true`,
		`42`,
		`3.5`,
		`"hello"`,
		`[1,2,3]`,
		`{"id":1,"company":{"name":"FOO","catchPhrase":"BAR"}}`,
		`{"a":[{"b":1},{"b":2}]}`,
	}
	for _, c := range cases {
		v, err := FromJSON([]byte(c))
		require.NoError(t, err, c)
		out, err := ToJSON(v)
		require.NoError(t, err, c)
		v2, err := FromJSON(out)
		require.NoError(t, err, c)
		require.True(t, Equal(v, v2), "round trip mismatch for %s -> %s", c, string(out))
	}
}

func TestMappingPreservesInsertionOrder(t *testing.T) {
	v, err := FromJSON([]byte(`{"z":1,"a":2,"m":3}`))
	require.NoError(t, err)
	out, err := ToJSON(v)
	require.NoError(t, err)
	require.Equal(t, `{"z":1,"a":2,"m":3}`, string(out))
}

func TestWalkPath(t *testing.T) {
	v, err := FromJSON([]byte(`{"company":{"name":"FOO"},"tags":["x","y"]}`))
	require.NoError(t, err)

	got, ok := Walk(v, Path{"company", "name"})
	require.True(t, ok)
	s, _ := got.AsString()
	require.Equal(t, "FOO", s)

	got, ok = Walk(v, Path{"tags", "1"})
	require.True(t, ok)
	s, _ = got.AsString()
	require.Equal(t, "y", s)

	_, ok = Walk(v, Path{"missing"})
	require.False(t, ok)
}

func TestEqual(t *testing.T) {
	a, _ := FromJSON([]byte(`{"a":1,"b":[1,2]}`))
	b, _ := FromJSON([]byte(`{"a":1,"b":[1,2]}`))
	c, _ := FromJSON([]byte(`{"a":1,"b":[1,3]}`))
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}
