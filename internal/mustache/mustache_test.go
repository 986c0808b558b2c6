package mustache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	cases := []string{
		"hello {{a.b.c}} world",
		"{{headers.authorization}}",
		"no params here",
		"{{x}}{{y}}",
	}
	for _, c := range cases {
		tpl, err := Parse(c)
		require.NoError(t, err, c)
		require.Equal(t, c, Encode(tpl), c)
	}
}

func TestEvaluateSubstitutesPath(t *testing.T) {
	dv, err := dynamicvalue.FromJSON([]byte(`{"headers":{"authorization":"1"}}`))
	require.NoError(t, err)
	out, err := EvaluateString("/posts/{{headers.authorization}}", dv)
	require.NoError(t, err)
	require.Equal(t, "/posts/1", out)
}

func TestEvaluateLeavesUnresolvedLiteral(t *testing.T) {
	dv, err := dynamicvalue.FromJSON([]byte(`{"a":1}`))
	require.NoError(t, err)
	out, err := EvaluateString("value={{b.c}}", dv)
	require.NoError(t, err)
	require.Equal(t, "value={{b.c}}", out)
}

func TestEvaluateArrayIndex(t *testing.T) {
	dv, err := dynamicvalue.FromJSON([]byte(`{"tags":["x","y"]}`))
	require.NoError(t, err)
	out, err := EvaluateString("{{tags.1}}", dv)
	require.NoError(t, err)
	require.Equal(t, "y", out)
}
