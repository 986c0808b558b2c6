package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleConfigJSON = `{
  "query": "Query",
  "upstream": {"baseURL": "https://api.example.com"},
  "types": {
    "Query": {"fields": {"user": {"type": "User", "args": {"id": {"type": "Int!"}}, "http": {"path": "/users/{{args.id}}"}}}},
    "User": {"fields": {"id": {"type": "Int!"}, "name": {"type": "String"}}}
  }
}`

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(Options{RegistryPath: filepath.Join(t.TempDir(), "registry.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestCheckAcceptsWellFormedConfig(t *testing.T) {
	errs, err := Check([]byte(sampleConfigJSON), "json")
	require.NoError(t, err)
	require.Empty(t, errs)
}

func TestCheckRejectsMissingQueryRoot(t *testing.T) {
	errs, err := Check([]byte(`{"types":{}}`), "json")
	require.NoError(t, err)
	require.NotEmpty(t, errs)
}

func TestPublishListShowDropRoundTrip(t *testing.T) {
	g := newTestGateway(t)

	digest, err := g.Publish("demo", []byte(sampleConfigJSON), "json", 1000)
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	entries := g.List()
	require.Len(t, entries, 1)
	require.Equal(t, "demo", entries[0].Name)

	src, kind, err := g.Show(digest)
	require.NoError(t, err)
	require.Equal(t, "json", kind)
	require.JSONEq(t, sampleConfigJSON, string(src))

	require.NoError(t, g.Drop(digest))
	require.Empty(t, g.List())
}
