package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "registry.db")
}

func sampleBlueprint() *blueprint.Blueprint {
	bp := blueprint.New("Query", "")
	bp.Register("Query", "")
	bp.SetFields("Query", []blueprint.Field{{Name: "ping", Output: tschema.String()}})
	return bp
}

func TestPublishGetRoundTrips(t *testing.T) {
	reg, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer reg.Close()

	bp := sampleBlueprint()
	digest, err := reg.Publish("demo", bp, []byte(`{"query":"Query"}`), "json", 1000)
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	got, err := reg.Get(digest)
	require.NoError(t, err)
	require.Equal(t, bp.Query, got.Query)

	src, kind, err := reg.Source(digest)
	require.NoError(t, err)
	require.Equal(t, "json", kind)
	require.JSONEq(t, `{"query":"Query"}`, string(src))
}

func TestPublishedEntriesSurviveReopen(t *testing.T) {
	path := tempDBPath(t)

	reg, err := Open(path)
	require.NoError(t, err)
	bp := sampleBlueprint()
	digest, err := reg.Publish("demo", bp, []byte(`{}`), "json", 1)
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	list := reopened.List()
	require.Len(t, list, 1)
	require.Equal(t, digest, list[0].Digest)

	_, err = reopened.Get(digest)
	require.ErrorIs(t, err, ErrNotFound, "the in-memory Blueprint cache does not survive a reopen, only the source record does")
}

func TestDropRemovesEntry(t *testing.T) {
	reg, err := Open(tempDBPath(t))
	require.NoError(t, err)
	defer reg.Close()

	digest, err := reg.Publish("demo", sampleBlueprint(), []byte(`{}`), "json", 1)
	require.NoError(t, err)
	require.NoError(t, reg.Drop(digest))

	_, err = reg.Get(digest)
	require.ErrorIs(t, err, ErrNotFound)
}

