package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/httpcache"
)

func newFetcher() *Fetcher {
	return New(httpcache.New(zap.NewNop(), ""), zap.NewNop())
}

func endpointFor(t *testing.T, srv *httptest.Server, path string) *endpoint.Endpoint {
	t.Helper()
	u := strings.TrimPrefix(srv.URL, "http://")
	return &endpoint.Endpoint{Transport: endpoint.TransportHTTP, Method: endpoint.MethodGet, Scheme: "http", Host: u, Path: path}
}

func TestSingleHTTPDecodesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"id":1,"name":"ada"}`))
	}))
	defer srv.Close()

	f := newFetcher()
	ep := endpointFor(t, srv, "/users/1")
	v, err := f.Single(t.Context(), ep, dynamicvalue.Null())
	require.NoError(t, err)
	name, ok := dynamicvalue.Walk(v, dynamicvalue.Path{"name"})
	require.True(t, ok)
	s, _ := name.AsString()
	require.Equal(t, "ada", s)
}

func TestSingleHTTPCachesGETWithMaxAge(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte(`{"hits":1}`))
	}))
	defer srv.Close()

	f := newFetcher()
	ep := endpointFor(t, srv, "/cached")

	_, err := f.Single(t.Context(), ep, dynamicvalue.Null())
	require.NoError(t, err)
	_, err = f.Single(t.Context(), ep, dynamicvalue.Null())
	require.NoError(t, err)

	require.Equal(t, 1, hits, "second call should be served from cache")
}

func TestSingleHTTPSurfacesUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`not found`))
	}))
	defer srv.Close()

	f := newFetcher()
	ep := endpointFor(t, srv, "/missing")
	_, err := f.Single(t.Context(), ep, dynamicvalue.Null())
	require.Error(t, err)
}

func TestBatchHTTPDedupesSharedURL(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newFetcher()
	ep := endpointFor(t, srv, "/shared")
	out, err := f.Batch(t.Context(), ep, []*dynamicvalue.Value{dynamicvalue.Null(), dynamicvalue.Null(), dynamicvalue.Null()})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 1, hits)
}

func TestSingleGraphQLSubstitutesAndExtractsField(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"data":{"user":{"id":"7"}}}`))
	}))
	defer srv.Close()

	u := strings.TrimPrefix(srv.URL, "http://")
	ep := &endpoint.Endpoint{
		Transport:        endpoint.TransportGraphQL,
		Method:           endpoint.MethodPost,
		Scheme:           "http",
		Host:             u,
		Path:             "/graphql",
		GraphQLOperation: `query { user(id: "{{args.id}}") { id } }`,
		GraphQLFieldName: "user",
	}

	f := newFetcher()
	input, _ := dynamicvalue.FromJSON([]byte(`{"args":{"id":"7"}}`))
	v, err := f.Single(t.Context(), ep, input)
	require.NoError(t, err)
	require.Contains(t, gotBody, `user(id:\"7\")`)

	id, ok := dynamicvalue.Walk(v, dynamicvalue.Path{"id"})
	require.True(t, ok)
	s, _ := id.AsString()
	require.Equal(t, "7", s)
}

func TestSplitProtoIDRequiresSlash(t *testing.T) {
	_, _, err := splitProtoID("just.one.name")
	require.Error(t, err)

	req, resp, err := splitProtoID("pkg.Req/pkg.Resp")
	require.NoError(t, err)
	require.Equal(t, "pkg.Req", req)
	require.Equal(t, "pkg.Resp", resp)
}
