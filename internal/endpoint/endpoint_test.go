package endpoint

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
)

func TestEvaluateBuildsURLAndOmitsDefaultPort(t *testing.T) {
	ep := &Endpoint{
		Method: MethodGet,
		Scheme: "https",
		Host:   "api.example.com",
		Port:   443,
		Path:   "/users/{{value.id}}",
	}
	input, _ := dynamicvalue.FromJSON([]byte(`{"value":{"id":1}}`))
	req, err := Evaluate(ep, input)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/users/1", req.URL)
	require.Empty(t, req.Body)
}

func TestEvaluateIncludesNonDefaultPort(t *testing.T) {
	ep := &Endpoint{Method: MethodGet, Scheme: "http", Host: "internal", Port: 8080, Path: "/x"}
	req, err := Evaluate(ep, dynamicvalue.Null())
	require.NoError(t, err)
	require.Equal(t, "http://internal:8080/x", req.URL)
}

func TestEvaluateSetsContentLengthAndType(t *testing.T) {
	ep := &Endpoint{Method: MethodPost, Scheme: "http", Host: "h", Port: 80, Path: "/p"}
	input, _ := dynamicvalue.FromJSON([]byte(`{"a":1}`))
	req, err := Evaluate(ep, input)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(len(req.Body)), req.Headers["content-length"])
	require.Equal(t, "application/json", req.Headers["content-type"])
}

func TestEvaluateGetHasNoBody(t *testing.T) {
	ep := &Endpoint{Method: MethodGet, Scheme: "http", Host: "h", Port: 80, Path: "/p"}
	input, _ := dynamicvalue.FromJSON([]byte(`{"a":1}`))
	req, err := Evaluate(ep, input)
	require.NoError(t, err)
	require.Empty(t, req.Body)
	_, hasCL := req.Headers["content-length"]
	require.False(t, hasCL)
}

func TestEvaluateProjectsBodyPath(t *testing.T) {
	path := dynamicvalue.Path{"value", "company"}
	ep := &Endpoint{Method: MethodPost, Scheme: "http", Host: "h", Port: 80, Path: "/p", Body: &path}
	input, _ := dynamicvalue.FromJSON([]byte(`{"value":{"company":{"name":"FOO"}}}`))
	req, err := Evaluate(ep, input)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"FOO"}`, string(req.Body))
}

func TestFingerprintFiltersHeaders(t *testing.T) {
	req := &Request{Method: MethodGet, URL: "http://h/p", Headers: map[string]string{"authorization": "a", "x-trace": "t"}}
	fp1 := Fingerprint(req, []string{"authorization"})
	req2 := &Request{Method: MethodGet, URL: "http://h/p", Headers: map[string]string{"authorization": "a", "x-trace": "other"}}
	fp2 := Fingerprint(req2, []string{"authorization"})
	require.Equal(t, fp1, fp2, "headers outside the allowlist must not affect the fingerprint")
}

func TestFlattenFragmentsInlinesSpread(t *testing.T) {
	query := `query { post(id: 3) { ...PostFields } } fragment PostFields on Post { id title }`
	out, err := FlattenFragments(query)
	require.NoError(t, err)
	require.NotContains(t, out, "fragment")
	require.NotContains(t, out, "...")
	require.Contains(t, out, "post(id:3)")
}
