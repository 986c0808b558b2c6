// Package endpoint implements Endpoint, the templated HTTP request
// description from spec.md §3/§4.1, and its evaluation into a concrete
// Request against a dynamic input.
package endpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/mustache"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// Method is the HTTP verb of an Endpoint.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// QueryParam is one templated query-string key/value pair.
type QueryParam struct {
	Key   string
	Value string // raw mustache source
}

// Transport selects which wire protocol Evaluate targets; the REST/HTTP
// path is the default, @graphQL and @grpc compile to the other two.
type Transport int

const (
	TransportHTTP Transport = iota
	TransportGraphQL
	TransportGRPC
)

// BatchConfig carries the groupBy/batchKey annotation a field's Endpoint
// may declare (spec.md §4.3(b)).
type BatchConfig struct {
	GroupBy  []string
	BatchKey []string
	// Reserved is not populated by config.Compile and not read by any
	// package; the groupBy/query-parameter collision check in
	// config.Validate works from HTTPDef.GroupBy directly.
	Reserved map[string]struct{}
}

// Endpoint is the compiled tuple from spec.md §3.
type Endpoint struct {
	Transport Transport
	Method    Method
	Scheme    string
	Host      string
	Port      int // 0 means "use scheme default"
	Path      string // mustache source, leading slash
	Query     []QueryParam
	Headers   map[string]string // values are mustache source
	// Body, if non-nil, projects this mustache path out of the input before
	// JSON-serializing; if nil the whole input is serialized.
	Body *dynamicvalue.Path

	InputSchema  *tschema.Schema
	OutputSchema *tschema.Schema

	Batch *BatchConfig

	// GraphQL transport fields.
	GraphQLOperation string // raw query text template, mustache-substituted per arg
	GraphQLFieldName string

	// gRPC transport fields.
	GRPCService  string
	GRPCMethod   string
	GRPCProtoID  string
}

func defaultPort(scheme string) int {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	default:
		return 0
	}
}

// Request is the concrete HTTP(ish) request Evaluate produces.
type Request struct {
	Method  Method
	URL     string
	Headers map[string]string
	Body    []byte
}

// Evaluate substitutes every mustache expression against input and builds a
// Request, implementing spec.md §4.1's Endpoint.evaluate.
func Evaluate(ep *Endpoint, input *dynamicvalue.Value) (*Request, error) {
	path, err := mustache.EvaluateString(ep.Path, input)
	if err != nil {
		return nil, fmt.Errorf("endpoint: evaluate path: %w", err)
	}

	var qs []string
	for _, qp := range ep.Query {
		val, err := mustache.EvaluateString(qp.Value, input)
		if err != nil {
			return nil, fmt.Errorf("endpoint: evaluate query %s: %w", qp.Key, err)
		}
		qs = append(qs, qp.Key+"="+val)
	}

	url := buildURL(ep.Scheme, ep.Host, ep.Port, path, qs)

	headers := make(map[string]string, len(ep.Headers))
	for k, v := range ep.Headers {
		hv, err := mustache.EvaluateString(v, input)
		if err != nil {
			return nil, fmt.Errorf("endpoint: evaluate header %s: %w", k, err)
		}
		headers[k] = hv
	}

	var body []byte
	if ep.Method != MethodGet && ep.Method != MethodDelete {
		bodyVal := input
		if ep.Body != nil {
			projected, ok := dynamicvalue.Walk(input, *ep.Body)
			if ok {
				bodyVal = projected
			} else {
				bodyVal = dynamicvalue.Null()
			}
		}
		body, err = dynamicvalue.ToJSON(bodyVal)
		if err != nil {
			return nil, fmt.Errorf("endpoint: serialize body: %w", err)
		}
	}

	if len(body) > 0 {
		headers["content-length"] = strconv.Itoa(len(body))
		if _, ok := headers["content-type"]; !ok {
			headers["content-type"] = "application/json"
		}
	}

	return &Request{Method: ep.Method, URL: url, Headers: headers, Body: body}, nil
}

func buildURL(scheme, host string, port int, path string, qs []string) string {
	var sb strings.Builder
	sb.WriteString(scheme)
	sb.WriteString("://")
	sb.WriteString(host)
	if port != 0 && port != defaultPort(scheme) {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(port))
	}
	if !strings.HasPrefix(path, "/") {
		sb.WriteString("/")
	}
	sb.WriteString(path)
	if len(qs) > 0 {
		sb.WriteString("?")
		sb.WriteString(strings.Join(qs, "&"))
	}
	return sb.String()
}

// Fingerprint returns the canonical dedup key for req: method, url, the
// filtered/sorted header set, and the body bytes (spec.md §4.3(a)). The
// exact header set admitted into the fingerprint is controlled by
// allowedHeaders (the @upstream allowedHeaders whitelist); headers outside
// that set never affect cache or dedup identity.
func Fingerprint(req *Request, allowedHeaders []string) string {
	var sb strings.Builder
	sb.WriteString(string(req.Method))
	sb.WriteString(" ")
	sb.WriteString(req.URL)
	for _, h := range allowedHeaders {
		if v, ok := req.Headers[h]; ok {
			sb.WriteString("\n")
			sb.WriteString(strings.ToLower(h))
			sb.WriteString(":")
			sb.WriteString(v)
		}
	}
	sb.WriteString("\n\n")
	sb.Write(req.Body)
	return sb.String()
}
