// Package transport implements dataloader.Fetcher against real upstreams:
// it turns a compiled Endpoint plus a dynamic input into an outbound
// HTTP/GraphQL/gRPC call, consulting the shared response cache first and
// populating it afterward. Nothing in the example pack wires an outbound
// HTTP client against a gateway-style Endpoint description, so this layer
// is built directly against net/http rather than adapted from a teacher
// file — see DESIGN.md for why that's the one deliberate stdlib choice in
// an otherwise library-heavy module.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
	"github.com/tailcall-go/tailcall/internal/httpcache"
	"github.com/tailcall-go/tailcall/internal/mustache"
)

// Fetcher is the dataloader.Fetcher implementation that actually reaches
// an upstream, over whichever transport an Endpoint names.
type Fetcher struct {
	client   *http.Client
	cache    *httpcache.Cache
	grpcPool *endpoint.GRPCConnPool
	logger   *zap.Logger
}

func New(cache *httpcache.Cache, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		grpcPool: endpoint.NewGRPCConnPool(func(target string) (*grpc.ClientConn, error) {
			return grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		}),
		logger: logger,
	}
}

// Single satisfies dataloader.Fetcher for every non-batched field.
func (f *Fetcher) Single(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	switch ep.Transport {
	case endpoint.TransportGraphQL:
		return f.callGraphQL(ctx, ep, input)
	case endpoint.TransportGRPC:
		return f.callGRPC(ctx, ep, input)
	default:
		return f.callHTTP(ctx, ep, input)
	}
}

// Batch satisfies dataloader.Fetcher for fields whose Endpoint declares a
// @graphQL(batch:true) or @http(groupBy:) annotation. A GraphQL endpoint
// sends every operation in one POST. An HTTP endpoint with groupBy keys
// sends one request carrying every input's group key value and matches the
// array response back to the inputs by BatchKey; without groupBy keys it
// sends one request per distinct evaluated URL and replays each result to
// every input that shares it.
func (f *Fetcher) Batch(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
	if ep.Transport == endpoint.TransportGraphQL {
		return f.batchGraphQL(ctx, ep, inputs)
	}
	return f.batchHTTP(ctx, ep, inputs)
}

func (f *Fetcher) callHTTP(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	req, err := endpoint.Evaluate(ep, input)
	if err != nil {
		return nil, err
	}

	if ep.Method == endpoint.MethodGet {
		if entry, ok := f.cache.Get(string(req.Method), req.URL); ok {
			return decodeBody(entry.Body)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "build request to %s", req.URL)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "call %s", req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "read response from %s", req.URL)
	}
	if resp.StatusCode >= 400 {
		return nil, gqlerr.New(gqlerr.KindUpstream, "upstream %s returned %d: %s", req.URL, resp.StatusCode, string(body))
	}

	if ep.Method == endpoint.MethodGet {
		if ttl, ok := httpcache.TTL(resp.Header, time.Now()); ok {
			f.cache.Put(string(req.Method), req.URL, &httpcache.Entry{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body})
			f.logger.Debug("cached upstream response", zap.String("url", req.URL), zap.Duration("ttl", ttl))
		}
	}

	return decodeBody(body)
}

// batchHTTP coalesces every input sharing a batch window into exactly one
// physical request: ep.Batch.GroupBy's query key is repeated once per input
// rather than issuing one call per input (spec.md §4.3(b) seed scenario 2),
// and the upstream's array response is then indexed by BatchKey so each
// input receives the element whose key matches it — null, not a positional
// guess, when none does.
func (f *Fetcher) batchHTTP(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
	if ep.Batch == nil || len(ep.Batch.GroupBy) == 0 {
		return f.batchHTTPByURL(ctx, ep, inputs)
	}

	cloned := *ep
	cloned.Query = append([]endpoint.QueryParam(nil), ep.Query...)

	joinKeys := make([]string, len(inputs))
	for i, in := range inputs {
		parts := make([]string, len(ep.Batch.GroupBy))
		for gi, g := range ep.Batch.GroupBy {
			val, ok := groupKeyValue(in, g)
			if !ok {
				return nil, gqlerr.New(gqlerr.KindBatching, "groupBy key %q unresolved on batched input %d", g, i)
			}
			parts[gi] = val
			cloned.Query = append(cloned.Query, endpoint.QueryParam{Key: g, Value: val})
		}
		joinKeys[i] = strings.Join(parts, "\x00")
	}

	req, err := endpoint.Evaluate(&cloned, inputs[0])
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "build batched request to %s", req.URL)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "call %s", req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "read response from %s", req.URL)
	}
	if resp.StatusCode >= 400 {
		return nil, gqlerr.New(gqlerr.KindUpstream, "upstream %s returned %d: %s", req.URL, resp.StatusCode, string(body))
	}

	result, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	elems, ok := result.AsSequence()
	if !ok {
		return nil, gqlerr.New(gqlerr.KindBatching, "batched endpoint %s did not return an array", req.URL)
	}

	batchKey := ep.Batch.BatchKey
	if len(batchKey) == 0 {
		batchKey = ep.Batch.GroupBy
	}
	byKey := make(map[string]*dynamicvalue.Value, len(elems))
	for _, elem := range elems {
		parts := make([]string, len(batchKey))
		matched := true
		for i, k := range batchKey {
			v, ok := dynamicvalue.Walk(elem, dynamicvalue.Path{k})
			if !ok {
				matched = false
				break
			}
			parts[i] = dynamicvalue.Stringify(v)
		}
		if !matched {
			continue
		}
		byKey[strings.Join(parts, "\x00")] = elem
	}

	out := make([]*dynamicvalue.Value, len(inputs))
	for i, jk := range joinKeys {
		if v, ok := byKey[jk]; ok {
			out[i] = v
		} else {
			out[i] = dynamicvalue.Null()
		}
	}
	return out, nil
}

// groupKeyValue resolves a groupBy key's value for one batched input: keys
// are dot-paths already rooted at the resolver Context ("value.id",
// "args.id"), falling back to treating the key as a bare field name directly
// under "value" — the shorthand spec.md's seed scenario 2 uses when it
// writes groupBy:["fooId"] without spelling out "value.fooId".
func groupKeyValue(in *dynamicvalue.Value, key string) (string, bool) {
	if v, ok := dynamicvalue.Walk(in, dynamicvalue.Path(strings.Split(key, "."))); ok {
		return dynamicvalue.Stringify(v), true
	}
	path := append(dynamicvalue.Path{"value"}, strings.Split(key, ".")...)
	if v, ok := dynamicvalue.Walk(in, path); ok {
		return dynamicvalue.Stringify(v), true
	}
	return "", false
}

// batchHTTPByURL is the fallback for a batch-annotated endpoint with no
// groupBy key to coalesce on: one call per distinct evaluated URL, replayed
// to every input sharing it.
func (f *Fetcher) batchHTTPByURL(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
	out := make([]*dynamicvalue.Value, len(inputs))
	cache := map[string]*dynamicvalue.Value{}
	for i, in := range inputs {
		req, err := endpoint.Evaluate(ep, in)
		if err != nil {
			return nil, err
		}
		if v, ok := cache[req.URL]; ok {
			out[i] = v
			continue
		}
		v, err := f.callHTTP(ctx, ep, in)
		if err != nil {
			return nil, err
		}
		cache[req.URL] = v
		out[i] = v
	}
	return out, nil
}

func (f *Fetcher) callGraphQL(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	query, err := substituteGraphQLQuery(ep, input)
	if err != nil {
		return nil, err
	}
	results, err := f.postGraphQL(ctx, ep, []endpoint.GraphQLOperation{{Query: query}})
	if err != nil {
		return nil, err
	}
	return extractGraphQLField(results[0], ep.GraphQLFieldName)
}

// batchGraphQL encodes every input's operation into a single upstream POST
// body per spec.md §4.3(b) seed scenario 3.
func (f *Fetcher) batchGraphQL(ctx context.Context, ep *endpoint.Endpoint, inputs []*dynamicvalue.Value) ([]*dynamicvalue.Value, error) {
	ops := make([]endpoint.GraphQLOperation, len(inputs))
	for i, in := range inputs {
		query, err := substituteGraphQLQuery(ep, in)
		if err != nil {
			return nil, err
		}
		ops[i] = endpoint.GraphQLOperation{Query: query}
	}

	results, err := f.postGraphQL(ctx, ep, ops)
	if err != nil {
		return nil, err
	}
	if len(results) != len(inputs) {
		return nil, gqlerr.New(gqlerr.KindBatching, "upstream returned %d results for a batch of %d", len(results), len(inputs))
	}

	out := make([]*dynamicvalue.Value, len(inputs))
	for i, r := range results {
		v, err := extractGraphQLField(r, ep.GraphQLFieldName)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// substituteGraphQLQuery mustache-substitutes ep's query template against
// input (so "{{args.id}}" becomes a literal before the query leaves the
// gateway) and then strips any gateway-local fragments the upstream has
// no guarantee of recognizing.
func substituteGraphQLQuery(ep *endpoint.Endpoint, input *dynamicvalue.Value) (string, error) {
	substituted, err := mustache.EvaluateString(ep.GraphQLOperation, input)
	if err != nil {
		return "", fmt.Errorf("transport: substitute graphql query: %w", err)
	}
	return endpoint.FlattenFragments(substituted)
}

type graphQLResponse struct {
	Data   map[string]interface{} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (f *Fetcher) postGraphQL(ctx context.Context, ep *endpoint.Endpoint, ops []endpoint.GraphQLOperation) ([]*dynamicvalue.Value, error) {
	var payload interface{}
	if ep.Batch != nil {
		payload = endpoint.BatchGraphQLOperations(ops)
	} else {
		payload = map[string]interface{}{"query": ops[0].Query}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "encode graphql request")
	}

	url := fmt.Sprintf("%s://%s%s", ep.Scheme, ep.Host, ep.Path)
	if ep.Port != 0 {
		url = fmt.Sprintf("%s://%s:%d%s", ep.Scheme, ep.Host, ep.Port, ep.Path)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "build graphql request")
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "call upstream graphql %s", url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "read graphql response")
	}

	if ep.Batch != nil {
		var batch []graphQLResponse
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "decode batched graphql response")
		}
		out := make([]*dynamicvalue.Value, len(batch))
		for i, r := range batch {
			out[i], err = dataToValue(r)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	var single graphQLResponse
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "decode graphql response")
	}
	v, err := dataToValue(single)
	if err != nil {
		return nil, err
	}
	return []*dynamicvalue.Value{v}, nil
}

func dataToValue(r graphQLResponse) (*dynamicvalue.Value, error) {
	if len(r.Errors) > 0 {
		return nil, gqlerr.New(gqlerr.KindUpstream, "upstream graphql error: %s", r.Errors[0].Message)
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	return dynamicvalue.FromJSON(raw)
}

func extractGraphQLField(v *dynamicvalue.Value, fieldName string) (*dynamicvalue.Value, error) {
	if fieldName == "" {
		return v, nil
	}
	field, ok := dynamicvalue.Walk(v, dynamicvalue.Path{fieldName})
	if !ok {
		return dynamicvalue.Null(), nil
	}
	return field, nil
}

// callGRPC resolves the request/response message descriptors registered
// under ep.GRPCProtoID ("<Request message full name>/<Response message
// full name>") from the global proto registry and issues one unary call.
// A gateway that forwards to arbitrary upstream services can't be
// compiled against their generated stubs, so descriptor resolution has to
// happen at request time the same way endpoint.InvokeDynamic expects.
func (f *Fetcher) callGRPC(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	inName, outName, err := splitProtoID(ep.GRPCProtoID)
	if err != nil {
		return nil, err
	}

	inDesc, err := findMessageDescriptor(inName)
	if err != nil {
		return nil, err
	}
	outDesc, err := findMessageDescriptor(outName)
	if err != nil {
		return nil, err
	}

	inputBytes, err := dynamicvalue.ToJSON(input)
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	outBytes, err := endpoint.InvokeDynamic(ctx, f.grpcPool, target, ep, inDesc, outDesc, inputBytes)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "grpc call %s/%s", ep.GRPCService, ep.GRPCMethod)
	}
	return dynamicvalue.FromJSON(outBytes)
}

func splitProtoID(protoID string) (request, response string, err error) {
	for i := 0; i < len(protoID); i++ {
		if protoID[i] == '/' {
			return protoID[:i], protoID[i+1:], nil
		}
	}
	return "", "", gqlerr.New(gqlerr.KindConfig, "grpc protoId %q must be \"<request>/<response>\"", protoID)
}

func findMessageDescriptor(fullName string) (protoreflect.MessageDescriptor, error) {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(fullName))
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindConfig, err, "resolve message %q", fullName)
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, gqlerr.New(gqlerr.KindConfig, "%q is not a message descriptor", fullName)
	}
	return msgDesc, nil
}

func decodeBody(raw []byte) (*dynamicvalue.Value, error) {
	if len(raw) == 0 {
		return dynamicvalue.Null(), nil
	}
	return dynamicvalue.FromJSON(raw)
}
