package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/expression"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
	"github.com/tailcall-go/tailcall/internal/mustache"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// Compile reduces a normalized, validated Config to a Blueprint, wiring
// each field's directive into the Expression and Endpoint trees the
// evaluation runtime walks at request time (spec.md §6). Call Compress and
// Validate first; Compile assumes a well-formed Config.
func Compile(cfg *Config) (*blueprint.Blueprint, error) {
	bp := blueprint.New(cfg.Query, cfg.Mutation)

	// Pass 1: Register every type by name so field compilation below can
	// reference a forward/recursive type before its own Fields are known,
	// mirroring blueprint.New's documented two-pass population.
	for name := range cfg.Types {
		bp.Register(name, "")
	}

	// Pass 2: compile every field whose resolver doesn't depend on another
	// field's compiled Expression (everything except @call).
	resolved := map[string]*expression.Expr{} // "Type.Field" -> resolver
	pendingCalls := map[string][2]string{}     // "Type.Field" -> {targetType, targetField}

	for typeName, t := range cfg.Types {
		var fields []blueprint.Field
		for fieldName, f := range t.Fields {
			field, callTarget, err := compileField(cfg, typeName, fieldName, f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			key := typeName + "." + fieldName
			if field.Resolver != nil {
				resolved[key] = field.Resolver
			}
			if callTarget != nil {
				pendingCalls[key] = *callTarget
			}
		}
		fields = applyTypeDirectives(t, fields)
		bp.SetFields(typeName, fields)
	}

	// Pass 3: @call fields borrow the referenced field's already-compiled
	// resolver. Only one level of indirection is supported — a @call field
	// cannot target another @call field — matching spec.md §6's note that
	// @call exists to share a leaf resolver, not to build call chains.
	for key, target := range pendingCalls {
		targetKey := target[0] + "." + target[1]
		targetResolver, ok := resolved[targetKey]
		if !ok {
			return nil, gqlerr.New(gqlerr.KindConfig, "@call on %s targets %s, which has no resolver (or is itself a @call)", key, targetKey)
		}
		patchResolver(bp, key, targetResolver)
	}

	return bp, nil
}

// applyTypeDirectives wires t's @modify/@inline/@addField directives onto
// its already-compiled fields (spec.md §4.6/§6), so that every consumer of
// the resulting Blueprint — the GraphQL facade and the step generator alike
// — sees one already-correct field table rather than having to re-apply
// directive tables of its own at serving time.
func applyTypeDirectives(t *TypeDef, fields []blueprint.Field) []blueprint.Field {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[f.Name] = i
	}

	for fieldName, m := range t.Modify {
		idx, ok := byName[fieldName]
		if !ok {
			continue
		}
		if m.Name != "" {
			fields[idx].PublicName = m.Name
		}
		fields[idx].Omit = m.Omit
	}

	for _, in := range t.Inline {
		idx, ok := byName[in.Field]
		if !ok || len(in.Path) == 0 || fields[idx].Resolver == nil {
			continue
		}
		fields[idx].Resolver = expression.PathExpr(dynamicvalue.Path(in.Path), fields[idx].Resolver)
	}

	for _, af := range t.AddField {
		if af.Name == "" || len(af.Path) == 0 {
			continue
		}
		typeRef := af.Type
		if typeRef == "" {
			typeRef = "String"
		}
		outputSchema, outputObj, outputList := parseTypeRef(typeRef)
		path := append(dynamicvalue.Path{"value"}, af.Path...)
		fields = append(fields, blueprint.Field{
			Name:       af.Name,
			Output:     outputSchema,
			OutputType: outputObj,
			OutputList: outputList,
			Resolver:   expression.PathExpr(path, expression.Identity()),
		})
	}

	return fields
}

func patchResolver(bp *blueprint.Blueprint, key string, resolver *expression.Expr) {
	parts := strings.SplitN(key, ".", 2)
	t, ok := bp.Types[parts[0]]
	if !ok {
		return
	}
	for i := range t.Fields {
		if t.Fields[i].Name == parts[1] {
			t.Fields[i].Resolver = resolver
			return
		}
	}
}

func compileField(cfg *Config, typeName, fieldName string, f *FieldDef) (blueprint.Field, *[2]string, error) {
	outputSchema, outputType, outputList := parseTypeRef(f.Type)

	field := blueprint.Field{
		Name:       fieldName,
		Output:     outputSchema,
		OutputType: outputType,
		OutputList: outputList,
		Protected:  f.Protected,
	}

	for name, a := range f.Args {
		argSchema, _, _ := parseTypeRef(a.Type)
		arg := blueprint.Arg{Name: name, Schema: argSchema}
		if a.Default != nil {
			dv, err := dynamicvalue.FromJSON(mustMarshal(a.Default))
			if err != nil {
				return field, nil, fmt.Errorf("config: %s.%s arg %s default: %w", typeName, fieldName, name, err)
			}
			arg.Default = dv
		}
		field.Args = append(field.Args, arg)
	}

	if f.Cache != nil {
		maxAge := f.Cache.MaxAge
		field.CacheMaxAge = &maxAge
	}

	switch {
	case f.Const != nil:
		dv, err := dynamicvalue.FromJSON(mustMarshal(f.Const))
		if err != nil {
			return field, nil, fmt.Errorf("config: %s.%s const: %w", typeName, fieldName, err)
		}
		field.Resolver = expression.Literal(dv, outputSchema)

	case f.Expr != "":
		field.Resolver = expression.JSONTransform(f.Expr, expression.Identity())

	case f.Http != nil:
		ep, err := compileHTTPEndpoint(cfg, f.Http)
		if err != nil {
			return field, nil, fmt.Errorf("config: %s.%s: %w", typeName, fieldName, err)
		}
		resolver := expression.EndpointCall(ep, expression.Identity())
		if f.Http.Select != "" {
			if path := parseSelectPath(f.Http.Select); len(path) > 0 {
				resolver = expression.PathExpr(path, resolver)
			}
		}
		field.Resolver = resolver
		if ep.Batch != nil {
			field.BatchHint = &blueprint.BatchHint{GroupBy: ep.Batch.GroupBy, BatchKey: ep.Batch.BatchKey}
		}

	case f.GraphQL != nil:
		ep := compileGraphQLEndpoint(f.GraphQL)
		field.Resolver = expression.EndpointCall(ep, expression.Identity())

	case f.GRPC != nil:
		ep := &endpoint.Endpoint{
			Transport:   endpoint.TransportGRPC,
			GRPCService: f.GRPC.Service,
			GRPCMethod:  f.GRPC.Method,
			GRPCProtoID: f.GRPC.ProtoID,
		}
		field.Resolver = expression.EndpointCall(ep, expression.Identity())

	case f.Call != nil:
		target := [2]string{f.Call.Type, f.Call.Field}
		return field, &target, nil

	default:
		// No resolver directive: the field reads straight through from the
		// parent object's own mapping entry of the same name. Every
		// resolver is evaluated against a Context value of the shape
		// {value, args, parent, headers, vars} (spec.md §4's Context), so
		// "value.<fieldName>" is the parent object itself.
		field.Resolver = expression.PathExpr(dynamicvalue.Path{"value", fieldName}, expression.Identity())
	}

	return field, nil, nil
}

func compileHTTPEndpoint(cfg *Config, h *HTTPDef) (*endpoint.Endpoint, error) {
	scheme, host, port, err := splitBaseURL(h.BaseURL)
	if err != nil {
		return nil, err
	}

	ep := &endpoint.Endpoint{
		Transport: endpoint.TransportHTTP,
		Method:    endpoint.Method(h.Method),
		Scheme:    scheme,
		Host:      host,
		Port:      port,
		Path:      h.Path,
		Headers:   h.Headers,
	}
	for k, v := range h.Query {
		ep.Query = append(ep.Query, endpoint.QueryParam{Key: k, Value: v})
	}
	if h.Body != "" {
		tpl, err := mustache.Parse(h.Body)
		if err != nil {
			return nil, fmt.Errorf("parse body path %q: %w", h.Body, err)
		}
		if len(tpl.Segments) == 1 && tpl.Segments[0].Param != nil {
			path := tpl.Segments[0].Param
			ep.Body = &path
		}
	}
	if h.GroupBy != nil {
		batchKey := h.BatchKey
		if len(batchKey) == 0 {
			batchKey = h.GroupBy
		}
		ep.Batch = &endpoint.BatchConfig{GroupBy: h.GroupBy, BatchKey: batchKey}
	}
	return ep, nil
}

// parseSelectPath parses the @http(select:)/@inline(path:)-adjacent "dot
// path" syntax ("{{.company}}") used to project an endpoint's raw result:
// distinct from mustache.Parse's "{{ident.ident}}" substitution grammar,
// since a leading "." addresses the resolved value itself rather than a
// Context field, and the braces are optional sugar rather than required
// template delimiters.
func parseSelectPath(raw string) dynamicvalue.Path {
	inner := strings.TrimSpace(raw)
	inner = strings.TrimPrefix(inner, "{{")
	inner = strings.TrimSuffix(inner, "}}")
	inner = strings.TrimSpace(inner)
	inner = strings.TrimPrefix(inner, ".")
	if inner == "" {
		return nil
	}
	return dynamicvalue.Path(strings.Split(inner, "."))
}

func compileGraphQLEndpoint(g *GraphQLDef) *endpoint.Endpoint {
	scheme, host, port, _ := splitBaseURL(g.BaseURL)
	ep := &endpoint.Endpoint{
		Transport:        endpoint.TransportGraphQL,
		Method:           endpoint.MethodPost,
		Scheme:           scheme,
		Host:             host,
		Port:             port,
		Path:             "/graphql",
		GraphQLOperation: g.Query,
		GraphQLFieldName: g.Name,
	}
	if g.Batch {
		ep.Batch = &endpoint.BatchConfig{}
	}
	return ep
}

func splitBaseURL(raw string) (scheme, host string, port int, err error) {
	scheme = "http"
	rest := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		scheme = raw[:idx]
		rest = raw[idx+3:]
	}
	host = rest
	port = 0
	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		host = rest[:idx]
		var p int
		if _, scanErr := fmt.Sscanf(rest[idx+1:], "%d", &p); scanErr == nil {
			port = p
		}
	}
	if host == "" {
		return "", "", 0, gqlerr.New(gqlerr.KindConfig, "empty upstream baseURL")
	}
	return scheme, host, port, nil
}

// parseTypeRef resolves a config type-reference string ("String", "Int!",
// "[Post]", "User") into a structural Schema plus, for object references,
// the object type's name and whether it's list-wrapped.
func parseTypeRef(raw string) (schema *tschema.Schema, objectName string, isList bool) {
	required := strings.HasSuffix(raw, "!")
	name := strings.TrimSuffix(raw, "!")

	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		inner, innerObj, _ := parseTypeRef(strings.TrimSuffix(strings.TrimPrefix(name, "["), "]"))
		s := tschema.Array(inner)
		if !required {
			s = tschema.Optional(s)
		}
		return s, innerObj, true
	}

	var base *tschema.Schema
	switch name {
	case "String", "ID":
		base = tschema.String()
	case "Int":
		base = tschema.Int()
	case "Boolean":
		base = tschema.Bool()
	case "Float":
		base = tschema.Int() // no dedicated float Kind; Stringify/AsFloat widen ints transparently
	default:
		base = tschema.String()
		objectName = name
	}

	if !required {
		base = tschema.Optional(base)
	}
	return base, objectName, false
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
