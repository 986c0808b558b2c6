// Package gqlfacade builds a graphql-go schema from a compiled Blueprint
// and serves it over HTTP. Adapted from the teacher's GraphQLEngine
// (pkg/platform/graphql/engine.go): the custom JSON scalar and the
// graphql.NewSchema/graphql.Do wiring survive unchanged in spirit, but
// fields are now generated from Blueprint's type table instead of from a
// fixed set of database-collection CRUD fields, and field resolution
// dispatches into the evaluation runtime rather than calling node methods
// directly.
package gqlfacade

import (
	"context"
	"encoding/json"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"go.uber.org/zap"

	"github.com/tailcall-go/tailcall/internal/auth"
	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/dataloader"
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/evalrt"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// jsonScalar round-trips an arbitrary DynamicValue-shaped argument or
// result through GraphQL without a declared structural type, for fields
// whose Output schema is a bare dict/array-of-unknown-shape.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "An arbitrary JSON value.",
	Serialize:   func(value interface{}) interface{} { return value },
	ParseValue:  func(value interface{}) interface{} { return value },
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if s, ok := valueAST.(*ast.StringValue); ok {
			return s.Value
		}
		return nil
	},
})

// SchemaBuilder turns a Blueprint into a graphql.Schema, closing every
// field's resolver over a fresh per-request Loader.
type SchemaBuilder struct {
	bp        *blueprint.Blueprint
	fetcher   dataloader.Fetcher
	loaderCfg dataloader.Config
	verifier  *auth.Verifier
	logger    *zap.Logger

	objects map[string]*graphql.Object
}

func NewSchemaBuilder(bp *blueprint.Blueprint, fetcher dataloader.Fetcher, loaderCfg dataloader.Config, verifier *auth.Verifier, logger *zap.Logger) *SchemaBuilder {
	return &SchemaBuilder{bp: bp, fetcher: fetcher, loaderCfg: loaderCfg, verifier: verifier, logger: logger, objects: map[string]*graphql.Object{}}
}

// Build compiles the full graphql.Schema.
func (b *SchemaBuilder) Build() (graphql.Schema, error) {
	queryType := b.buildObject(b.bp.Query)
	cfg := graphql.SchemaConfig{Query: queryType}
	if b.bp.Mutation != "" {
		cfg.Mutation = b.buildObject(b.bp.Mutation)
	}
	return graphql.NewSchema(cfg)
}

// buildObject returns the graphql.Object for typeName, building it (and
// registering the shell before populating fields) on first reference so
// recursive/mutually-referential types resolve without infinite descent —
// the same two-pass shape blueprint.Blueprint itself uses for its type
// table.
func (b *SchemaBuilder) buildObject(typeName string) *graphql.Object {
	if existing, ok := b.objects[typeName]; ok {
		return existing
	}

	obj := graphql.NewObject(graphql.ObjectConfig{Name: typeName, Fields: graphql.Fields{}})
	b.objects[typeName] = obj

	t, ok := b.bp.Types[typeName]
	if !ok {
		return obj
	}

	for _, f := range t.Fields {
		if f.Omit {
			continue
		}
		name := f.Name
		if f.PublicName != "" {
			name = f.PublicName
		}
		obj.AddFieldConfig(name, b.buildField(f))
	}
	return obj
}

func (b *SchemaBuilder) buildField(f blueprint.Field) *graphql.Field {
	output := b.outputType(f)

	args := graphql.FieldConfigArgument{}
	for _, a := range f.Args {
		args[a.Name] = &graphql.ArgumentConfig{Type: b.scalarType(a.Schema)}
	}

	field := &graphql.Field{
		Type:    output,
		Args:    args,
		Resolve: b.resolverFor(f),
	}
	return field
}

func (b *SchemaBuilder) outputType(f blueprint.Field) graphql.Output {
	var out graphql.Output
	if f.OutputType != "" {
		out = b.buildObject(f.OutputType)
	} else {
		out = b.scalarType(f.Output)
	}
	if f.OutputList {
		out = graphql.NewList(out)
	}
	return out
}

func (b *SchemaBuilder) scalarType(s *tschema.Schema) graphql.Output {
	if s == nil {
		return jsonScalar
	}
	switch s.Kind() {
	case tschema.KindString:
		return graphql.String
	case tschema.KindInt:
		return graphql.Int
	case tschema.KindBool:
		return graphql.Boolean
	case tschema.KindOptional:
		return b.scalarType(s.Inner())
	case tschema.KindArray:
		return graphql.NewList(b.scalarType(s.Inner()))
	default:
		return jsonScalar
	}
}

// requestContextKey carries per-request plumbing (headers, auth claims,
// vars, and the request-scoped Loader) through graphql.Do's context.Context
// rather than through a package-level global.
type requestContextKey struct{}

// RequestContext is attached to context.Context for the duration of one
// GraphQL request.
type RequestContext struct {
	Loader  *dataloader.Loader
	Headers map[string]string
	Vars    map[string]string
	Claims  *auth.Claims
	// CorrelationID identifies this request across the zap log lines it
	// produces (it is not sent upstream), the way the teacher's cluster-node request
	// handling stamps a UUID onto each inbound call.
	CorrelationID string
}

func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

func requestContextFrom(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	if rc == nil {
		return &RequestContext{}
	}
	return rc
}

func (b *SchemaBuilder) resolverFor(f blueprint.Field) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if f.Protected {
			rc := requestContextFrom(p.Context)
			if rc.Claims == nil {
				return nil, gqlerr.New(gqlerr.KindValidation, "field %q requires authentication", f.Name)
			}
		}

		parent, _ := p.Source.(*dynamicvalue.Value)
		argsVal, err := argsToDynamicValue(p.Args)
		if err != nil {
			return nil, gqlerr.Wrap(gqlerr.KindValidation, err, "decode arguments for %q", f.Name)
		}

		rc := requestContextFrom(p.Context)
		bctx := &blueprint.Context{Value: parent, Args: argsVal, Headers: rc.Headers, Vars: rc.Vars}

		loader := rc.Loader
		if loader == nil {
			loader = dataloader.New(b.fetcher, b.loaderCfg)
		}
		// dataloader.Loader's Load method already matches evalrt.Loader's
		// signature exactly, so it satisfies the interface directly.
		rt := evalrt.New(loader)

		result, err := rt.Evaluate(p.Context, f.Resolver, bctx.AsDynamicValue(), nil)
		if err != nil {
			b.logger.Debug("field resolution failed",
				zap.String("field", f.Name),
				zap.String("correlationId", rc.CorrelationID),
				zap.Error(err),
			)
			return nil, err
		}

		// Object-shaped fields hand the raw *dynamicvalue.Value (or a slice
		// of them) down to child resolvers as their own p.Source; scalar,
		// array-of-scalar, and json-scalar fields must come back as native
		// Go values so graphql-go's built-in coercion can serialize them.
		if f.OutputType != "" {
			if f.OutputList {
				seq, _ := result.AsSequence()
				out := make([]interface{}, len(seq))
				for i, e := range seq {
					out[i] = e
				}
				return out, nil
			}
			return result, nil
		}

		return toNative(result)
	}
}

func argsToDynamicValue(args map[string]interface{}) (*dynamicvalue.Value, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return dynamicvalue.FromJSON(raw)
}

// toNative converts a leaf DynamicValue result into the plain Go value
// graphql-go's scalar Serialize functions expect, round-tripping through
// JSON rather than hand-walking every Kind since DynamicValue's own JSON
// codec already defines the canonical scalar/array/mapping shape.
func toNative(v *dynamicvalue.Value) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	raw, err := dynamicvalue.ToJSON(v)
	if err != nil {
		return nil, err
	}
	var native interface{}
	if err := json.Unmarshal(raw, &native); err != nil {
		return nil, err
	}
	return native, nil
}
