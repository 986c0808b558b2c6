// Package blueprint implements Blueprint, the compiled artifact a Config
// reduces to (spec.md §4): a closed, self-contained schema whose every
// field resolver is a fully-built Expression tree, addressable by content
// digest for the registry/publish workflow.
package blueprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/expression"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// Context is the per-field evaluation environment GraphQL execution builds
// for each resolver invocation (spec.md §4).
type Context struct {
	Value   *dynamicvalue.Value
	Args    *dynamicvalue.Value
	Parent  *dynamicvalue.Value
	Headers map[string]string
	Vars    map[string]string
}

// AsDynamicValue projects c into the single mapping Value every resolver
// Expression is evaluated against: {value, args, parent, headers, vars}.
// Field paths like "args.id" or "value.name" used by @http/@graphQL mustache
// templates and by plain passthrough fields address into this shape.
func (c *Context) AsDynamicValue() *dynamicvalue.Value {
	out := dynamicvalue.NewMapping()
	out.Set("value", orNull(c.Value))
	out.Set("args", orNull(c.Args))
	out.Set("parent", orNull(c.Parent))

	headers := dynamicvalue.NewMapping()
	for k, v := range c.Headers {
		headers.Set(k, dynamicvalue.String(v))
	}
	out.Set("headers", headers)

	vars := dynamicvalue.NewMapping()
	for k, v := range c.Vars {
		vars.Set(k, dynamicvalue.String(v))
	}
	out.Set("vars", vars)

	return out
}

func orNull(v *dynamicvalue.Value) *dynamicvalue.Value {
	if v == nil {
		return dynamicvalue.Null()
	}
	return v
}

// Arg is one declared argument of a Field: its structural type and an
// optional default, substituted in when the caller omits it.
type Arg struct {
	Name    string
	Schema  *tschema.Schema
	Default *dynamicvalue.Value // nil means required, no default
}

// Field is one resolvable member of an ObjectType.
type Field struct {
	Name   string
	Output *tschema.Schema
	// OutputType names the object type Output structurally corresponds to,
	// when Output is an object or array(object) — gqlfacade uses this to
	// point a field at another ObjectType's GraphQL type; stepgen does not
	// read it. Empty for scalar/leaf fields.
	OutputType string
	OutputList bool
	Args       []Arg
	Resolver   *expression.Expr
	// BatchHint, if non-nil, mirrors the endpoint.BatchConfig compiled into
	// Resolver's Unsafe.endpointCall. It is informational: batching itself
	// is driven by the Endpoint's own Batch config, and no package reads
	// BatchHint.
	BatchHint *BatchHint
	// CacheMaxAge, if non-nil, records the field's @cache(maxAge:) value.
	// No package reads it; HTTP cache TTLs come from upstream response
	// headers only.
	CacheMaxAge *int
	Protected   bool
	// PublicName, if non-empty, is the key this field is served under
	// (@modify(name:)); Name remains its identity within Fields and in log
	// lines, so a rename never disturbs anything but the public schema.
	PublicName string
	// Omit marks a field compiled but not exposed in the served schema
	// (@modify(omit:true)) — still addressable by @call, never by a client.
	Omit bool
}

// BatchHint surfaces an endpoint's batch annotation at the field level.
type BatchHint struct {
	GroupBy  []string
	BatchKey []string
}

// ObjectType is a named, ordered set of Fields.
type ObjectType struct {
	Name        string
	Fields      []Field
	Description string
}

// InputType is a named, ordered set of input arguments sharing InputType's
// own structural schema (spec.md §3 treats inputs as plain TSchema objects).
type InputType struct {
	Name   string
	Schema *tschema.Schema
}

// Blueprint is the compiled schema: a type table plus the query/mutation
// root names, closed over every Expression its fields reference.
type Blueprint struct {
	Query    string
	Mutation string // "" if the schema declares no mutation root
	Types    map[string]*ObjectType
	Inputs   map[string]*InputType
}

// New returns an empty Blueprint with Types/Inputs ready to populate. The
// caller is expected to add ObjectTypes in two passes when the schema is
// recursive: first Register every type by name with empty Fields, then
// backfill Fields once every named type the schema references exists in
// the table (spec.md §4's "the type table is fully populated before any
// field is wired" invariant) — this mirrors how the teacher's federation
// registry resolves forward references across services before serving
// any query.
func New(query, mutation string) *Blueprint {
	return &Blueprint{Query: query, Mutation: mutation, Types: map[string]*ObjectType{}, Inputs: map[string]*InputType{}}
}

// Register declares typeName with an empty field list, establishing a slot
// later passes can point ObjectType/list-of/optional-of references at even
// before its own fields are known — the first half of the two-pass
// population.
func (b *Blueprint) Register(typeName, description string) {
	if _, exists := b.Types[typeName]; exists {
		return
	}
	b.Types[typeName] = &ObjectType{Name: typeName, Description: description}
}

// SetFields backfills typeName's field list once every type it can
// possibly reference has been Register'd — the second half of the
// two-pass population.
func (b *Blueprint) SetFields(typeName string, fields []Field) {
	t, ok := b.Types[typeName]
	if !ok {
		t = &ObjectType{Name: typeName}
		b.Types[typeName] = t
	}
	t.Fields = fields
}

// RegisterInput adds a named input type.
func (b *Blueprint) RegisterInput(name string, schema *tschema.Schema) {
	b.Inputs[name] = &InputType{Name: name, Schema: schema}
}

// digestDoc is the canonical, order-stable projection of a Blueprint used
// to compute Digest. It holds the root type names, each type's field names
// and output schemas, and each input type's schema; field resolvers are not
// part of it, so two Blueprints that differ only in their resolvers share a
// digest.
type digestDoc struct {
	Query    string              `json:"query"`
	Mutation string              `json:"mutation"`
	Types    []digestType        `json:"types"`
	Inputs   []digestInput       `json:"inputs"`
}

type digestType struct {
	Name   string        `json:"name"`
	Fields []digestField `json:"fields"`
}

type digestField struct {
	Name   string `json:"name"`
	Output string `json:"output"`
}

type digestInput struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// Digest returns the content-addressed identity of b: a sha256 hex digest
// of its canonical JSON projection, stable across re-serialization order
// because the projection sorts types by name before hashing (spec.md §4's
// registry addresses blueprints by digest, not by name+version).
func (b *Blueprint) Digest() (string, error) {
	doc := digestDoc{Query: b.Query, Mutation: b.Mutation}

	names := make([]string, 0, len(b.Types))
	for name := range b.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := b.Types[name]
		dt := digestType{Name: name}
		for _, f := range t.Fields {
			dt.Fields = append(dt.Fields, digestField{Name: f.Name, Output: f.Output.String()})
		}
		doc.Types = append(doc.Types, dt)
	}

	inputNames := make([]string, 0, len(b.Inputs))
	for name := range b.Inputs {
		inputNames = append(inputNames, name)
	}
	sort.Strings(inputNames)
	for _, name := range inputNames {
		in := b.Inputs[name]
		doc.Inputs = append(doc.Inputs, digestInput{Name: name, Schema: in.Schema.String()})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
