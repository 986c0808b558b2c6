// Package config implements Config, the author-facing representation
// compiled into a Blueprint (spec.md §6): the directive set (@server,
// @upstream, @http, @graphQL, @grpc, @const, @expr, @modify, @addField,
// @call, @cache, @protected, @link) decoded from either a JSON document or a
// YAML document. There is no GraphQL SDL decoder.
package config

// Server carries the @server directive's fields: process-level settings
// that apply to the whole Blueprint rather than to any one type or field.
type Server struct {
	Port            int               `json:"port" yaml:"port"`
	Vars            map[string]string `json:"vars" yaml:"vars"`
	AllowedHeaders  []string          `json:"allowedHeaders" yaml:"allowedHeaders"`
	QueryMaxDepth   int               `json:"queryMaxDepth" yaml:"queryMaxDepth"`
	ResponseHeaders map[string]string `json:"responseHeaders" yaml:"responseHeaders"`
}

// Upstream carries the @upstream directive's fields: shared connection
// defaults every @http/@graphQL/@grpc field inherits unless it overrides
// them.
type Upstream struct {
	BaseURL        string   `json:"baseURL" yaml:"baseURL"`
	ConnectTimeout int      `json:"connectTimeoutMs" yaml:"connectTimeoutMs"`
	PoolSize       int      `json:"poolSize" yaml:"poolSize"`
	AllowedHeaders []string `json:"allowedHeaders" yaml:"allowedHeaders"`
}

// Link carries one @link directive: a reference to another published
// Blueprint. Links are decoded with the rest of the document; Compile does
// not read them, so nothing from a linked Blueprint reaches the type table.
type Link struct {
	Digest string `json:"digest" yaml:"digest"`
	Type   string `json:"type" yaml:"type"` // "config" or "blueprint"
	Src    string `json:"src" yaml:"src"`
}

// ArgDef declares one field argument: its structural type name and an
// optional default value, used verbatim by the compile layer to build a
// blueprint.Arg.
type ArgDef struct {
	Type    string      `json:"type" yaml:"type"`
	Default interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// FieldDef is one field of a TypeDef, carrying whichever resolver
// directive the author attached to it. Exactly one of Const/Expr/Http/
// GraphQL/GRPC/Call is expected to be set; a field with none of them is a
// plain structural field with no custom resolver (its value flows through
// unchanged from the parent object).
type FieldDef struct {
	Type      string            `json:"type" yaml:"type"`
	Args      map[string]ArgDef `json:"args,omitempty" yaml:"args,omitempty"`
	Protected bool              `json:"protected,omitempty" yaml:"protected,omitempty"`

	Const   interface{} `json:"const,omitempty" yaml:"const,omitempty"`
	Expr    string      `json:"expr,omitempty" yaml:"expr,omitempty"` // jq transform source
	Http    *HTTPDef    `json:"http,omitempty" yaml:"http,omitempty"`
	GraphQL *GraphQLDef `json:"graphQL,omitempty" yaml:"graphQL,omitempty"`
	GRPC    *GRPCDef    `json:"grpc,omitempty" yaml:"grpc,omitempty"`
	Call    *CallDef    `json:"call,omitempty" yaml:"call,omitempty"`

	Cache *CacheDef `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// HTTPDef is the @http directive.
type HTTPDef struct {
	BaseURL string            `json:"baseURL,omitempty" yaml:"baseURL,omitempty"` // overrides @upstream's baseURL
	Path    string            `json:"path" yaml:"path"`
	Method  string            `json:"method" yaml:"method"`
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"` // mustache path, e.g. "{{value}}"
	GroupBy []string          `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	// BatchKey names the path into each element of a batched upstream's
	// array response that identifies which logical caller it answers;
	// defaults to GroupBy itself when omitted, the common case where the
	// upstream echoes the same key back unchanged (spec.md §4.3(b)).
	BatchKey []string `json:"batchKey,omitempty" yaml:"batchKey,omitempty"`
	// Select projects this field's resolved value through a path before it
	// reaches the caller, e.g. "{{.company}}" hoists a nested company
	// object up to the field's own value (spec.md §4.6's seed scenario 1).
	Select string `json:"select,omitempty" yaml:"select,omitempty"`
}

// GraphQLDef is the @graphQL directive.
type GraphQLDef struct {
	Query     string `json:"query" yaml:"query"`
	Name      string `json:"name" yaml:"name"`
	Batch     bool   `json:"batch,omitempty" yaml:"batch,omitempty"`
	BaseURL   string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
}

// GRPCDef is the @grpc directive.
type GRPCDef struct {
	Service string `json:"service" yaml:"service"`
	Method  string `json:"method" yaml:"method"`
	ProtoID string `json:"protoId" yaml:"protoId"`
}

// CallDef is the @call directive: invoke another field in this same
// Blueprint as this field's resolver, passing the named arguments through.
type CallDef struct {
	Type  string                 `json:"type" yaml:"type"`
	Field string                 `json:"field" yaml:"field"`
	Args  map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// CacheDef is the @cache directive.
type CacheDef struct {
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// ModifyDef is the @modify directive.
type ModifyDef struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Omit bool   `json:"omit,omitempty" yaml:"omit,omitempty"`
}

// InlineDef is one @inline directive instance: project Field's resolved
// value through Path before it reaches the caller (spec.md §4.6), the same
// mechanism @http(select:) gives a single field inline without naming it
// separately in the type's directive table.
type InlineDef struct {
	Field string   `json:"field" yaml:"field"`
	Path  []string `json:"path" yaml:"path"`
}

// AddFieldDef is the @addField directive: adds a brand-new field named Name
// to the type, resolving to the value found by projecting Path out of the
// parent object (spec.md §6). Type defaults to "String" when omitted, since
// the directive carries only a name and a path.
type AddFieldDef struct {
	Name string   `json:"name" yaml:"name"`
	Path []string `json:"path" yaml:"path"`
	Type string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// TypeDef is one object type in the config's type table.
type TypeDef struct {
	Fields   map[string]*FieldDef `json:"fields" yaml:"fields"`
	Modify   map[string]ModifyDef `json:"modify,omitempty" yaml:"modify,omitempty"`
	Inline   []InlineDef          `json:"inline,omitempty" yaml:"inline,omitempty"`
	AddField []AddFieldDef        `json:"addField,omitempty" yaml:"addField,omitempty"`
}

// Config is the whole author-facing document.
type Config struct {
	Server   Server              `json:"server" yaml:"server"`
	Upstream Upstream            `json:"upstream" yaml:"upstream"`
	Links    []Link              `json:"links,omitempty" yaml:"links,omitempty"`
	Query    string              `json:"query" yaml:"query"`
	Mutation string              `json:"mutation,omitempty" yaml:"mutation,omitempty"`
	Types    map[string]*TypeDef `json:"types" yaml:"types"`
}
