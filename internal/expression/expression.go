// Package expression implements Expression, the tagged-variant IR used to
// encode field resolvers (spec.md §3). Reimplemented as a single tagged
// union plus a pure interpreter (internal/evalrt) rather than the source's
// deep per-case object hierarchy, per spec.md §9's design note.
package expression

import (
	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// Tag discriminates the Expression variant.
type Tag int

const (
	TagLiteral Tag = iota
	TagIdentity
	TagPipe
	TagFunctionDef
	TagLookup
	TagEqualTo
	TagMath
	TagLogical
	TagOpt
	TagDict
	TagDynamic
	TagUnsafe
)

// MathOp enumerates Expression.Math operators.
type MathOp int

const (
	MathAdd MathOp = iota
	MathSub
	MathMul
	MathDiv
	MathMod
	MathGt
	MathGte
	MathNeg
)

// LogicalOp enumerates Expression.Logical operators.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNot
	LogicalIfThenElse
)

// OptOp enumerates Expression.Opt operators.
type OptOp int

const (
	OptIsSome OptOp = iota
	OptIsNone
	OptFold
	OptApply
	OptWrap
)

// DictOp enumerates Expression.Dict operators.
type DictOp int

const (
	DictGet DictOp = iota
	DictPut
	DictToPair
)

// DynamicOp enumerates Expression.Dynamic operators.
type DynamicOp int

const (
	DynamicToTyped DynamicOp = iota
	DynamicToDynamic
	DynamicPath
	DynamicJSONTransform
)

// UnsafeOp enumerates Expression.Unsafe operators.
type UnsafeOp int

const (
	UnsafeEndpointCall UnsafeOp = iota
	UnsafeDebug
	UnsafeDie
)

// Binding identifies a lexical binding introduced by FunctionDef, assigned
// fresh at compile time (spec.md §3, §9).
type Binding int

// Expr is the Expression value. Exactly the fields relevant to Tag are
// populated; this mirrors a Rust/Scala sum type without resorting to an
// interface-per-case hierarchy.
type Expr struct {
	Tag Tag

	// TagLiteral
	Literal       *dynamicvalue.Value
	LiteralSchema *tschema.Schema

	// TagPipe
	PipeA, PipeB *Expr

	// TagFunctionDef
	FuncBinding Binding
	FuncBody    *Expr

	// TagLookup
	LookupBinding Binding

	// TagEqualTo
	EqL, EqR *Expr

	// TagMath
	MathOp    MathOp
	MathL     *Expr
	MathR     *Expr // nil for MathNeg (unary)

	// TagLogical
	LogicalOp  LogicalOp
	LogicalA   *Expr
	LogicalB   *Expr // nil for Not
	IfCond     *Expr
	IfThen     *Expr
	IfElse     *Expr

	// TagOpt
	OptOp  OptOp
	OptVal *Expr
	// Fold: OptVal is the option; OptNone is evaluated when None, OptSome
	// (a FunctionDef-like single-arg expr) when Some.
	OptNone *Expr
	OptSome *Expr
	// Apply: OptVal is option-of-function-input, OptFn the function expr.
	OptFn *Expr

	// TagDict
	DictOp  DictOp
	DictMap *Expr
	DictKey *Expr
	DictVal *Expr // DictPut only

	// TagDynamic
	DynamicOp     DynamicOp
	DynamicSchema *tschema.Schema
	DynamicPath   dynamicvalue.Path
	DynamicJQ     string
	DynamicInput  *Expr

	// TagUnsafe
	UnsafeOp       UnsafeOp
	UnsafeEndpoint *endpoint.Endpoint
	UnsafeInput    *Expr
	UnsafeMessage  string
}

func Literal(v *dynamicvalue.Value, schema *tschema.Schema) *Expr {
	return &Expr{Tag: TagLiteral, Literal: v, LiteralSchema: schema}
}

func Identity() *Expr { return &Expr{Tag: TagIdentity} }

func Pipe(a, b *Expr) *Expr { return &Expr{Tag: TagPipe, PipeA: a, PipeB: b} }

func FunctionDef(binding Binding, body *Expr) *Expr {
	return &Expr{Tag: TagFunctionDef, FuncBinding: binding, FuncBody: body}
}

func Lookup(binding Binding) *Expr { return &Expr{Tag: TagLookup, LookupBinding: binding} }

func EqualTo(l, r *Expr) *Expr { return &Expr{Tag: TagEqualTo, EqL: l, EqR: r} }

func Math(op MathOp, l, r *Expr) *Expr {
	return &Expr{Tag: TagMath, MathOp: op, MathL: l, MathR: r}
}

func Logical(op LogicalOp, a, b *Expr) *Expr {
	return &Expr{Tag: TagLogical, LogicalOp: op, LogicalA: a, LogicalB: b}
}

func IfThenElse(cond, then, els *Expr) *Expr {
	return &Expr{Tag: TagLogical, LogicalOp: LogicalIfThenElse, IfCond: cond, IfThen: then, IfElse: els}
}

func OptIsSomeExpr(v *Expr) *Expr { return &Expr{Tag: TagOpt, OptOp: OptIsSome, OptVal: v} }
func OptIsNoneExpr(v *Expr) *Expr { return &Expr{Tag: TagOpt, OptOp: OptIsNone, OptVal: v} }
func OptWrapExpr(v *Expr) *Expr   { return &Expr{Tag: TagOpt, OptOp: OptWrap, OptVal: v} }

func OptFoldExpr(v, none, some *Expr) *Expr {
	return &Expr{Tag: TagOpt, OptOp: OptFold, OptVal: v, OptNone: none, OptSome: some}
}

func OptApplyExpr(v, fn *Expr) *Expr {
	return &Expr{Tag: TagOpt, OptOp: OptApply, OptVal: v, OptFn: fn}
}

func DictGetExpr(m, key *Expr) *Expr {
	return &Expr{Tag: TagDict, DictOp: DictGet, DictMap: m, DictKey: key}
}

func DictPutExpr(m, key, val *Expr) *Expr {
	return &Expr{Tag: TagDict, DictOp: DictPut, DictMap: m, DictKey: key, DictVal: val}
}

func DictToPairExpr(m *Expr) *Expr {
	return &Expr{Tag: TagDict, DictOp: DictToPair, DictMap: m}
}

func ToTyped(schema *tschema.Schema, input *Expr) *Expr {
	return &Expr{Tag: TagDynamic, DynamicOp: DynamicToTyped, DynamicSchema: schema, DynamicInput: input}
}

func ToDynamic(schema *tschema.Schema, input *Expr) *Expr {
	return &Expr{Tag: TagDynamic, DynamicOp: DynamicToDynamic, DynamicSchema: schema, DynamicInput: input}
}

func PathExpr(path dynamicvalue.Path, input *Expr) *Expr {
	return &Expr{Tag: TagDynamic, DynamicOp: DynamicPath, DynamicPath: path, DynamicInput: input}
}

func JSONTransform(jq string, input *Expr) *Expr {
	return &Expr{Tag: TagDynamic, DynamicOp: DynamicJSONTransform, DynamicJQ: jq, DynamicInput: input}
}

func EndpointCall(ep *endpoint.Endpoint, input *Expr) *Expr {
	return &Expr{Tag: TagUnsafe, UnsafeOp: UnsafeEndpointCall, UnsafeEndpoint: ep, UnsafeInput: input}
}

func Debug(prefix string, input *Expr) *Expr {
	return &Expr{Tag: TagUnsafe, UnsafeOp: UnsafeDebug, UnsafeMessage: prefix, UnsafeInput: input}
}

func Die(msg string) *Expr {
	return &Expr{Tag: TagUnsafe, UnsafeOp: UnsafeDie, UnsafeMessage: msg}
}
