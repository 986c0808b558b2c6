// Package evalrt implements EvaluationRuntime, the interpreter for
// internal/expression's Expr tree (spec.md §4.2). It is a pure tree-walking
// evaluator in the style of the teacher's pkg/query/executor.go dispatch
// switch, generalized from that executor's fixed query-plan shape to the
// fully general Expression IR.
package evalrt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/expression"
	"github.com/tailcall-go/tailcall/internal/gqlerr"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

// Loader defers Unsafe.endpointCall execution to the data-loader layer so
// this package never imports internal/dataloader directly; dataloader.Loader
// satisfies this interface without importing evalrt.
type Loader interface {
	Load(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error)
}

// Bindings is the immutable lexical environment FunctionDef installs into:
// Pipe(FunctionDef(b, body), rest) binds b to the upstream value for the
// scope of body's evaluation only, then the binding drops back out —
// implemented here as persistent-map "add a layer, never mutate the
// parent" rather than the push/pop stack the source's interpreter uses,
// since Go closures over maps are easy to alias by accident.
type Bindings struct {
	parent *Bindings
	id     expression.Binding
	value  *dynamicvalue.Value
}

// With returns a new Bindings with id bound to v, shadowing any outer
// binding of the same id.
func (b *Bindings) With(id expression.Binding, v *dynamicvalue.Value) *Bindings {
	return &Bindings{parent: b, id: id, value: v}
}

func (b *Bindings) lookup(id expression.Binding) (*dynamicvalue.Value, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if cur.id == id {
			return cur.value, true
		}
	}
	return nil, false
}

// Runtime evaluates Expr trees against a root input value.
type Runtime struct {
	loader Loader
}

func New(loader Loader) *Runtime {
	return &Runtime{loader: loader}
}

// Evaluate is the single entry point from spec.md §4.2:
// evaluate(expr, bindings) -> value, threading the root input in as the
// Identity binding's current value.
func (rt *Runtime) Evaluate(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	switch expr.Tag {
	case expression.TagLiteral:
		if expr.LiteralSchema != nil && !tschema.Matches(expr.LiteralSchema, expr.Literal) {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "literal value does not match declared schema %s", expr.LiteralSchema)
		}
		return expr.Literal, nil

	case expression.TagIdentity:
		return input, nil

	case expression.TagPipe:
		mid, err := rt.Evaluate(ctx, expr.PipeA, input, bindings)
		if err != nil {
			return nil, err
		}
		return rt.Evaluate(ctx, expr.PipeB, mid, bindings)

	case expression.TagFunctionDef:
		// Install: the value currently flowing through (input) becomes the
		// binding's value for the extent of FuncBody's evaluation, and drops
		// on both the success and failure path since Bindings is never
		// mutated in place.
		inner := bindings.With(expr.FuncBinding, input)
		return rt.Evaluate(ctx, expr.FuncBody, input, inner)

	case expression.TagLookup:
		v, ok := bindings.lookup(expr.LookupBinding)
		if !ok {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "unbound lookup for binding %d", expr.LookupBinding)
		}
		return v, nil

	case expression.TagEqualTo:
		l, err := rt.Evaluate(ctx, expr.EqL, input, bindings)
		if err != nil {
			return nil, err
		}
		r, err := rt.Evaluate(ctx, expr.EqR, input, bindings)
		if err != nil {
			return nil, err
		}
		return dynamicvalue.Bool(dynamicvalue.Equal(l, r)), nil

	case expression.TagMath:
		return rt.evalMath(ctx, expr, input, bindings)

	case expression.TagLogical:
		return rt.evalLogical(ctx, expr, input, bindings)

	case expression.TagOpt:
		return rt.evalOpt(ctx, expr, input, bindings)

	case expression.TagDict:
		return rt.evalDict(ctx, expr, input, bindings)

	case expression.TagDynamic:
		return rt.evalDynamic(ctx, expr, input, bindings)

	case expression.TagUnsafe:
		return rt.evalUnsafe(ctx, expr, input, bindings)

	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown expression tag %d", expr.Tag)
	}
}

func (rt *Runtime) evalMath(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	l, err := rt.Evaluate(ctx, expr.MathL, input, bindings)
	if err != nil {
		return nil, err
	}
	lf, ok := l.AsFloat()
	if !ok {
		return nil, gqlerr.New(gqlerr.KindEvaluation, "math: left operand is not numeric")
	}

	if expr.MathOp == expression.MathNeg {
		return numericResult(l, -lf), nil
	}

	r, err := rt.Evaluate(ctx, expr.MathR, input, bindings)
	if err != nil {
		return nil, err
	}
	rf, ok := r.AsFloat()
	if !ok {
		return nil, gqlerr.New(gqlerr.KindEvaluation, "math: right operand is not numeric")
	}

	switch expr.MathOp {
	case expression.MathAdd:
		return numericResult2(l, r, lf+rf), nil
	case expression.MathSub:
		return numericResult2(l, r, lf-rf), nil
	case expression.MathMul:
		return numericResult2(l, r, lf*rf), nil
	case expression.MathDiv:
		if rf == 0 {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "division by zero")
		}
		return dynamicvalue.Float(lf / rf), nil
	case expression.MathMod:
		if rf == 0 {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "modulo by zero")
		}
		li, lok := l.AsInt()
		ri, rok := r.AsInt()
		if lok && rok {
			return dynamicvalue.Int(li % ri), nil
		}
		return nil, gqlerr.New(gqlerr.KindEvaluation, "modulo requires integer operands")
	case expression.MathGt:
		return dynamicvalue.Bool(lf > rf), nil
	case expression.MathGte:
		return dynamicvalue.Bool(lf >= rf), nil
	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown math operator %d", expr.MathOp)
	}
}

// numericResult preserves int-ness when the operand was an int, matching
// spec.md §4.2's "Math over two ints yields an int" rule.
func numericResult(operand *dynamicvalue.Value, f float64) *dynamicvalue.Value {
	if _, ok := operand.AsInt(); ok {
		return dynamicvalue.Int(int64(f))
	}
	return dynamicvalue.Float(f)
}

func numericResult2(l, r *dynamicvalue.Value, f float64) *dynamicvalue.Value {
	_, lInt := l.AsInt()
	_, rInt := r.AsInt()
	if lInt && rInt {
		return dynamicvalue.Int(int64(f))
	}
	return dynamicvalue.Float(f)
}

func (rt *Runtime) evalLogical(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	switch expr.LogicalOp {
	case expression.LogicalNot:
		a, err := rt.evalBool(ctx, expr.LogicalA, input, bindings)
		if err != nil {
			return nil, err
		}
		return dynamicvalue.Bool(!a), nil

	case expression.LogicalAnd:
		a, err := rt.evalBool(ctx, expr.LogicalA, input, bindings)
		if err != nil {
			return nil, err
		}
		if !a {
			return dynamicvalue.Bool(false), nil
		}
		b, err := rt.evalBool(ctx, expr.LogicalB, input, bindings)
		if err != nil {
			return nil, err
		}
		return dynamicvalue.Bool(b), nil

	case expression.LogicalOr:
		a, err := rt.evalBool(ctx, expr.LogicalA, input, bindings)
		if err != nil {
			return nil, err
		}
		if a {
			return dynamicvalue.Bool(true), nil
		}
		b, err := rt.evalBool(ctx, expr.LogicalB, input, bindings)
		if err != nil {
			return nil, err
		}
		return dynamicvalue.Bool(b), nil

	case expression.LogicalIfThenElse:
		cond, err := rt.evalBool(ctx, expr.IfCond, input, bindings)
		if err != nil {
			return nil, err
		}
		if cond {
			return rt.Evaluate(ctx, expr.IfThen, input, bindings)
		}
		return rt.Evaluate(ctx, expr.IfElse, input, bindings)

	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown logical operator %d", expr.LogicalOp)
	}
}

func (rt *Runtime) evalBool(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (bool, error) {
	v, err := rt.Evaluate(ctx, expr, input, bindings)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, gqlerr.New(gqlerr.KindEvaluation, "condition did not evaluate to a boolean")
	}
	return b, nil
}

func (rt *Runtime) evalOpt(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	v, err := rt.Evaluate(ctx, expr.OptVal, input, bindings)
	if err != nil {
		return nil, err
	}

	switch expr.OptOp {
	case expression.OptIsSome:
		return dynamicvalue.Bool(!v.IsNull()), nil
	case expression.OptIsNone:
		return dynamicvalue.Bool(v.IsNull()), nil
	case expression.OptWrap:
		return v, nil
	case expression.OptFold:
		if v.IsNull() {
			return rt.Evaluate(ctx, expr.OptNone, input, bindings)
		}
		return rt.Evaluate(ctx, expr.OptSome, v, bindings)
	case expression.OptApply:
		if v.IsNull() {
			return dynamicvalue.Null(), nil
		}
		return rt.Evaluate(ctx, expr.OptFn, v, bindings)
	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown opt operator %d", expr.OptOp)
	}
}

func (rt *Runtime) evalDict(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	m, err := rt.Evaluate(ctx, expr.DictMap, input, bindings)
	if err != nil {
		return nil, err
	}
	om, ok := m.AsMapping()
	if !ok {
		return nil, gqlerr.New(gqlerr.KindEvaluation, "dict operator applied to a non-mapping value")
	}

	switch expr.DictOp {
	case expression.DictGet:
		key, err := rt.Evaluate(ctx, expr.DictKey, input, bindings)
		if err != nil {
			return nil, err
		}
		ks, ok := key.AsString()
		if !ok {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "dict key must be a string")
		}
		v, present := om.Get(ks)
		if !present {
			return dynamicvalue.Null(), nil
		}
		return v, nil

	case expression.DictPut:
		key, err := rt.Evaluate(ctx, expr.DictKey, input, bindings)
		if err != nil {
			return nil, err
		}
		ks, ok := key.AsString()
		if !ok {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "dict key must be a string")
		}
		val, err := rt.Evaluate(ctx, expr.DictVal, input, bindings)
		if err != nil {
			return nil, err
		}
		out := dynamicvalue.NewMapping()
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
		out.Set(ks, val)
		return out, nil

	case expression.DictToPair:
		var pairs []*dynamicvalue.Value
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			entry := dynamicvalue.NewMapping()
			entry.Set("key", dynamicvalue.String(pair.Key))
			entry.Set("value", pair.Value)
			pairs = append(pairs, entry)
		}
		return dynamicvalue.Sequence(pairs), nil

	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown dict operator %d", expr.DictOp)
	}
}

func (rt *Runtime) evalDynamic(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	v, err := rt.Evaluate(ctx, expr.DynamicInput, input, bindings)
	if err != nil {
		return nil, err
	}

	switch expr.DynamicOp {
	case expression.DynamicToTyped:
		// toTyped never errors: a structural mismatch yields None, not a
		// failure, per spec.md §4.2.
		if tschema.Matches(expr.DynamicSchema, v) {
			return v, nil
		}
		return dynamicvalue.Null(), nil

	case expression.DynamicToDynamic:
		return v, nil

	case expression.DynamicPath:
		projected, ok := dynamicvalue.Walk(v, expr.DynamicPath)
		if !ok {
			return dynamicvalue.Null(), nil
		}
		return projected, nil

	case expression.DynamicJSONTransform:
		return evalJQ(expr.DynamicJQ, v)

	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown dynamic operator %d", expr.DynamicOp)
	}
}

// evalJQ runs a compiled jq program against v, using itchyny/gojq the way
// config-driven jq transforms are run elsewhere in the pack: parse once,
// cache by source text would belong to the config-compile layer — this
// runtime re-parses per call since programs here are already short-lived
// Expr leaves rather than hot-path literals.
func evalJQ(src string, v *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	query, err := gojq.Parse(src)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "parse jq transform %q", src)
	}

	raw, err := dynamicvalue.ToJSON(v)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "encode value for jq transform")
	}
	var native interface{}
	if err := json.Unmarshal(raw, &native); err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "decode value for jq transform")
	}

	iter := query.Run(native)
	result, ok := iter.Next()
	if !ok {
		return dynamicvalue.Null(), nil
	}
	if err, isErr := result.(error); isErr {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "run jq transform %q", src)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, gqlerr.Wrap(gqlerr.KindEvaluation, err, "encode jq transform result")
	}
	return dynamicvalue.FromJSON(out)
}

func (rt *Runtime) evalUnsafe(ctx context.Context, expr *expression.Expr, input *dynamicvalue.Value, bindings *Bindings) (*dynamicvalue.Value, error) {
	switch expr.UnsafeOp {
	case expression.UnsafeEndpointCall:
		if rt.loader == nil {
			return nil, gqlerr.New(gqlerr.KindEvaluation, "endpointCall reached but no loader is wired")
		}
		arg, err := rt.Evaluate(ctx, expr.UnsafeInput, input, bindings)
		if err != nil {
			return nil, err
		}
		v, err := rt.loader.Load(ctx, expr.UnsafeEndpoint, arg)
		if err != nil {
			return nil, gqlerr.Wrap(gqlerr.KindUpstream, err, "endpoint call failed")
		}
		return v, nil

	case expression.UnsafeDebug:
		arg, err := rt.Evaluate(ctx, expr.UnsafeInput, input, bindings)
		if err != nil {
			return nil, err
		}
		fmt.Printf("%s: %s\n", expr.UnsafeMessage, dynamicvalue.Stringify(arg))
		return arg, nil

	case expression.UnsafeDie:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "die: %s", expr.UnsafeMessage)

	default:
		return nil, gqlerr.New(gqlerr.KindEvaluation, "unknown unsafe operator %d", expr.UnsafeOp)
	}
}
