package evalrt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
	"github.com/tailcall-go/tailcall/internal/endpoint"
	"github.com/tailcall-go/tailcall/internal/expression"
	"github.com/tailcall-go/tailcall/internal/tschema"
)

func wantIntSchema() *tschema.Schema { return tschema.Int() }

func TestPipeSequencesEvaluation(t *testing.T) {
	rt := New(nil)
	input, _ := dynamicvalue.FromJSON([]byte(`{"a":{"b":5}}`))

	expr := expression.Pipe(
		expression.PathExpr(dynamicvalue.Path{"a"}, expression.Identity()),
		expression.PathExpr(dynamicvalue.Path{"b"}, expression.Identity()),
	)

	out, err := rt.Evaluate(context.Background(), expr, input, nil)
	require.NoError(t, err)
	n, ok := out.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(5), n)
}

func TestFunctionDefBindsAndDrops(t *testing.T) {
	rt := New(nil)
	binding := expression.Binding(1)
	input := dynamicvalue.Int(7)

	expr := expression.FunctionDef(binding, expression.Lookup(binding))

	out, err := rt.Evaluate(context.Background(), expr, input, nil)
	require.NoError(t, err)
	n, _ := out.AsInt()
	require.Equal(t, int64(7), n)

	_, err = rt.Evaluate(context.Background(), expression.Lookup(binding), input, nil)
	require.Error(t, err, "binding must not leak outside its FunctionDef scope")
}

func TestMathDivideByZeroFails(t *testing.T) {
	rt := New(nil)
	expr := expression.Math(expression.MathDiv,
		expression.Literal(dynamicvalue.Int(1), nil),
		expression.Literal(dynamicvalue.Int(0), nil),
	)
	_, err := rt.Evaluate(context.Background(), expr, dynamicvalue.Null(), nil)
	require.Error(t, err)
}

func TestLogicalIfThenElse(t *testing.T) {
	rt := New(nil)
	expr := expression.IfThenElse(
		expression.Literal(dynamicvalue.Bool(true), nil),
		expression.Literal(dynamicvalue.String("yes"), nil),
		expression.Literal(dynamicvalue.String("no"), nil),
	)
	out, err := rt.Evaluate(context.Background(), expr, dynamicvalue.Null(), nil)
	require.NoError(t, err)
	s, _ := out.AsString()
	require.Equal(t, "yes", s)
}

func TestLogicalNonBooleanConditionFails(t *testing.T) {
	rt := New(nil)
	expr := expression.IfThenElse(
		expression.Literal(dynamicvalue.Int(1), nil),
		expression.Identity(),
		expression.Identity(),
	)
	_, err := rt.Evaluate(context.Background(), expr, dynamicvalue.Null(), nil)
	require.Error(t, err)
}

func TestOptFoldOverNoneAndSome(t *testing.T) {
	rt := New(nil)
	expr := expression.OptFoldExpr(
		expression.Identity(),
		expression.Literal(dynamicvalue.String("none"), nil),
		expression.Literal(dynamicvalue.String("some"), nil),
	)

	out, err := rt.Evaluate(context.Background(), expr, dynamicvalue.Null(), nil)
	require.NoError(t, err)
	s, _ := out.AsString()
	require.Equal(t, "none", s)

	out, err = rt.Evaluate(context.Background(), expr, dynamicvalue.Int(1), nil)
	require.NoError(t, err)
	s, _ = out.AsString()
	require.Equal(t, "some", s)
}

func TestDieProducesEvaluationError(t *testing.T) {
	rt := New(nil)
	_, err := rt.Evaluate(context.Background(), expression.Die("unreachable"), dynamicvalue.Null(), nil)
	require.Error(t, err)
}

func TestDictGetPutToPair(t *testing.T) {
	rt := New(nil)
	input, _ := dynamicvalue.FromJSON([]byte(`{"x":1}`))

	get := expression.DictGetExpr(expression.Identity(), expression.Literal(dynamicvalue.String("x"), nil))
	out, err := rt.Evaluate(context.Background(), get, input, nil)
	require.NoError(t, err)
	n, _ := out.AsInt()
	require.Equal(t, int64(1), n)

	put := expression.DictPutExpr(expression.Identity(),
		expression.Literal(dynamicvalue.String("y"), nil),
		expression.Literal(dynamicvalue.Int(2), nil))
	out, err = rt.Evaluate(context.Background(), put, input, nil)
	require.NoError(t, err)
	m, _ := out.AsMapping()
	require.Equal(t, 2, m.Len())

	pairs := expression.DictToPairExpr(expression.Identity())
	out, err = rt.Evaluate(context.Background(), pairs, input, nil)
	require.NoError(t, err)
	seq, _ := out.AsSequence()
	require.Len(t, seq, 1)
}

func TestDynamicToTypedReturnsNullOnMismatch(t *testing.T) {
	rt := New(nil)
	schema := wantIntSchema()
	expr := expression.ToTyped(schema, expression.Identity())
	out, err := rt.Evaluate(context.Background(), expr, dynamicvalue.String("not an int"), nil)
	require.NoError(t, err)
	require.True(t, out.IsNull())
}

type fakeLoader struct {
	called bool
	result *dynamicvalue.Value
}

func (f *fakeLoader) Load(ctx context.Context, ep *endpoint.Endpoint, input *dynamicvalue.Value) (*dynamicvalue.Value, error) {
	f.called = true
	return f.result, nil
}

func TestUnsafeEndpointCallDefersToLoader(t *testing.T) {
	loader := &fakeLoader{result: dynamicvalue.String("resolved")}
	rt := New(loader)
	expr := expression.EndpointCall(&endpoint.Endpoint{}, expression.Identity())

	out, err := rt.Evaluate(context.Background(), expr, dynamicvalue.Null(), nil)
	require.NoError(t, err)
	require.True(t, loader.called)
	s, _ := out.AsString()
	require.Equal(t, "resolved", s)
}
