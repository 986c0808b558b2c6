// Package stepgen builds a Step tree from a Blueprint's field table: one
// ObjectStep per type whose children are PureStep/FunctionStep/QueryStep
// leaves, one per field (spec.md §4), with @modify renames and omissions
// applied at construction time. It does not take a query selection, and
// Generate does not descend into a field's output type, so nested
// ObjectSteps and ListSteps are not produced; @inline therefore leaves the
// plan unchanged.
package stepgen

import (
	"github.com/tailcall-go/tailcall/internal/blueprint"
	"github.com/tailcall-go/tailcall/internal/expression"
)

// Kind discriminates a Step's shape.
type Kind int

const (
	// KindPure wraps a resolver with no upstream call and no nested
	// selection: a literal, a Dynamic.path projection, a computed scalar.
	KindPure Kind = iota
	// KindFunction wraps a resolver that installs argument bindings before
	// evaluating (a resolver whose root is a FunctionDef).
	KindFunction
	// KindQuery wraps a resolver whose Expression bottoms out in an
	// Unsafe.endpointCall — the step the evaluator must route through a
	// Loader rather than evaluate in place.
	KindQuery
	// KindObject composes named child Steps over one parent value.
	KindObject
	// KindList maps an inner Step over each element of a sequence value.
	KindList
)

// Step is one node of the compiled execution plan.
type Step struct {
	Kind Kind
	Name string // the response key this step populates (field name, or its @modify rename)

	// KindPure, KindFunction, KindQuery
	Resolver *expression.Expr
	Args     []blueprint.Arg

	// KindObject
	Children []*Step

	// KindList, KindObject (an object step may itself be list-wrapped)
	Inner *Step
}

// Modification is one @modify directive instance: rename the response key
// a field populates, and/or omit it entirely.
type Modification struct {
	Field  string
	Rename string // "" means no rename
	Omit   bool
}

// Inline is one @inline directive instance. Generate splices an inlined
// field's children into the parent only when the field's step is a
// KindObject, which fieldStep never returns, so an Inline entry does not
// change the generated tree.
type Inline struct {
	Field string
}

// Generator builds Step trees from a Blueprint, applying the directive
// tables compiled alongside it.
type Generator struct {
	bp            *blueprint.Blueprint
	modifications map[string][]Modification // keyed by type name
	inlines       map[string][]Inline        // keyed by type name

	// declared holds object-type Steps already built, keyed by type name,
	// used to short-circuit recursive type references the same way
	// blueprint.Blueprint.Register/SetFields does: declare every object
	// Step by name first, wire Children in a second pass.
	declared map[string]*Step
}

func NewGenerator(bp *blueprint.Blueprint, modifications map[string][]Modification, inlines map[string][]Inline) *Generator {
	return &Generator{bp: bp, modifications: modifications, inlines: inlines, declared: map[string]*Step{}}
}

// Generate builds the Step tree rooted at typeName, the entry point for
// both the query root and any nested object type.
func (g *Generator) Generate(typeName string) *Step {
	if existing, ok := g.declared[typeName]; ok {
		return existing
	}

	t, ok := g.bp.Types[typeName]
	if !ok {
		return &Step{Kind: KindPure, Name: typeName}
	}

	// Declare first: an empty-children placeholder goes into the map before
	// any child is built, so a field of this type that recurses back to
	// typeName (directly or through a chain) gets this same pointer instead
	// of recursing into Generate again.
	root := &Step{Kind: KindObject, Name: typeName}
	g.declared[typeName] = root

	omitted := map[string]bool{}
	renamed := map[string]string{}
	for _, m := range g.modifications[typeName] {
		if m.Omit {
			omitted[m.Field] = true
		}
		if m.Rename != "" {
			renamed[m.Field] = m.Rename
		}
	}
	inlined := map[string]bool{}
	for _, in := range g.inlines[typeName] {
		inlined[in.Field] = true
	}

	var children []*Step
	for _, f := range t.Fields {
		if omitted[f.Name] {
			continue
		}

		step := g.fieldStep(f)

		if inlined[f.Name] && step.Kind == KindObject {
			// Splice the inlined type's own children directly into this
			// object's selection instead of nesting one level deeper.
			children = append(children, step.Children...)
			continue
		}

		if name, ok := renamed[f.Name]; ok {
			step.Name = name
		}
		children = append(children, step)
	}

	root.Children = children
	return root
}

// fieldStep builds the leaf Step for a single field's own resolver,
// classified by what the resolver does (pure computation, argument
// binding, or an upstream call), not by its declared output shape. No
// caller adds a nested Step for a field whose output is an object or a
// list-of-object type.
func (g *Generator) fieldStep(f blueprint.Field) *Step {
	kind := classify(f.Resolver)
	return &Step{Kind: kind, Name: f.Name, Resolver: f.Resolver, Args: f.Args}
}

// WrapList returns a KindList Step whose Inner maps over each element of
// the sequence a field resolves to. Nothing in the module calls it; Generate
// does not wrap list-typed fields.
func WrapList(inner *Step) *Step {
	return &Step{Kind: KindList, Name: inner.Name, Inner: inner}
}

func (k Kind) String() string {
	switch k {
	case KindPure:
		return "Pure"
	case KindFunction:
		return "Function"
	case KindQuery:
		return "Query"
	case KindObject:
		return "Object"
	case KindList:
		return "List"
	default:
		return "Unknown"
	}
}

// Description is the JSON-friendly projection of a Step tree, printed by
// the CLI's `generate` subcommand so an operator can inspect the compiled
// execution plan without an expression-internals dump.
type Description struct {
	Kind     string        `json:"kind"`
	Name     string        `json:"name"`
	Children []Description `json:"children,omitempty"`
	Inner    *Description  `json:"inner,omitempty"`
}

// Describe projects step into its Description.
func Describe(step *Step) Description {
	d := Description{Kind: step.Kind.String(), Name: step.Name}
	for _, c := range step.Children {
		d.Children = append(d.Children, Describe(c))
	}
	if step.Inner != nil {
		inner := Describe(step.Inner)
		d.Inner = &inner
	}
	return d
}

// classify inspects a resolver Expression and picks the Step kind it
// requires: a tree that bottoms out in Unsafe.endpointCall needs the
// loader-routed KindQuery; one that installs a FunctionDef binding for
// declared arguments needs KindFunction; everything else is KindPure.
func classify(expr *expression.Expr) Kind {
	if expr == nil {
		return KindPure
	}
	if containsEndpointCall(expr) {
		return KindQuery
	}
	if expr.Tag == expression.TagFunctionDef {
		return KindFunction
	}
	return KindPure
}

func containsEndpointCall(expr *expression.Expr) bool {
	if expr == nil {
		return false
	}
	if expr.Tag == expression.TagUnsafe && expr.UnsafeOp == expression.UnsafeEndpointCall {
		return true
	}
	switch expr.Tag {
	case expression.TagPipe:
		return containsEndpointCall(expr.PipeA) || containsEndpointCall(expr.PipeB)
	case expression.TagFunctionDef:
		return containsEndpointCall(expr.FuncBody)
	case expression.TagLogical:
		return containsEndpointCall(expr.LogicalA) || containsEndpointCall(expr.LogicalB) ||
			containsEndpointCall(expr.IfCond) || containsEndpointCall(expr.IfThen) || containsEndpointCall(expr.IfElse)
	case expression.TagOpt:
		return containsEndpointCall(expr.OptVal) || containsEndpointCall(expr.OptNone) ||
			containsEndpointCall(expr.OptSome) || containsEndpointCall(expr.OptFn)
	case expression.TagDynamic:
		return containsEndpointCall(expr.DynamicInput)
	case expression.TagUnsafe:
		return containsEndpointCall(expr.UnsafeInput)
	default:
		return false
	}
}
