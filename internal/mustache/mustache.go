// Package mustache implements the tiny substitution grammar from spec.md
// §3/§4.1: Mustache ::= (Text | "{{" Ident ("." Ident)* "}}")*. Path
// segments after the first may also be decimal array indexes ({{tags.1}}).
//
// Parsing is grounded in the teacher repo's use of
// github.com/alecthomas/participle/v2 for its own query dialects
// (pkg/dialects in the original LumaDB source); here the grammar describes
// mustache templates instead of a time-series query language.
package mustache

import (
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
)

// Segment is either literal Text or a Param path reference.
type Segment struct {
	Text  string
	Param dynamicvalue.Path
}

// Template is a parsed Mustache: a sequence of Segments.
type Template struct {
	Segments []Segment
}

var mustacheLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Param", Pattern: `\{\{\s*[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*\s*\}\}`},
	{Name: "Text", Pattern: `[^{]+|\{`},
})

type grammarSegment struct {
	Param string `@Param`
	Text  string `| @Text`
}

type grammarTemplate struct {
	Segments []grammarSegment `@@*`
}

var parser = participle.MustBuild[grammarTemplate](
	participle.Lexer(mustacheLexer),
	participle.UseLookahead(2),
)

var templateCache sync.Map // string -> *Template

// Parse compiles a mustache string into a Template. Unresolvable at
// evaluation time segments are NOT detected here — per spec.md §4.1 an
// unresolved {{...}} is re-emitted literally at evaluate time, not a parse
// error.
func Parse(s string) (*Template, error) {
	if cached, ok := templateCache.Load(s); ok {
		return cached.(*Template), nil
	}
	g, err := parser.ParseString("", s)
	if err != nil {
		return nil, err
	}
	tpl := &Template{}
	for _, seg := range g.Segments {
		if seg.Param != "" {
			path := parseParamPath(seg.Param)
			tpl.Segments = append(tpl.Segments, Segment{Param: path})
		} else {
			tpl.Segments = append(tpl.Segments, Segment{Text: seg.Text})
		}
	}
	templateCache.Store(s, tpl)
	return tpl, nil
}

func parseParamPath(raw string) dynamicvalue.Path {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "{{"), "}}"))
	return dynamicvalue.Path(strings.Split(inner, "."))
}

// Encode is the total inverse of Parse.
func Encode(tpl *Template) string {
	var sb strings.Builder
	for _, seg := range tpl.Segments {
		if seg.Param != nil {
			sb.WriteString("{{")
			sb.WriteString(strings.Join(seg.Param, "."))
			sb.WriteString("}}")
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// Evaluate substitutes each Param segment by walking dv; a Param whose path
// cannot be resolved is re-emitted as the literal "{{a.b.c}}" text (spec.md
// §4.1).
func Evaluate(tpl *Template, dv *dynamicvalue.Value) string {
	var sb strings.Builder
	for _, seg := range tpl.Segments {
		if seg.Param == nil {
			sb.WriteString(seg.Text)
			continue
		}
		resolved, ok := dynamicvalue.Walk(dv, seg.Param)
		if !ok {
			sb.WriteString("{{")
			sb.WriteString(strings.Join(seg.Param, "."))
			sb.WriteString("}}")
			continue
		}
		sb.WriteString(dynamicvalue.Stringify(resolved))
	}
	return sb.String()
}

// EvaluateString is a convenience for one-shot parse+evaluate.
func EvaluateString(raw string, dv *dynamicvalue.Value) (string, error) {
	tpl, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Evaluate(tpl, dv), nil
}
