// Package dynamicvalue implements DynamicValue, the untyped, self-describing
// value that flows between every resolver in the gateway: upstream JSON
// bodies, GraphQL arguments, and intermediate expression results are all
// DynamicValues.
package dynamicvalue

import (
	"fmt"

	omap "github.com/wk8/go-ordered-map/v2"
)

// Kind tags the variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindSequence
	KindMapping
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// OrderedMap is the concrete mapping representation used by Value: keys
// preserve insertion order, matching spec.md §3's "a mapping has unique
// keys" / insertion-order invariant.
type OrderedMap = omap.OrderedMap[string, *Value]

// Enum is a tagged constructor: a name plus an optional payload, used to
// represent GraphQL enum-like or Rust-style sum values round-tripped from
// upstream responses.
type Enum struct {
	Constructor string
	Payload     *Value
}

// Value is the self-describing dynamic value. Exactly one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	kind Kind

	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string
	binVal    []byte
	seqVal    []*Value
	mapVal    *OrderedMap
	enumVal   *Enum
}

func Null() *Value                { return &Value{kind: KindNull} }
func Bool(b bool) *Value          { return &Value{kind: KindBool, boolVal: b} }
func Int(i int64) *Value          { return &Value{kind: KindInt, intVal: i} }
func Float(f float64) *Value      { return &Value{kind: KindFloat, floatVal: f} }
func String(s string) *Value      { return &Value{kind: KindString, stringVal: s} }
func Binary(b []byte) *Value      { return &Value{kind: KindBinary, binVal: b} }
func Sequence(vs []*Value) *Value { return &Value{kind: KindSequence, seqVal: vs} }

// NewMapping builds a Value over a fresh, empty OrderedMap.
func NewMapping() *Value {
	return &Value{kind: KindMapping, mapVal: omap.New[string, *Value]()}
}

func MappingFrom(m *OrderedMap) *Value {
	return &Value{kind: KindMapping, mapVal: m}
}

func NewEnum(constructor string, payload *Value) *Value {
	return &Value{kind: KindEnum, enumVal: &Enum{Constructor: constructor, Payload: payload}}
}

func (v *Value) Kind() Kind { return v.kind }

func (v *Value) IsNull() bool { return v == nil || v.kind == KindNull }

func (v *Value) AsBool() (bool, bool) {
	if v == nil || v.kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

func (v *Value) AsInt() (int64, bool) {
	if v == nil || v.kind != KindInt {
		return 0, false
	}
	return v.intVal, true
}

func (v *Value) AsFloat() (float64, bool) {
	switch {
	case v == nil:
		return 0, false
	case v.kind == KindFloat:
		return v.floatVal, true
	case v.kind == KindInt:
		return float64(v.intVal), true
	default:
		return 0, false
	}
}

func (v *Value) AsString() (string, bool) {
	if v == nil || v.kind != KindString {
		return "", false
	}
	return v.stringVal, true
}

func (v *Value) AsBinary() ([]byte, bool) {
	if v == nil || v.kind != KindBinary {
		return nil, false
	}
	return v.binVal, true
}

func (v *Value) AsSequence() ([]*Value, bool) {
	if v == nil || v.kind != KindSequence {
		return nil, false
	}
	return v.seqVal, true
}

func (v *Value) AsMapping() (*OrderedMap, bool) {
	if v == nil || v.kind != KindMapping {
		return nil, false
	}
	return v.mapVal, true
}

func (v *Value) AsEnum() (*Enum, bool) {
	if v == nil || v.kind != KindEnum {
		return nil, false
	}
	return v.enumVal, true
}

// Get returns the mapping field named key, or nil if v isn't a mapping or
// the field is absent.
func (v *Value) Get(key string) *Value {
	m, ok := v.AsMapping()
	if !ok {
		return nil
	}
	val, present := m.Get(key)
	if !present {
		return nil
	}
	return val
}

// Set inserts or overwrites a mapping field, preserving insertion order for
// new keys. Panics if v is not a mapping — callers must build with
// NewMapping first.
func (v *Value) Set(key string, val *Value) {
	m, ok := v.AsMapping()
	if !ok {
		panic(fmt.Sprintf("dynamicvalue: Set on non-mapping kind %s", v.kind))
	}
	m.Set(key, val)
}

// Index returns the sequence element at i, or nil if out of range or v is
// not a sequence.
func (v *Value) Index(i int) *Value {
	seq, ok := v.AsSequence()
	if !ok || i < 0 || i >= len(seq) {
		return nil
	}
	return seq[i]
}

// Equal performs a deep structural comparison used by Expression.EqualTo.
func Equal(a, b *Value) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindFloat:
		return a.floatVal == b.floatVal
	case KindString:
		return a.stringVal == b.stringVal
	case KindBinary:
		if len(a.binVal) != len(b.binVal) {
			return false
		}
		for i := range a.binVal {
			if a.binVal[i] != b.binVal[i] {
				return false
			}
		}
		return true
	case KindSequence:
		if len(a.seqVal) != len(b.seqVal) {
			return false
		}
		for i := range a.seqVal {
			if !Equal(a.seqVal[i], b.seqVal[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if a.mapVal.Len() != b.mapVal.Len() {
			return false
		}
		for pair := a.mapVal.Oldest(); pair != nil; pair = pair.Next() {
			bv, ok := b.mapVal.Get(pair.Key)
			if !ok || !Equal(pair.Value, bv) {
				return false
			}
		}
		return true
	case KindEnum:
		return a.enumVal.Constructor == b.enumVal.Constructor && Equal(a.enumVal.Payload, b.enumVal.Payload)
	default:
		return false
	}
}

// Stringify renders the mustache-substitution textual form of v: strings
// unquoted, numbers/booleans canonical, objects/arrays as JSON (spec.md
// §4.1).
func Stringify(v *Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.stringVal
	case KindBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		return fmt.Sprintf("%g", v.floatVal)
	case KindBinary:
		return string(v.binVal)
	default:
		b, err := ToJSON(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
