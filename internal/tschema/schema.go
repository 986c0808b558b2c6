// Package tschema implements TSchema, the structural type descriptor used
// to validate and shape DynamicValues (spec.md §3).
package tschema

import (
	"fmt"

	"github.com/tailcall-go/tailcall/internal/dynamicvalue"
)

// Kind tags which structural shape a Schema describes.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindOptional
	KindArray
	KindDict
	KindObject
)

// Schema is an immutable structural type: string | int | bool |
// optional(T) | array(T) | dict(T) | object({name -> T}).
type Schema struct {
	kind   Kind
	inner  *Schema          // Optional, Array, Dict
	fields map[string]*Schema // Object
	order  []string           // Object field declaration order
}

func String() *Schema { return &Schema{kind: KindString} }
func Int() *Schema    { return &Schema{kind: KindInt} }
func Bool() *Schema   { return &Schema{kind: KindBool} }

func Optional(inner *Schema) *Schema { return &Schema{kind: KindOptional, inner: inner} }
func Array(inner *Schema) *Schema    { return &Schema{kind: KindArray, inner: inner} }
func Dict(inner *Schema) *Schema     { return &Schema{kind: KindDict, inner: inner} }

func Object(fields map[string]*Schema, order []string) *Schema {
	return &Schema{kind: KindObject, fields: fields, order: order}
}

func (s *Schema) Kind() Kind      { return s.kind }
func (s *Schema) Inner() *Schema  { return s.inner }
func (s *Schema) Fields() map[string]*Schema {
	return s.fields
}
func (s *Schema) FieldOrder() []string { return s.order }

func (s *Schema) String() string {
	switch s.kind {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindOptional:
		return fmt.Sprintf("optional(%s)", s.inner)
	case KindArray:
		return fmt.Sprintf("array(%s)", s.inner)
	case KindDict:
		return fmt.Sprintf("dict(%s)", s.inner)
	case KindObject:
		return "object(...)"
	default:
		return "unknown"
	}
}

// Matches reports whether v structurally conforms to s, implementing
// Dynamic.toTyped's "structurally matches" predicate (spec.md §4.2).
func Matches(s *Schema, v *dynamicvalue.Value) bool {
	switch s.kind {
	case KindString:
		_, ok := v.AsString()
		return ok
	case KindInt:
		_, ok := v.AsInt()
		return ok
	case KindBool:
		_, ok := v.AsBool()
		return ok
	case KindOptional:
		if v.IsNull() {
			return true
		}
		return Matches(s.inner, v)
	case KindArray:
		seq, ok := v.AsSequence()
		if !ok {
			return false
		}
		for _, e := range seq {
			if !Matches(s.inner, e) {
				return false
			}
		}
		return true
	case KindDict:
		m, ok := v.AsMapping()
		if !ok {
			return false
		}
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			if !Matches(s.inner, pair.Value) {
				return false
			}
		}
		return true
	case KindObject:
		m, ok := v.AsMapping()
		if !ok {
			return false
		}
		for name, fieldSchema := range s.fields {
			fv, present := m.Get(name)
			if !present {
				if fieldSchema.kind == KindOptional {
					continue
				}
				return false
			}
			if !Matches(fieldSchema, fv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsSubtype implements the structural, width-covariant subtype relation
// from spec.md §3: object A <= object B iff for every field of B a
// subtype exists in A.
func IsSubtype(a, b *Schema) bool {
	if a.kind != b.kind {
		// optional(T) <= optional(T); T <= optional(T) is allowed (widening).
		if b.kind == KindOptional {
			return IsSubtype(a, b.inner)
		}
		return false
	}
	switch a.kind {
	case KindString, KindInt, KindBool:
		return true
	case KindOptional, KindArray, KindDict:
		return IsSubtype(a.inner, b.inner)
	case KindObject:
		for name, bField := range b.fields {
			aField, ok := a.fields[name]
			if !ok || !IsSubtype(aField, bField) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
