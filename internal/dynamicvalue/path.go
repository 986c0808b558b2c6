package dynamicvalue

import "strconv"

// Path is a non-empty list of segment names, shared by Mustache.Param and
// Expression.Dynamic.path (spec.md §3, §4.1).
type Path []string

// Walk resolves path segments against v, supporting object lookup by key,
// array lookup by decimal-digit segment, and a single-level optional
// unwrap when a segment targets an enum "Some" payload. Returns (value,
// true) on success, (nil, false) when any segment is unresolved — callers
// decide whether that means "leave unsubstituted" (Mustache) or "None"
// (Expression.Dynamic.path).
func Walk(v *Value, path Path) (*Value, bool) {
	cur := v
	for _, seg := range path {
		if cur == nil {
			return nil, false
		}
		if en, ok := cur.AsEnum(); ok && en.Constructor == "Some" {
			cur = en.Payload
		}
		switch cur.Kind() {
		case KindMapping:
			m, _ := cur.AsMapping()
			next, ok := m.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case KindSequence:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			seq, _ := cur.AsSequence()
			if idx < 0 || idx >= len(seq) {
				return nil, false
			}
			cur = seq[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
