package dynamicvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	omap "github.com/wk8/go-ordered-map/v2"
)

// FromJSON decodes a JSON document into a DynamicValue, preserving object
// key order via json.Decoder's token stream rather than round-tripping
// through map[string]interface{} (which Go randomizes on re-encode).
func FromJSON(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("dynamicvalue: decode json: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return Int(iv), nil
		}
		fv, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(fv), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var seq []*Value
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return Sequence(seq), nil
		case '{':
			m := omap.New[string, *Value]()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("dynamicvalue: non-string object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return MappingFrom(m), nil
		}
	}
	return nil, fmt.Errorf("dynamicvalue: unexpected token %v", tok)
}

// ToJSON encodes v back to JSON, preserving mapping key order.
func ToJSON(v *Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, v *Value) error {
	if v.IsNull() {
		_, err := io.WriteString(w, "null")
		return err
	}
	switch v.kind {
	case KindBool, KindInt, KindFloat, KindString:
		b, err := json.Marshal(scalarGo(v))
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case KindBinary:
		b, err := json.Marshal(v.binVal)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case KindSequence:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, e := range v.seqVal {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := writeJSON(w, e); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err
	case KindMapping:
		if _, err := io.WriteString(w, "{"); err != nil {
			return err
		}
		i := 0
		for pair := v.mapVal.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			keyBytes, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			if _, err := w.Write(keyBytes); err != nil {
				return err
			}
			if _, err := io.WriteString(w, ":"); err != nil {
				return err
			}
			if err := writeJSON(w, pair.Value); err != nil {
				return err
			}
			i++
		}
		_, err := io.WriteString(w, "}")
		return err
	case KindEnum:
		// Enums round-trip through JSON as {"constructor": payload}.
		wrapped := NewMapping()
		payload := v.enumVal.Payload
		if payload == nil {
			payload = Null()
		}
		wrapped.Set(v.enumVal.Constructor, payload)
		return writeJSON(w, wrapped)
	default:
		return fmt.Errorf("dynamicvalue: unknown kind %s", v.kind)
	}
}

func scalarGo(v *Value) interface{} {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.stringVal
	default:
		return nil
	}
}
