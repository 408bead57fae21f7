package value

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Object is the object-shaped reconstruction of a stored argument. It is a
// distinct type from plain maps so callers can tell an object snapshot apart
// from an array argument when type-checking decoded data.
type Object map[string]any

// Decode reconstructs a value from its type tag and stored rows, reversing
// Rows within the documented limits: scalars and one-level maps of primitives
// round-trip exactly, objects and exceptions come back as tag plus fields
// only.
func Decode(typeTag string, rows []Row) (any, error) {
	switch typeTag {
	case TagInt, TagFloat, TagBool, TagString:
		if len(rows) == 0 {
			return nil, nil
		}
		return decodeScalar(typeTag, rows[0].Value)
	case TagNull, "":
		return nil, nil
	case TagArray:
		m := make(map[string]any, len(rows))
		if err := decodeEntries(rows, m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		// Object snapshots, entity references and any legacy tags decode
		// the same way as maps but surface object-shaped.
		o := make(Object, len(rows))
		if err := decodeEntries(rows, o); err != nil {
			return nil, err
		}
		return o, nil
	}
}

func decodeEntries(rows []Row, into map[string]any) error {
	for _, row := range rows {
		v, err := decodeRow(row)
		if err != nil {
			return fmt.Errorf("decoding row %q: %w", row.Name, err)
		}
		into[row.Name] = v
	}
	return nil
}

func decodeRow(row Row) (any, error) {
	if row.Serialized {
		var v any
		if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
			return nil, fmt.Errorf("deserializing value: %w", err)
		}
		return v, nil
	}
	return decodeScalar(row.Type, row.Value)
}

// decodeScalar coerces a literal row value back to its primitive type.
// Unknown tags fall back to the raw string.
func decodeScalar(typeTag, raw string) (any, error) {
	switch typeTag {
	case TagInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing integer %q: %w", raw, err)
		}
		return i, nil
	case TagFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing float %q: %w", raw, err)
		}
		return f, nil
	case TagBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing boolean %q: %w", raw, err)
		}
		return b, nil
	default:
		return raw, nil
	}
}
