// Package value implements the typed capture, flattening and reconstruction
// of event argument data. Arbitrary caller values are normalized into a closed
// variant type at capture time, flattened into storable rows at save time and
// rebuilt from those rows on load.
package value

// Kind identifies the variant held by a Value.
type Kind int

// The closed set of variants a captured value can take.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindMap       // ordered map of string keys to values
	KindObject    // by-value snapshot of a generic object
	KindException // decoded error with its cause chain
	KindEntity    // flat field snapshot of a referenced entity
)

// Type tags stored alongside rows. Object snapshots use their dynamic type
// name instead and entity references use TagEntityPrefix + entity type.
const (
	TagNull         = "null"
	TagBool         = "boolean"
	TagInt          = "integer"
	TagFloat        = "float"
	TagString       = "string"
	TagArray        = "array"
	TagObject       = "object"
	TagEntityPrefix = "entity:"
)

// Entry is a single key/value pair of a captured map or snapshot. Entries
// keep their order so rows are emitted deterministically.
type Entry struct {
	Key   string
	Value Value
}

// Value is the normalized form of one argument value.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	entries  []Entry
	typeName string // object snapshots and entity references
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, intVal: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, floatVal: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Map builds an ordered map value from the given entries.
func Map(entries ...Entry) Value { return Value{kind: KindMap, entries: entries} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Entries returns the key/value pairs of a map, object, exception or entity
// value. It is nil for scalars.
func (v Value) Entries() []Entry { return v.entries }

// TypeName returns the dynamic type name of an object snapshot or the entity
// type of an entity reference.
func (v Value) TypeName() string { return v.typeName }

// isScalar reports whether v stores directly as a literal row value.
func (v Value) isScalar() bool {
	switch v.kind {
	case KindBool, KindInt, KindFloat, KindString:
		return true
	}
	return false
}

// TypeTag resolves the storage type tag for a captured value. Exception
// snapshots resolve to the array tag: they are persisted as their decoded
// map, the same way the data rows describe them.
func TypeTag(v Value) string {
	switch v.kind {
	case KindNull:
		return TagNull
	case KindBool:
		return TagBool
	case KindInt:
		return TagInt
	case KindFloat:
		return TagFloat
	case KindString:
		return TagString
	case KindMap, KindException:
		return TagArray
	case KindEntity:
		return TagEntityPrefix + v.typeName
	case KindObject:
		if v.typeName == "" {
			return TagObject
		}
		return v.typeName
	}
	return TagNull
}

// Materialize converts a captured value back into a plain Go value. Maps and
// snapshots become map[string]any; entry order is not preserved.
func Materialize(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.strVal
	default:
		m := make(map[string]any, len(v.entries))
		for _, e := range v.entries {
			if e.Value.IsNull() {
				continue
			}
			m[e.Key] = Materialize(e.Value)
		}
		return m
	}
}
