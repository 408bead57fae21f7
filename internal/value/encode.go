package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// maxCauseDepth caps how many chained causes of an error get decoded.
// Deeper causes are dropped.
const maxCauseDepth = 3

// Options controls how Capture normalizes a value.
type Options struct {
	// Exclude lists top-level keys removed from maps and object snapshots
	// before decomposition. The option is consumed at capture time and
	// never stored.
	Exclude []string
}

// Field is one named field of an entity snapshot.
type Field struct {
	Name  string
	Value any
}

// Entity is a handle to another persisted record. Instead of following the
// reference, Capture stores the entity type and a flat field snapshot taken
// at capture time, which avoids deep object graphs and reference cycles.
type Entity interface {
	EntityTypeID() string
	Snapshot() []Field
}

// Coder is implemented by errors that carry a numeric code.
type Coder interface {
	Code() int
}

// Capture normalizes an arbitrary caller value into the closed variant set.
// It never fails: values that cannot be decomposed degrade to their string
// form. Snapshots are taken by value, so mutating the input afterwards does
// not change what gets stored.
func Capture(data any, opts Options) Value {
	v := capture(data)
	if len(opts.Exclude) > 0 {
		switch v.kind {
		case KindMap, KindObject, KindEntity, KindException:
			v.entries = excludeKeys(v.entries, opts.Exclude)
		}
	}
	return v
}

func capture(data any) Value {
	switch d := data.(type) {
	case nil:
		return Null()
	case Value:
		return d
	case bool:
		return Bool(d)
	case int:
		return Int(int64(d))
	case int8:
		return Int(int64(d))
	case int16:
		return Int(int64(d))
	case int32:
		return Int(int64(d))
	case int64:
		return Int(d)
	case uint:
		return Int(int64(d))
	case uint8:
		return Int(int64(d))
	case uint16:
		return Int(int64(d))
	case uint32:
		return Int(int64(d))
	case uint64:
		return Int(int64(d))
	case float32:
		return Float(float64(d))
	case float64:
		return Float(d)
	case string:
		return String(d)
	case Entity:
		return captureEntity(d)
	case error:
		return captureError(d, 0)
	case map[string]any:
		return captureMap(d)
	case []any:
		return captureSlice(d)
	default:
		return captureObject(d)
	}
}

// captureMap normalizes a plain map. Go maps have no iteration order, so
// keys are sorted to keep row output stable.
func captureMap(m map[string]any) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: capture(m[k])})
	}
	return Value{kind: KindMap, entries: entries}
}

// captureSlice normalizes a slice into a map keyed by element index.
func captureSlice(s []any) Value {
	entries := make([]Entry, 0, len(s))
	for i, elem := range s {
		entries = append(entries, Entry{Key: strconv.Itoa(i), Value: capture(elem)})
	}
	return Value{kind: KindMap, entries: entries}
}

// captureEntity snapshots a referenced entity into its flat field list.
func captureEntity(e Entity) Value {
	fields := e.Snapshot()
	entries := make([]Entry, 0, len(fields))
	for _, f := range fields {
		entries = append(entries, Entry{Key: f.Name, Value: capture(f.Value)})
	}
	return Value{kind: KindEntity, typeName: e.EntityTypeID(), entries: entries}
}

// captureObject snapshots a generic value by round-tripping it through JSON,
// which both copies it and flattens it to plain fields. Values JSON cannot
// express degrade to their formatted string.
func captureObject(data any) Value {
	typeName := strings.TrimPrefix(fmt.Sprintf("%T", data), "*")

	raw, err := json.Marshal(data)
	if err == nil {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err == nil {
			snapshot := captureMap(fields)
			return Value{kind: KindObject, typeName: typeName, entries: snapshot.entries}
		}
	}
	return Value{
		kind:     KindObject,
		typeName: typeName,
		entries:  []Entry{{Key: "value", Value: String(fmt.Sprint(data))}},
	}
}

// captureError decodes an error into message, code, location and backtrace.
// Wrapped causes recurse under the previous key until maxCauseDepth. Only
// the outermost error gets location and backtrace: in Go the stack belongs
// to the capture site, not to each error in the chain.
func captureError(err error, level int) Value {
	// The code is read from this error only, not from the wrap chain. Each
	// level of the recursion reports its own code.
	var code int64
	if coder, ok := err.(Coder); ok {
		code = int64(coder.Code())
	}

	entries := []Entry{
		{Key: "message", Value: String(err.Error())},
		{Key: "code", Value: Int(code)},
	}
	if level == 0 {
		entries = append(entries,
			Entry{Key: "location", Value: String(captureLocation())},
			Entry{Key: "backtrace", Value: String(captureBacktrace())},
		)
	}
	if level < maxCauseDepth {
		if cause := errors.Unwrap(err); cause != nil {
			entries = append(entries, Entry{Key: "previous", Value: captureError(cause, level+1)})
		}
	}
	return Value{kind: KindException, entries: entries}
}

// captureLocation returns the file:line of the first caller frame outside
// this package.
func captureLocation() string {
	for _, f := range callerFrames() {
		if !strings.Contains(f.File, "internal/value") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
	}
	return ""
}

// captureBacktrace formats the capture-site call stack as one frame per line.
func captureBacktrace() string {
	var b strings.Builder
	for _, f := range callerFrames() {
		if strings.Contains(f.File, "internal/value") {
			continue
		}
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func callerFrames() []runtime.Frame {
	pc := make([]uintptr, 32)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])

	var out []runtime.Frame
	for {
		frame, more := frames.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out
}

func excludeKeys(entries []Entry, exclude []string) []Entry {
	drop := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		drop[k] = struct{}{}
	}

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := drop[e.Key]; ok {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// Row is one flattened data row of a captured value, ready to persist once
// the owning argument has an id.
type Row struct {
	ParentID   int64
	Name       string
	Type       string
	Value      string
	Serialized bool
}

// Rows flattens a captured value into its storable rows. A bare scalar emits
// exactly one row with an empty name. Maps and snapshots emit one row per
// non-null entry; null entries are dropped. Nested non-scalar entries are
// not decomposed further and degrade to a serialized JSON blob.
func Rows(v Value) []Row {
	if v.IsNull() {
		return nil
	}
	if v.isScalar() {
		return []Row{{Name: "", Type: TypeTag(v), Value: literal(v)}}
	}

	rows := make([]Row, 0, len(v.entries))
	for _, e := range v.entries {
		if e.Value.IsNull() {
			continue
		}
		row := Row{Name: e.Key, Type: TypeTag(e.Value)}
		if e.Value.isScalar() {
			row.Value = literal(e.Value)
		} else {
			row.Value = serialize(e.Value)
			row.Serialized = true
		}
		rows = append(rows, row)
	}
	return rows
}

// literal formats a scalar for literal row storage.
func literal(v Value) string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	default:
		return v.strVal
	}
}

// serialize encodes a non-scalar value as a JSON blob.
func serialize(v Value) string {
	raw, err := json.Marshal(Materialize(v))
	if err != nil {
		// Unreachable for values built by capture; keep a readable fallback.
		return fmt.Sprint(Materialize(v))
	}
	return string(raw)
}
