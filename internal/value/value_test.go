package value

import (
	"errors"
	"fmt"
	"testing"
)

func TestCaptureScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		tag  string
	}{
		{"nil", nil, KindNull, TagNull},
		{"bool", true, KindBool, TagBool},
		{"int", 42, KindInt, TagInt},
		{"int64", int64(-9), KindInt, TagInt},
		{"uint32", uint32(7), KindInt, TagInt},
		{"float64", 3.25, KindFloat, TagFloat},
		{"float32", float32(1.5), KindFloat, TagFloat},
		{"string", "hello", KindString, TagString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Capture(tt.in, Options{})
			if v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tt.kind)
			}
			if got := TypeTag(v); got != tt.tag {
				t.Errorf("TypeTag() = %q, want %q", got, tt.tag)
			}
		})
	}
}

func TestCaptureMapSortsKeys(t *testing.T) {
	v := Capture(map[string]any{"zebra": 1, "apple": 2, "mango": 3}, Options{})

	if v.Kind() != KindMap {
		t.Fatalf("Kind() = %v, want KindMap", v.Kind())
	}
	entries := v.Entries()
	want := []string{"apple", "mango", "zebra"}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, key := range want {
		if entries[i].Key != key {
			t.Errorf("entries[%d].Key = %q, want %q", i, entries[i].Key, key)
		}
	}
}

func TestCaptureSliceIndexesElements(t *testing.T) {
	v := Capture([]any{"a", "b"}, Options{})

	entries := v.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Key != "0" || entries[1].Key != "1" {
		t.Errorf("keys = %q, %q; want \"0\", \"1\"", entries[0].Key, entries[1].Key)
	}
}

func TestCaptureIsByValue(t *testing.T) {
	m := map[string]any{"count": 1}
	v := Capture(m, Options{})
	m["count"] = 99

	data := Materialize(v).(map[string]any)
	if data["count"] != int64(1) {
		t.Errorf("count = %v, want 1 (capture must snapshot by value)", data["count"])
	}
}

func TestCaptureExclude(t *testing.T) {
	v := Capture(map[string]any{
		"username": "alice",
		"password": "hunter2",
	}, Options{Exclude: []string{"password"}})

	for _, e := range v.Entries() {
		if e.Key == "password" {
			t.Error("excluded key survived capture")
		}
	}
	if len(v.Entries()) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(v.Entries()))
	}
}

type fakeUser struct {
	name string
}

func (u fakeUser) EntityTypeID() string { return "user" }
func (u fakeUser) Snapshot() []Field {
	return []Field{
		{Name: "name", Value: u.name},
		{Name: "active", Value: true},
	}
}

func TestCaptureEntity(t *testing.T) {
	v := Capture(fakeUser{name: "alice"}, Options{})

	if v.Kind() != KindEntity {
		t.Fatalf("Kind() = %v, want KindEntity", v.Kind())
	}
	if got := TypeTag(v); got != "entity:user" {
		t.Errorf("TypeTag() = %q, want %q", got, "entity:user")
	}
	entries := v.Entries()
	if len(entries) != 2 || entries[0].Key != "name" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

type tagged struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestCaptureObject(t *testing.T) {
	v := Capture(tagged{Title: "x", Count: 2}, Options{})

	if v.Kind() != KindObject {
		t.Fatalf("Kind() = %v, want KindObject", v.Kind())
	}
	if got := TypeTag(v); got != "value.tagged" {
		t.Errorf("TypeTag() = %q, want %q", got, "value.tagged")
	}

	fields := make(map[string]bool)
	for _, e := range v.Entries() {
		fields[e.Key] = true
	}
	if !fields["title"] || !fields["count"] {
		t.Errorf("object fields = %v, want title and count", fields)
	}
}

type codedError struct {
	msg  string
	code int
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() int     { return e.code }

func entryByKey(entries []Entry, key string) (Value, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func TestCaptureErrorBasics(t *testing.T) {
	v := Capture(&codedError{msg: "boom", code: 507}, Options{})

	if v.Kind() != KindException {
		t.Fatalf("Kind() = %v, want KindException", v.Kind())
	}
	if got := TypeTag(v); got != TagArray {
		t.Errorf("TypeTag() = %q, want %q", got, TagArray)
	}

	msg, ok := entryByKey(v.Entries(), "message")
	if !ok || Materialize(msg) != "boom" {
		t.Errorf("message = %v, want %q", Materialize(msg), "boom")
	}
	code, ok := entryByKey(v.Entries(), "code")
	if !ok || Materialize(code) != int64(507) {
		t.Errorf("code = %v, want 507", Materialize(code))
	}
	if _, ok := entryByKey(v.Entries(), "location"); !ok {
		t.Error("missing location on outermost error")
	}
	if _, ok := entryByKey(v.Entries(), "backtrace"); !ok {
		t.Error("missing backtrace on outermost error")
	}
}

func TestCaptureErrorCauseChainCapped(t *testing.T) {
	err := errors.New("root")
	for i := 0; i < 4; i++ {
		err = fmt.Errorf("layer %d: %w", i, err)
	}

	v := Capture(err, Options{})

	depth := 0
	entries := v.Entries()
	for {
		prev, ok := entryByKey(entries, "previous")
		if !ok {
			break
		}
		depth++
		if _, hasLoc := entryByKey(prev.Entries(), "location"); hasLoc {
			t.Error("nested cause should not carry location")
		}
		entries = prev.Entries()
	}
	if depth != 3 {
		t.Errorf("cause chain depth = %d, want 3", depth)
	}
}

func TestCaptureErrorExclude(t *testing.T) {
	v := Capture(errors.New("boom"), Options{Exclude: []string{"backtrace"}})

	if v.Kind() != KindException {
		t.Fatalf("Kind() = %v, want KindException", v.Kind())
	}
	if _, ok := entryByKey(v.Entries(), "backtrace"); ok {
		t.Error("excluded key survived capture of an error")
	}
	if _, ok := entryByKey(v.Entries(), "message"); !ok {
		t.Error("message dropped alongside the excluded key")
	}
}

func TestCaptureErrorCodePerLevel(t *testing.T) {
	err := fmt.Errorf("outer: %w", &codedError{msg: "inner", code: 507})

	v := Capture(err, Options{})

	code, ok := entryByKey(v.Entries(), "code")
	if !ok || Materialize(code) != int64(0) {
		t.Errorf("outer code = %v, want 0", Materialize(code))
	}

	prev, ok := entryByKey(v.Entries(), "previous")
	if !ok {
		t.Fatal("missing previous entry")
	}
	code, ok = entryByKey(prev.Entries(), "code")
	if !ok || Materialize(code) != int64(507) {
		t.Errorf("cause code = %v, want 507", Materialize(code))
	}
}

func TestRowsScalar(t *testing.T) {
	rows := Rows(Int(42))
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Name != "" || rows[0].Type != TagInt || rows[0].Value != "42" || rows[0].Serialized {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

func TestRowsNull(t *testing.T) {
	if rows := Rows(Null()); rows != nil {
		t.Errorf("Rows(Null()) = %v, want nil", rows)
	}
}

func TestRowsMapDropsNullEntries(t *testing.T) {
	v := Capture(map[string]any{
		"name":  "alice",
		"email": nil,
		"age":   30,
	}, Options{})

	rows := Rows(v)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (null entry dropped)", len(rows))
	}
	for _, row := range rows {
		if row.Name == "email" {
			t.Error("null entry emitted a row")
		}
	}
}

func TestRowsNestedSerialized(t *testing.T) {
	v := Capture(map[string]any{
		"name": "alice",
		"tags": []any{"a", "b"},
	}, Options{})

	rows := Rows(v)
	var nested *Row
	for i := range rows {
		if rows[i].Name == "tags" {
			nested = &rows[i]
		}
	}
	if nested == nil {
		t.Fatal("missing tags row")
	}
	if !nested.Serialized {
		t.Error("nested entry should be serialized")
	}
	if nested.Type != TagArray {
		t.Errorf("nested type = %q, want %q", nested.Type, TagArray)
	}
}

func TestDecodeScalarRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"int", int64(42)},
		{"float", 2.5},
		{"bool", true},
		{"string", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Capture(tt.in, Options{})
			got, err := Decode(TypeTag(v), Rows(v))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.in {
				t.Errorf("round trip = %v (%T), want %v (%T)", got, got, tt.in, tt.in)
			}
		})
	}
}

func TestDecodeMapRoundTrips(t *testing.T) {
	v := Capture(map[string]any{"name": "alice", "age": 30}, Options{})

	got, err := Decode(TypeTag(v), Rows(v))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", got)
	}
	if m["name"] != "alice" {
		t.Errorf("name = %v, want alice", m["name"])
	}
	if m["age"] != int64(30) {
		t.Errorf("age = %v, want 30", m["age"])
	}
}

func TestDecodeObjectSurfacesAsObject(t *testing.T) {
	v := Capture(tagged{Title: "x", Count: 2}, Options{})

	got, err := Decode(TypeTag(v), Rows(v))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got.(Object); !ok {
		t.Errorf("decoded type = %T, want value.Object", got)
	}
}

func TestDecodeNull(t *testing.T) {
	got, err := Decode(TagNull, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != nil {
		t.Errorf("Decode(null) = %v, want nil", got)
	}
}
