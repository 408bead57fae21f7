package model

// EventType is a named event category. Events reference it through their
// Type field; the default bundle is seeded by the migrations.
type EventType struct {
	Type   string
	Label  string
	Weight int64
}
