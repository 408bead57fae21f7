package model

import (
	"pastlog/internal/value"
)

// Argument is one named piece of structured context attached to an event.
// A new argument holds the captured original value until it is saved; a
// loaded argument holds the stored rows and decodes them on demand.
type Argument struct {
	ID      int64
	EventID int64
	Name    string
	Type    string
	Raw     string

	original    value.Value
	hasOriginal bool
	rows        []value.Row
	decoded     any
	decodedSet  bool
}

// NewArgument creates an in-memory argument around a captured value.
func NewArgument(name string, v value.Value) *Argument {
	return &Argument{
		Name:        name,
		original:    v,
		hasOriginal: true,
	}
}

// LoadedArgument rebuilds an argument from its stored row representation.
func LoadedArgument(id, eventID int64, name, typeTag, raw string, rows []value.Row) *Argument {
	return &Argument{
		ID:      id,
		EventID: eventID,
		Name:    name,
		Type:    typeTag,
		Raw:     raw,
		rows:    rows,
	}
}

// GetKey returns the argument name.
func (a *Argument) GetKey() string { return a.Name }

// GetType returns the resolved type tag.
func (a *Argument) GetType() string { return a.Type }

// GetRaw returns the caller-supplied preview string.
func (a *Argument) GetRaw() string { return a.Raw }

// SetRaw stores a short descriptive preview alongside the decomposed data.
func (a *Argument) SetRaw(raw string) *Argument {
	a.Raw = ShortenString(raw, MaxFieldLength)
	return a
}

// EnsureType resolves the type tag from the captured value if it has not
// been set explicitly. Must yield a non-empty tag before the argument is
// persisted.
func (a *Argument) EnsureType() {
	if a.Type == "" && a.hasOriginal {
		a.Type = value.TypeTag(a.original)
	}
}

// Original returns the captured value of a not yet saved argument.
func (a *Argument) Original() (value.Value, bool) {
	return a.original, a.hasOriginal
}

// GetData reconstructs the argument value. Loaded arguments decode their
// stored rows; unsaved arguments materialize the captured value directly.
// The result is cached.
func (a *Argument) GetData() (any, error) {
	if a.decodedSet {
		return a.decoded, nil
	}

	var (
		data any
		err  error
	)
	switch {
	case a.rows != nil || !a.hasOriginal:
		data, err = value.Decode(a.Type, a.rows)
		if err != nil {
			return nil, err
		}
	default:
		data = value.Materialize(a.original)
	}

	a.decoded = data
	a.decodedSet = true
	return data, nil
}
