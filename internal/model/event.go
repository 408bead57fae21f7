// Package model defines the event log domain types: events, their arguments
// and event types.
package model

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"pastlog/internal/value"
)

// Severity is the ordered importance level of an event. The zero value means
// unset; Save applies the default.
type Severity int

// Severity levels, ordered from least to most important.
const (
	SeverityDebug Severity = iota + 1
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// DefaultSeverity is applied to events saved without an explicit severity.
const DefaultSeverity = SeverityInfo

// String returns the lower-case level name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Valid reports whether s is one of the five defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityDebug && s <= SeverityCritical
}

// ParseSeverity resolves a level name back to its Severity.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range Severities() {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Severities returns all defined levels in ascending order.
func Severities() []Severity {
	return []Severity{SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}
}

// DefaultEventType is the bundle assigned to events created without a type.
const DefaultEventType = "past_event"

// MaxFieldLength is the storage limit for message, session id, referer and
// location. Longer values are shortened with an ellipsis.
const MaxFieldLength = 255

// ShortenString truncates s to max characters. If longer, the last kept
// character is replaced with an ellipsis, so the result is max-1 content
// characters plus the marker.
func ShortenString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// ArgumentLoader fetches all persisted arguments of an event. The storage
// layer injects one when it loads an event, so arguments stay lazy until
// first access.
type ArgumentLoader func() ([]*Argument, error)

// argsState tracks whether the in-memory argument collection reflects
// storage. The transition happens exactly once, on first access.
type argsState int

const (
	argsNotLoaded argsState = iota
	argsLoaded
)

// Event is one persisted occurrence being logged: what happened, when, by
// whom and with what severity, plus any number of named arguments.
type Event struct {
	ID            int64
	UUID          string
	Module        string
	MachineName   string
	Type          string
	SessionID     string
	Referer       string
	Location      string
	Message       string
	Severity      Severity
	Timestamp     int64
	ParentEventID sql.NullInt64
	UID           int64

	state       argsState
	args        map[string]*Argument
	argOrder    []string
	childEvents []int64
	loader      ArgumentLoader
}

// NewEvent creates an in-memory event. Module and machine name are fixed at
// creation; everything else can be set before the first save.
func NewEvent(module, machineName, message string) *Event {
	return &Event{
		Module:      module,
		MachineName: machineName,
		Message:     ShortenString(message, MaxFieldLength),
		Timestamp:   time.Now().Unix(),
		state:       argsLoaded,
		args:        make(map[string]*Argument),
	}
}

// SetMessage sets the event message, shortened to the storage limit.
func (e *Event) SetMessage(message string) *Event {
	e.Message = ShortenString(message, MaxFieldLength)
	return e
}

// SetSessionID sets the session identifier of the actor.
func (e *Event) SetSessionID(sessionID string) *Event {
	e.SessionID = ShortenString(sessionID, MaxFieldLength)
	return e
}

// SetReferer sets the referer of the request that triggered the event.
func (e *Event) SetReferer(referer string) *Event {
	e.Referer = ShortenString(referer, MaxFieldLength)
	return e
}

// SetLocation sets the URI of the request that triggered the event.
func (e *Event) SetLocation(location string) *Event {
	e.Location = ShortenString(location, MaxFieldLength)
	return e
}

// SetType sets the event type bundle.
func (e *Event) SetType(eventType string) *Event {
	e.Type = eventType
	return e
}

// SetSeverity sets the event severity.
func (e *Event) SetSeverity(severity Severity) *Event {
	e.Severity = severity
	return e
}

// SetTimestamp sets the event timestamp in seconds since the epoch.
func (e *Event) SetTimestamp(timestamp int64) *Event {
	e.Timestamp = timestamp
	return e
}

// SetUID sets the actor identifier.
func (e *Event) SetUID(uid int64) *Event {
	e.UID = uid
	return e
}

// SetParentEventID points this event at an already persisted parent.
func (e *Event) SetParentEventID(eventID int64) *Event {
	e.ParentEventID = sql.NullInt64{Int64: eventID, Valid: eventID != 0}
	return e
}

// AddArgument captures data under the given key. Capture happens eagerly, so
// mutating the input afterwards does not change what gets logged. Adding a
// key twice overwrites the earlier argument.
func (e *Event) AddArgument(key string, data any, opts value.Options) *Argument {
	if e.args == nil {
		e.args = make(map[string]*Argument)
		e.state = argsLoaded
	}

	arg := NewArgument(key, value.Capture(data, opts))
	if _, exists := e.args[key]; !exists {
		e.argOrder = append(e.argOrder, key)
	}
	e.args[key] = arg
	return arg
}

// AddArgumentArray adds one argument per map entry, keyed prefix:subkey.
func (e *Event) AddArgumentArray(prefix string, data map[string]any, opts value.Options) map[string]*Argument {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make(map[string]*Argument, len(data))
	for _, k := range keys {
		args[k] = e.AddArgument(prefix+":"+k, data[k], opts)
	}
	return args
}

// GetArgument returns the argument stored under key, or nil if there is
// none. The first access on a loaded event fetches all arguments from
// storage.
func (e *Event) GetArgument(key string) (*Argument, error) {
	if err := e.ensureArguments(); err != nil {
		return nil, err
	}
	return e.args[key], nil
}

// GetArguments returns all arguments of this event in insertion order.
func (e *Event) GetArguments() ([]*Argument, error) {
	if err := e.ensureArguments(); err != nil {
		return nil, err
	}
	args := make([]*Argument, 0, len(e.argOrder))
	for _, key := range e.argOrder {
		args = append(args, e.args[key])
	}
	return args, nil
}

// AddException captures an error under the conventional exception key.
func (e *Event) AddException(err error, opts value.Options) *Argument {
	return e.AddArgument("exception", err, opts)
}

// AddChildEvent records the id of an already saved child event. The children
// are re-pointed at this event in one batch once it has an id of its own.
func (e *Event) AddChildEvent(eventID int64) *Event {
	e.childEvents = append(e.childEvents, eventID)
	return e
}

// ChildEvents returns the pending child event ids.
func (e *Event) ChildEvents() []int64 {
	return e.childEvents
}

// SetArgumentLoader marks the argument collection as not yet loaded and
// installs the fetch callback. Called by the storage layer on load.
func (e *Event) SetArgumentLoader(loader ArgumentLoader) {
	e.loader = loader
	e.state = argsNotLoaded
	e.args = nil
	e.argOrder = nil
}

func (e *Event) ensureArguments() error {
	if e.state == argsLoaded {
		return nil
	}

	e.args = make(map[string]*Argument)
	e.argOrder = nil
	if e.loader != nil {
		args, err := e.loader()
		if err != nil {
			return fmt.Errorf("loading arguments for event %d: %w", e.ID, err)
		}
		for _, arg := range args {
			if _, exists := e.args[arg.Name]; !exists {
				e.argOrder = append(e.argOrder, arg.Name)
			}
			e.args[arg.Name] = arg
		}
	}
	e.state = argsLoaded
	return nil
}
