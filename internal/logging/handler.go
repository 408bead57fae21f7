// Package logging provides a custom slog handler that mirrors log records
// into the event log. Records at WARN level and above are stored as events
// with their attributes attached as arguments.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"pastlog/internal/model"
	"pastlog/internal/service"
	"pastlog/internal/value"
)

// DefaultModule is the event module used when a record carries no "module"
// attribute.
const DefaultModule = "log"

// EventLogHandler is a slog.Handler that wraps another handler and also
// writes records at or above a threshold level to the event log.
type EventLogHandler struct {
	inner  slog.Handler
	events *service.EventService
	level  slog.Level
	attrs  []slog.Attr // attrs bound via WithAttrs
	group  string      // dotted group prefix from WithGroup
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given
// handler. Records at WARN level and above are mirrored into the event log.
func NewEventLogHandler(inner slog.Handler, events *service.EventService) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, events, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom
// minimum level for event log mirroring.
func NewEventLogHandlerWithLevel(inner slog.Handler, events *service.EventService, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:  inner,
		events: events,
		level:  level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	bound = append(bound, h.attrs...)
	for _, a := range attrs {
		bound = append(bound, slog.Attr{Key: h.prefixed(a.Key), Value: a.Value})
	}
	return &EventLogHandler{
		inner:  h.inner.WithAttrs(attrs),
		events: h.events,
		level:  h.level,
		attrs:  bound,
		group:  h.group,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	group := h.group
	if name != "" {
		if group == "" {
			group = name
		} else {
			group = group + "." + name
		}
	}
	return &EventLogHandler{
		inner:  h.inner.WithGroup(name),
		events: h.events,
		level:  h.level,
		attrs:  h.attrs,
		group:  group,
	}
}

// writeToEventLog stores a log record as an event. A background context is
// used so the event is written even when the request context is cancelled.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	module := h.extractModule(r)
	machineName := machineNameForLevel(r.Level)

	ev := h.events.CreateEvent(ctx, module, machineName, r.Message)
	ev.SetSeverity(severityForLevel(r.Level))
	ev.SetTimestamp(r.Time.Unix())

	for _, a := range h.attrs {
		if a.Key == "module" {
			continue
		}
		ev.AddArgument(a.Key, attrValue(a.Value), value.Options{})
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" {
			return true
		}
		ev.AddArgument(h.prefixed(a.Key), attrValue(a.Value), value.Options{})
		return true
	})

	_ = h.events.Save(context.WithoutCancel(ctx), ev)
}

// extractModule looks for a "module" attribute in the bound attrs and the
// record itself. Record attrs win.
func (h *EventLogHandler) extractModule(r slog.Record) string {
	module := DefaultModule
	for _, a := range h.attrs {
		if a.Key == "module" {
			module = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" {
			module = a.Value.String()
			return false
		}
		return true
	})
	return module
}

func (h *EventLogHandler) prefixed(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

// severityForLevel converts a slog.Level to an event severity.
func severityForLevel(level slog.Level) model.Severity {
	switch {
	case level >= slog.LevelError:
		return model.SeverityError
	case level >= slog.LevelWarn:
		return model.SeverityWarning
	case level >= slog.LevelInfo:
		return model.SeverityInfo
	default:
		return model.SeverityDebug
	}
}

// machineNameForLevel derives the event machine name from the record level,
// e.g. "log_warn" or "log_error".
func machineNameForLevel(level slog.Level) string {
	name := strings.ToLower(level.String())
	if i := strings.IndexAny(name, "+-"); i >= 0 {
		name = name[:i]
	}
	return "log_" + name
}

// attrValue unwraps a slog.Value into a plain Go value for argument capture.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format("2006-01-02T15:04:05Z07:00")
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindGroup:
		m := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	default:
		return v.Any()
	}
}
