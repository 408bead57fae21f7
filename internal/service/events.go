// Package service provides the business logic of the event log: saving and
// loading events with their arguments, listing with filters, cascading
// deletion and retention purging.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pastlog/internal/cache"
	"pastlog/internal/model"
	"pastlog/internal/store"
	"pastlog/internal/value"
)

// eventTypesCacheKey is the cache key for the event type list.
const eventTypesCacheKey = "event_types"

// ActorProvider resolves the current actor as event defaults. Implementations
// typically read from the request context.
type ActorProvider interface {
	ActorUID(ctx context.Context) int64
	ActorSessionID(ctx context.Context) string
}

// EventService persists and loads events together with their arguments and
// decomposed data.
type EventService struct {
	queries  *store.Queries
	actors   ActorProvider
	logger   *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewEventService creates a new EventService on top of the given database.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
		logger:  slog.Default(),
	}
}

// SetActorProvider installs the lookup for actor and session defaults.
func (s *EventService) SetActorProvider(p ActorProvider) {
	s.actors = p
}

// SetLogger replaces the logger used for non-fatal persistence failures.
// The event log bridge installs a plain logger here so a failing event
// write cannot log back into itself.
func (s *EventService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetCache installs a cache for the event type list.
func (s *EventService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// CreateEvent creates an in-memory event with actor and session defaults
// applied. The event is not persisted until Save.
func (s *EventService) CreateEvent(ctx context.Context, module, machineName, message string) *model.Event {
	ev := model.NewEvent(module, machineName, message)
	if s.actors != nil {
		ev.SetUID(s.actors.ActorUID(ctx))
		ev.SetSessionID(s.actors.ActorSessionID(ctx))
	}
	return ev
}

// Save persists the event and everything attached to it. The event row write
// is authoritative: its failure is returned to the caller. Argument and data
// row writes are best effort; a failed argument insert is logged, its data
// rows are skipped so no orphans remain, and the remaining arguments are
// still processed.
func (s *EventService) Save(ctx context.Context, ev *model.Event) error {
	applyDefaults(ev)

	if ev.ID == 0 {
		id, err := s.queries.CreateEvent(ctx, createEventParams(ev))
		if err != nil {
			return fmt.Errorf("saving event %s/%s: %w", ev.Module, ev.MachineName, err)
		}
		ev.ID = id
	} else {
		if err := s.queries.UpdateEvent(ctx, updateEventParams(ev)); err != nil {
			return fmt.Errorf("updating event %d: %w", ev.ID, err)
		}
	}

	args, err := ev.GetArguments()
	if err != nil {
		return fmt.Errorf("collecting arguments for event %d: %w", ev.ID, err)
	}
	for _, arg := range args {
		s.saveArgument(ctx, ev, arg)
	}

	if childIDs := ev.ChildEvents(); len(childIDs) > 0 {
		if err := s.queries.SetParentEvent(ctx, ev.ID, childIDs); err != nil {
			return fmt.Errorf("linking child events of event %d: %w", ev.ID, err)
		}
	}

	return nil
}

// saveArgument writes one argument and its data rows. Failures are logged
// and swallowed: a bad argument must never roll back the event or its
// siblings.
func (s *EventService) saveArgument(ctx context.Context, ev *model.Event, arg *model.Argument) {
	if arg.ID != 0 {
		// Already persisted; re-saving the event must not duplicate it.
		return
	}

	arg.EnsureType()
	id, err := s.queries.CreateArgument(ctx, store.CreateArgumentParams{
		EventID: ev.ID,
		Name:    arg.Name,
		Type:    arg.Type,
		Raw:     arg.Raw,
	})
	if err != nil {
		s.logger.Error("saving event argument",
			"event_id", ev.ID, "argument", arg.Name, "error", err)
		return
	}
	arg.ID = id
	arg.EventID = ev.ID

	orig, ok := arg.Original()
	if !ok || orig.IsNull() {
		return
	}
	rows := value.Rows(orig)
	if len(rows) == 0 {
		return
	}
	if err := s.queries.CreateDataRows(ctx, id, dataParams(rows)); err != nil {
		s.logger.Error("saving event argument data",
			"event_id", ev.ID, "argument", arg.Name, "error", err)
	}
}

// Get loads an event by id, wiring the lazy argument loader. Returns nil
// without error when the event does not exist.
func (s *EventService) Get(ctx context.Context, eventID int64) (*model.Event, error) {
	row, err := s.queries.GetEvent(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading event %d: %w", eventID, err)
	}
	return s.eventFromRow(row), nil
}

// Filter describes the predicates of an event listing.
type Filter struct {
	Module            string
	Severities        []model.Severity
	MachineName       string
	MachineNamePrefix string
	MessageContains   string
	SessionID         string
	ParentEventID     sql.NullInt64
}

// List returns one page of matching events, most recent first, along with
// the total match count.
func (s *EventService) List(ctx context.Context, f Filter, page, perPage int64) ([]*model.Event, int64, error) {
	if page < 1 {
		page = 1
	}
	storeFilter := store.EventFilter{
		Module:            f.Module,
		MachineName:       f.MachineName,
		MachineNamePrefix: f.MachineNamePrefix,
		MessageContains:   f.MessageContains,
		SessionID:         f.SessionID,
		ParentEventID:     f.ParentEventID,
	}
	for _, sev := range f.Severities {
		storeFilter.Severities = append(storeFilter.Severities, int64(sev))
	}

	total, err := s.queries.CountEvents(ctx, storeFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	storeFilter.Limit = perPage
	storeFilter.Offset = (page - 1) * perPage
	rows, err := s.queries.ListEvents(ctx, storeFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("listing events: %w", err)
	}

	events := make([]*model.Event, len(rows))
	for i, row := range rows {
		events[i] = s.eventFromRow(row)
	}
	return events, total, nil
}

// Delete removes the given events together with all their argument and data
// rows. Deletion is set-based and ordered data, then arguments, then events.
func (s *EventService) Delete(ctx context.Context, eventIDs ...int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	if err := s.queries.DeleteDataForEvents(ctx, eventIDs); err != nil {
		return fmt.Errorf("deleting event data rows: %w", err)
	}
	if err := s.queries.DeleteArgumentsForEvents(ctx, eventIDs); err != nil {
		return fmt.Errorf("deleting event arguments: %w", err)
	}
	if err := s.queries.DeleteEventRows(ctx, eventIDs); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	return nil
}

// DeleteOldEvents removes all events older than the given duration and
// returns how many were deleted.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	ids, err := s.queries.ListEventIDsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("finding expired events: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, ids...); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// EventTypes returns all event types, cached when a cache is installed.
func (s *EventService) EventTypes(ctx context.Context) ([]model.EventType, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, eventTypesCacheKey); err == nil {
			var types []model.EventType
			if err := json.Unmarshal(raw, &types); err == nil {
				return types, nil
			}
		}
	}

	rows, err := s.queries.ListEventTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing event types: %w", err)
	}
	types := make([]model.EventType, len(rows))
	for i, row := range rows {
		types[i] = model.EventType{Type: row.Type, Label: row.Label, Weight: row.Weight}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(types); err == nil {
			_ = s.cache.Set(ctx, eventTypesCacheKey, raw, s.cacheTTL)
		}
	}
	return types, nil
}

// SaveEventType creates or updates an event type and invalidates the cache.
func (s *EventService) SaveEventType(ctx context.Context, t model.EventType) error {
	if t.Type == "" {
		return errors.New("event type id is required")
	}
	if err := s.queries.UpsertEventType(ctx, store.EventType{Type: t.Type, Label: t.Label, Weight: t.Weight}); err != nil {
		return fmt.Errorf("saving event type %q: %w", t.Type, err)
	}
	s.invalidateTypeCache(ctx)
	return nil
}

// DeleteEventType removes an event type. The default bundle cannot be
// deleted.
func (s *EventService) DeleteEventType(ctx context.Context, typeID string) error {
	if typeID == model.DefaultEventType {
		return fmt.Errorf("event type %q is locked", typeID)
	}
	if err := s.queries.DeleteEventType(ctx, typeID); err != nil {
		return fmt.Errorf("deleting event type %q: %w", typeID, err)
	}
	s.invalidateTypeCache(ctx)
	return nil
}

func (s *EventService) invalidateTypeCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, eventTypesCacheKey)
	}
}

// eventFromRow converts a stored row into a domain event with a lazy
// argument loader attached. The loader uses a background context because it
// may run after the loading request has finished.
func (s *EventService) eventFromRow(row store.Event) *model.Event {
	ev := &model.Event{
		ID:            row.EventID,
		UUID:          row.UUID,
		Module:        row.Module,
		MachineName:   row.MachineName,
		Type:          row.Type,
		SessionID:     row.SessionID,
		Referer:       row.Referer,
		Location:      row.Location,
		Message:       row.Message,
		Severity:      model.Severity(row.Severity),
		Timestamp:     row.Timestamp,
		ParentEventID: row.ParentEventID,
		UID:           row.UID,
	}
	ev.SetArgumentLoader(func() ([]*model.Argument, error) {
		return s.loadArguments(context.Background(), ev.ID)
	})
	return ev
}

func (s *EventService) loadArguments(ctx context.Context, eventID int64) ([]*model.Argument, error) {
	rows, err := s.queries.ListArgumentsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	args := make([]*model.Argument, 0, len(rows))
	for _, row := range rows {
		dataRows, err := s.queries.ListDataForArgument(ctx, row.ArgumentID)
		if err != nil {
			return nil, err
		}
		valueRows := make([]value.Row, len(dataRows))
		for i, d := range dataRows {
			valueRows[i] = value.Row{
				ParentID:   d.ParentDataID,
				Name:       d.Name,
				Type:       d.Type,
				Value:      d.Value,
				Serialized: d.Serialized,
			}
		}
		args = append(args, model.LoadedArgument(row.ArgumentID, row.EventID, row.Name, row.Type, row.Raw, valueRows))
	}
	return args, nil
}

// applyDefaults fills the documented defaults on first save.
func applyDefaults(ev *model.Event) {
	if ev.UUID == "" {
		ev.UUID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	if !ev.Severity.Valid() {
		ev.Severity = model.DefaultSeverity
	}
	if ev.Type == "" {
		ev.Type = model.DefaultEventType
	}
}

func createEventParams(ev *model.Event) store.CreateEventParams {
	return store.CreateEventParams{
		UUID:          ev.UUID,
		Module:        ev.Module,
		MachineName:   ev.MachineName,
		Type:          ev.Type,
		SessionID:     ev.SessionID,
		Referer:       ev.Referer,
		Location:      ev.Location,
		Message:       ev.Message,
		Severity:      int64(ev.Severity),
		Timestamp:     ev.Timestamp,
		ParentEventID: ev.ParentEventID,
		UID:           ev.UID,
	}
}

func updateEventParams(ev *model.Event) store.UpdateEventParams {
	return store.UpdateEventParams{
		EventID:       ev.ID,
		Type:          ev.Type,
		SessionID:     ev.SessionID,
		Referer:       ev.Referer,
		Location:      ev.Location,
		Message:       ev.Message,
		Severity:      int64(ev.Severity),
		Timestamp:     ev.Timestamp,
		ParentEventID: ev.ParentEventID,
		UID:           ev.UID,
	}
}

func dataParams(rows []value.Row) []store.CreateDataParams {
	params := make([]store.CreateDataParams, len(rows))
	for i, r := range rows {
		params[i] = store.CreateDataParams{
			ParentDataID: r.ParentID,
			Name:         r.Name,
			Type:         r.Type,
			Value:        r.Value,
			Serialized:   r.Serialized,
		}
	}
	return params
}
