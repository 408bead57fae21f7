package store

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is the subset of database/sql used by the query layer. Both *sql.DB
// and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the event log tables.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Event is one row of the past_event table.
type Event struct {
	EventID       int64
	UUID          string
	Module        string
	MachineName   string
	Type          string
	SessionID     string
	Referer       string
	Location      string
	Message       string
	Severity      int64
	Timestamp     int64
	ParentEventID sql.NullInt64
	UID           int64
}

// EventArgument is one row of the past_event_argument table.
type EventArgument struct {
	ArgumentID int64
	EventID    int64
	Name       string
	Type       string
	Raw        string
}

// EventData is one row of the past_event_data table.
type EventData struct {
	DataID       int64
	ArgumentID   int64
	ParentDataID int64
	Name         string
	Type         string
	Value        string
	Serialized   bool
}

// EventType is one row of the past_event_type table.
type EventType struct {
	Type   string
	Label  string
	Weight int64
}

const eventColumns = "event_id, uuid, module, machine_name, type, session_id, referer, location, message, severity, timestamp, parent_event_id, uid"

// CreateEventParams holds the writable fields of a new event row.
type CreateEventParams struct {
	UUID          string
	Module        string
	MachineName   string
	Type          string
	SessionID     string
	Referer       string
	Location      string
	Message       string
	Severity      int64
	Timestamp     int64
	ParentEventID sql.NullInt64
	UID           int64
}

// CreateEvent inserts a new event row and returns its id.
func (q *Queries) CreateEvent(ctx context.Context, p CreateEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO past_event (uuid, module, machine_name, type, session_id, referer, location, message, severity, timestamp, parent_event_id, uid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Module, p.MachineName, p.Type, p.SessionID, p.Referer, p.Location, p.Message, p.Severity, p.Timestamp, p.ParentEventID, p.UID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateEventParams holds the mutable fields of an existing event row.
// Module and machine name are immutable after creation and not updated.
type UpdateEventParams struct {
	EventID       int64
	Type          string
	SessionID     string
	Referer       string
	Location      string
	Message       string
	Severity      int64
	Timestamp     int64
	ParentEventID sql.NullInt64
	UID           int64
}

// UpdateEvent updates an existing event row.
func (q *Queries) UpdateEvent(ctx context.Context, p UpdateEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE past_event
		SET type = ?, session_id = ?, referer = ?, location = ?, message = ?, severity = ?, timestamp = ?, parent_event_id = ?, uid = ?
		WHERE event_id = ?`,
		p.Type, p.SessionID, p.Referer, p.Location, p.Message, p.Severity, p.Timestamp, p.ParentEventID, p.UID, p.EventID)
	return err
}

// GetEvent loads a single event row by id.
func (q *Queries) GetEvent(ctx context.Context, eventID int64) (Event, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM past_event WHERE event_id = ?", eventID)
	return scanEvent(row)
}

// EventFilter describes the predicates of an event listing. Zero fields are
// skipped.
type EventFilter struct {
	Module            string
	Severities        []int64
	MachineName       string
	MachineNamePrefix string
	MessageContains   string
	SessionID         string
	ParentEventID     sql.NullInt64
	Limit             int64
	Offset            int64
}

// ListEvents returns events matching the filter, most recent first.
func (q *Queries) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	where, args := buildEventWhere(f)
	query := "SELECT " + eventColumns + " FROM past_event" + where + " ORDER BY event_id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountEvents counts the events matching the filter.
func (q *Queries) CountEvents(ctx context.Context, f EventFilter) (int64, error) {
	where, args := buildEventWhere(f)
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM past_event"+where, args...).Scan(&count)
	return count, err
}

// ListEventIDsBefore returns the ids of all events with a timestamp strictly
// before the cutoff, for retention purging.
func (q *Queries) ListEventIDsBefore(ctx context.Context, cutoff int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT event_id FROM past_event WHERE timestamp < ?", cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetParentEvent points the given child events at their parent in one batch.
func (q *Queries) SetParentEvent(ctx context.Context, parentID int64, childIDs []int64) error {
	if len(childIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(childIDs)+1)
	args = append(args, parentID)
	for _, id := range childIDs {
		args = append(args, id)
	}
	_, err := q.db.ExecContext(ctx,
		"UPDATE past_event SET parent_event_id = ? WHERE event_id IN ("+placeholders(len(childIDs))+")",
		args...)
	return err
}

// DeleteEventRows deletes the given event rows. Argument and data rows are
// deleted separately, before the events, to keep referential integrity.
func (q *Queries) DeleteEventRows(ctx context.Context, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM past_event WHERE event_id IN ("+placeholders(len(eventIDs))+")",
		int64Args(eventIDs)...)
	return err
}

// DeleteArgumentsForEvents deletes all argument rows of the given events.
func (q *Queries) DeleteArgumentsForEvents(ctx context.Context, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM past_event_argument WHERE event_id IN ("+placeholders(len(eventIDs))+")",
		int64Args(eventIDs)...)
	return err
}

// DeleteDataForEvents deletes all data rows owned by arguments of the given
// events.
func (q *Queries) DeleteDataForEvents(ctx context.Context, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM past_event_data WHERE argument_id IN (SELECT argument_id FROM past_event_argument WHERE event_id IN ("+placeholders(len(eventIDs))+"))",
		int64Args(eventIDs)...)
	return err
}

// CreateArgumentParams holds the writable fields of a new argument row.
type CreateArgumentParams struct {
	EventID int64
	Name    string
	Type    string
	Raw     string
}

// CreateArgument inserts a new argument row and returns its id.
func (q *Queries) CreateArgument(ctx context.Context, p CreateArgumentParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO past_event_argument (event_id, name, type, raw) VALUES (?, ?, ?, ?)",
		p.EventID, p.Name, p.Type, p.Raw)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListArgumentsForEvent returns all argument rows of an event in insertion
// order.
func (q *Queries) ListArgumentsForEvent(ctx context.Context, eventID int64) ([]EventArgument, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT argument_id, event_id, name, type, raw FROM past_event_argument WHERE event_id = ? ORDER BY argument_id",
		eventID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var args []EventArgument
	for rows.Next() {
		var a EventArgument
		if err := rows.Scan(&a.ArgumentID, &a.EventID, &a.Name, &a.Type, &a.Raw); err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, rows.Err()
}

// CreateDataParams holds the writable fields of one data row.
type CreateDataParams struct {
	ParentDataID int64
	Name         string
	Type         string
	Value        string
	Serialized   bool
}

// CreateDataRows bulk-inserts the data rows of one argument.
func (q *Queries) CreateDataRows(ctx context.Context, argumentID int64, rows []CreateDataParams) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO past_event_data (argument_id, parent_data_id, name, type, value, serialized) VALUES ")
	args := make([]any, 0, len(rows)*6)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, argumentID, r.ParentDataID, r.Name, r.Type, r.Value, r.Serialized)
	}

	_, err := q.db.ExecContext(ctx, b.String(), args...)
	return err
}

// ListDataForArgument returns all data rows of an argument in insertion
// order.
func (q *Queries) ListDataForArgument(ctx context.Context, argumentID int64) ([]EventData, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT data_id, argument_id, parent_data_id, name, type, value, serialized FROM past_event_data WHERE argument_id = ? ORDER BY data_id",
		argumentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var data []EventData
	for rows.Next() {
		var d EventData
		if err := rows.Scan(&d.DataID, &d.ArgumentID, &d.ParentDataID, &d.Name, &d.Type, &d.Value, &d.Serialized); err != nil {
			return nil, err
		}
		data = append(data, d)
	}
	return data, rows.Err()
}

// UpsertEventType creates or updates an event type.
func (q *Queries) UpsertEventType(ctx context.Context, t EventType) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO past_event_type (type, label, weight) VALUES (?, ?, ?)
		ON CONFLICT(type) DO UPDATE SET label = excluded.label, weight = excluded.weight`,
		t.Type, t.Label, t.Weight)
	return err
}

// GetEventType loads one event type by id.
func (q *Queries) GetEventType(ctx context.Context, typeID string) (EventType, error) {
	var t EventType
	err := q.db.QueryRowContext(ctx,
		"SELECT type, label, weight FROM past_event_type WHERE type = ?", typeID).
		Scan(&t.Type, &t.Label, &t.Weight)
	return t, err
}

// ListEventTypes returns all event types ordered by weight, then id.
func (q *Queries) ListEventTypes(ctx context.Context) ([]EventType, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT type, label, weight FROM past_event_type ORDER BY weight, type")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var types []EventType
	for rows.Next() {
		var t EventType
		if err := rows.Scan(&t.Type, &t.Label, &t.Weight); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// DeleteEventType removes an event type.
func (q *Queries) DeleteEventType(ctx context.Context, typeID string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM past_event_type WHERE type = ?", typeID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var ev Event
	err := row.Scan(&ev.EventID, &ev.UUID, &ev.Module, &ev.MachineName, &ev.Type, &ev.SessionID,
		&ev.Referer, &ev.Location, &ev.Message, &ev.Severity, &ev.Timestamp, &ev.ParentEventID, &ev.UID)
	return ev, err
}

func buildEventWhere(f EventFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Module != "" {
		conds = append(conds, "module = ?")
		args = append(args, f.Module)
	}
	if len(f.Severities) > 0 {
		conds = append(conds, "severity IN ("+placeholders(len(f.Severities))+")")
		args = append(args, int64Args(f.Severities)...)
	}
	if f.MachineName != "" {
		conds = append(conds, "machine_name = ?")
		args = append(args, f.MachineName)
	}
	if f.MachineNamePrefix != "" {
		conds = append(conds, "machine_name LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(f.MachineNamePrefix)+"%")
	}
	if f.MessageContains != "" {
		conds = append(conds, "message LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(f.MessageContains)+"%")
	}
	if f.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.ParentEventID.Valid {
		conds = append(conds, "parent_event_id = ?")
		args = append(args, f.ParentEventID.Int64)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// escapeLike escapes LIKE wildcards in user-supplied filter values.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
