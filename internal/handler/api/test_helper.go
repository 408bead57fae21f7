package api

import (
	"database/sql"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"pastlog/internal/service"
)

// testDB creates an in-memory SQLite database with the event tables.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE past_event (
			event_id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL DEFAULT '',
			module TEXT NOT NULL DEFAULT '',
			machine_name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'past_event',
			session_id TEXT NOT NULL DEFAULT '',
			referer TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			severity INTEGER NOT NULL DEFAULT 2,
			timestamp INTEGER NOT NULL DEFAULT 0,
			parent_event_id INTEGER,
			uid INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE past_event_argument (
			argument_id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			raw TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE past_event_data (
			data_id INTEGER PRIMARY KEY AUTOINCREMENT,
			argument_id INTEGER NOT NULL,
			parent_data_id INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			value TEXT NOT NULL DEFAULT '',
			serialized INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE past_event_type (
			type TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			weight INTEGER NOT NULL DEFAULT 0
		);

		INSERT INTO past_event_type (type, label, weight)
		VALUES ('past_event', 'Event', 0);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testRouter builds a chi router with the event log API routes mounted, the
// way the server wires them.
func testRouter(t *testing.T) (*chi.Mux, *service.EventService) {
	t.Helper()

	db := testDB(t)
	events := service.NewEventService(db)
	h := NewHandler(events)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.Delete("/{id}", h.DeleteEvent)
		})
		r.Route("/event-types", func(r chi.Router) {
			r.Get("/", h.ListEventTypes)
			r.Put("/{type}", h.SaveEventType)
			r.Delete("/{type}", h.DeleteEventType)
		})
	})

	return r, events
}
