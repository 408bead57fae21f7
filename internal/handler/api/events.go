package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"pastlog/internal/model"
	"pastlog/internal/service"
	"pastlog/internal/util"
	"pastlog/internal/value"
)

// EventsPerPage is the default page size for event listings.
const EventsPerPage = 25

// MaxEventsPerPage caps the per_page query parameter.
const MaxEventsPerPage = 100

// EventResponse represents an event in API responses.
type EventResponse struct {
	ID            int64                       `json:"id"`
	UUID          string                      `json:"uuid"`
	Module        string                      `json:"module"`
	MachineName   string                      `json:"machine_name"`
	Type          string                      `json:"type"`
	SessionID     string                      `json:"session_id,omitempty"`
	Referer       string                      `json:"referer,omitempty"`
	Location      string                      `json:"location,omitempty"`
	Message       string                      `json:"message"`
	Severity      int64                       `json:"severity"`
	SeverityName  string                      `json:"severity_name"`
	Timestamp     int64                       `json:"timestamp"`
	ParentEventID *int64                      `json:"parent_event_id,omitempty"`
	UID           int64                       `json:"uid,omitempty"`
	Arguments     map[string]ArgumentResponse `json:"arguments,omitempty"`
}

// ArgumentResponse represents one event argument in API responses.
type ArgumentResponse struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CreateEventRequest represents the request body for creating an event.
type CreateEventRequest struct {
	Module        string         `json:"module"`
	MachineName   string         `json:"machine_name"`
	Message       string         `json:"message"`
	Severity      string         `json:"severity,omitempty"`
	Type          string         `json:"type,omitempty"`
	Location      string         `json:"location,omitempty"`
	Referer       string         `json:"referer,omitempty"`
	ParentEventID *int64         `json:"parent_event_id,omitempty"`
	Arguments     map[string]any `json:"arguments,omitempty"`
}

// eventToResponse converts a model.Event to EventResponse. Arguments are
// included when includeArgs is true.
func eventToResponse(ev *model.Event, includeArgs bool) (EventResponse, error) {
	resp := EventResponse{
		ID:           ev.ID,
		UUID:         ev.UUID,
		Module:       ev.Module,
		MachineName:  ev.MachineName,
		Type:         ev.Type,
		SessionID:    ev.SessionID,
		Referer:      ev.Referer,
		Location:     ev.Location,
		Message:      ev.Message,
		Severity:     int64(ev.Severity),
		SeverityName: ev.Severity.String(),
		Timestamp:    ev.Timestamp,
		UID:          ev.UID,
	}
	resp.ParentEventID = util.Int64PtrFromNull(ev.ParentEventID)

	if includeArgs {
		args, err := ev.GetArguments()
		if err != nil {
			return resp, err
		}
		if len(args) > 0 {
			resp.Arguments = make(map[string]ArgumentResponse, len(args))
			for _, arg := range args {
				data, dataErr := arg.GetData()
				if dataErr != nil {
					return resp, dataErr
				}
				resp.Arguments[arg.GetKey()] = ArgumentResponse{
					Type: arg.GetType(),
					Data: data,
				}
			}
		}
	}

	return resp, nil
}

// ListEvents handles GET /api/v1/events.
// Supported filters: module, machine_name, machine_name_prefix, severity
// (comma-separated names or numbers), session_id, parent_event_id and q
// (message substring).
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := service.Filter{
		Module:            query.Get("module"),
		MachineName:       query.Get("machine_name"),
		MachineNamePrefix: query.Get("machine_name_prefix"),
		MessageContains:   query.Get("q"),
		SessionID:         query.Get("session_id"),
		ParentEventID:     util.ParseNullInt64Positive(query.Get("parent_event_id")),
	}

	if raw := query.Get("severity"); raw != "" {
		severities, err := parseSeverities(raw)
		if err != nil {
			WriteBadRequest(w, "Invalid severity filter", map[string]string{"severity": err.Error()})
			return
		}
		filter.Severities = severities
	}

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, EventsPerPage, MaxEventsPerPage)

	events, total, err := h.events.List(r.Context(), filter, int64(page), int64(perPage))
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}

	responses := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp, convErr := eventToResponse(ev, false)
		if convErr != nil {
			WriteInternalError(w, "Failed to load event arguments")
			return
		}
		responses = append(responses, resp)
	}

	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}

	WriteSuccess(w, responses, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	})
}

// GetEvent handles GET /api/v1/events/{id}. The response includes the
// event's arguments with their reconstructed data.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	ev, err := h.events.Get(r.Context(), id)
	if err != nil {
		WriteInternalError(w, "Failed to retrieve event")
		return
	}
	if ev == nil {
		WriteNotFound(w, "Event not found")
		return
	}

	resp, err := eventToResponse(ev, true)
	if err != nil {
		WriteInternalError(w, "Failed to load event arguments")
		return
	}
	WriteSuccess(w, resp, nil)
}

// CreateEvent handles POST /api/v1/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	fieldErrors := make(map[string]string)
	if req.Module == "" {
		fieldErrors["module"] = "Module is required"
	}
	if req.MachineName == "" {
		fieldErrors["machine_name"] = "Machine name is required"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	ev := h.events.CreateEvent(r.Context(), req.Module, req.MachineName, req.Message)
	if req.Severity != "" {
		severity, err := parseSeverity(req.Severity)
		if err != nil {
			WriteValidationError(w, map[string]string{"severity": err.Error()})
			return
		}
		ev.SetSeverity(severity)
	}
	if req.Type != "" {
		ev.SetType(req.Type)
	}
	if req.Location != "" {
		ev.SetLocation(req.Location)
	}
	if req.Referer != "" {
		ev.SetReferer(req.Referer)
	}
	if parent := util.NullInt64FromPtr(req.ParentEventID); parent.Valid {
		ev.SetParentEventID(parent.Int64)
	}
	for key, data := range req.Arguments {
		ev.AddArgument(key, data, value.Options{})
	}

	if err := h.events.Save(r.Context(), ev); err != nil {
		WriteInternalError(w, "Failed to save event")
		return
	}

	resp, err := eventToResponse(ev, true)
	if err != nil {
		WriteInternalError(w, "Failed to load event arguments")
		return
	}
	WriteCreated(w, resp)
}

// DeleteEvent handles DELETE /api/v1/events/{id}. The event's arguments and
// data rows are removed with it.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseEventID(r)
	if err != nil {
		WriteBadRequest(w, "Invalid event ID", nil)
		return
	}

	ev, err := h.events.Get(r.Context(), id)
	if err != nil {
		WriteInternalError(w, "Failed to retrieve event")
		return
	}
	if ev == nil {
		WriteNotFound(w, "Event not found")
		return
	}

	if err := h.events.Delete(r.Context(), id); err != nil {
		WriteInternalError(w, "Failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseEventID extracts the {id} URL parameter as a positive int64.
func parseEventID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseSeverities parses a comma-separated list of severity names or
// numeric values.
func parseSeverities(raw string) ([]model.Severity, error) {
	parts := strings.Split(raw, ",")
	severities := make([]model.Severity, 0, len(parts))
	for _, part := range parts {
		severity, err := parseSeverity(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		severities = append(severities, severity)
	}
	return severities, nil
}

// parseSeverity accepts a severity name like "warning" or its numeric value.
func parseSeverity(s string) (model.Severity, error) {
	if n, err := strconv.Atoi(s); err == nil {
		severity := model.Severity(n)
		if !severity.Valid() {
			return 0, fmt.Errorf("unknown severity %q", s)
		}
		return severity, nil
	}
	return model.ParseSeverity(s)
}
