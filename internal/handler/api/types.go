package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pastlog/internal/model"
)

// EventTypeResponse represents an event type in API responses.
type EventTypeResponse struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Weight int64  `json:"weight"`
}

// SaveEventTypeRequest represents the request body for creating or updating
// an event type.
type SaveEventTypeRequest struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Weight int64  `json:"weight"`
}

// ListEventTypes handles GET /api/v1/event-types.
func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.events.EventTypes(r.Context())
	if err != nil {
		WriteInternalError(w, "Failed to list event types")
		return
	}

	responses := make([]EventTypeResponse, 0, len(types))
	for _, t := range types {
		responses = append(responses, EventTypeResponse{
			Type:   t.Type,
			Label:  t.Label,
			Weight: t.Weight,
		})
	}
	WriteSuccess(w, responses, nil)
}

// SaveEventType handles PUT /api/v1/event-types/{type}.
func (h *Handler) SaveEventType(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "type")

	var req SaveEventTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if req.Label == "" {
		WriteValidationError(w, map[string]string{"label": "Label is required"})
		return
	}

	t := model.EventType{
		Type:   typeID,
		Label:  req.Label,
		Weight: req.Weight,
	}
	if err := h.events.SaveEventType(r.Context(), t); err != nil {
		WriteInternalError(w, "Failed to save event type")
		return
	}

	WriteSuccess(w, EventTypeResponse(t), nil)
}

// DeleteEventType handles DELETE /api/v1/event-types/{type}. The default
// type cannot be removed.
func (h *Handler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "type")

	if typeID == model.DefaultEventType {
		WriteBadRequest(w, "The default event type cannot be deleted", nil)
		return
	}

	if err := h.events.DeleteEventType(r.Context(), typeID); err != nil {
		WriteInternalError(w, "Failed to delete event type")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
