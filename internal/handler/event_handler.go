package handler

import (
	"net/http"
	"strconv"

	"unlock-relay/internal/service"
	"unlock-relay/pkg/response"
)

type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{
		events: events,
	}
}

// List returns the most recent audit events. Admin only; guarded by the
// router's admin middleware.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	response.Success(w, h.events.List(limit))
}
