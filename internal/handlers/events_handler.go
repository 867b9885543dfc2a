package handlers

import (
	"net/http"

	"rental-backend/internal/notify"
)

type EventsHandler struct {
	Hub *notify.Hub
}

func NewEventsHandler(hub *notify.Hub) *EventsHandler {
	return &EventsHandler{Hub: hub}
}

// Stream upgrades to a websocket that receives booking and payment events visible to the caller
// GET /ws/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.Hub.Serve(w, r, p)
}
