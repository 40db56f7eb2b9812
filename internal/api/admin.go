package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

type AdminHandler struct {
	broker *broker.Broker
}

func NewAdminHandler(b *broker.Broker) *AdminHandler {
	return &AdminHandler{broker: b}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.broker.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Drain marks a member inactive so no new work is routed to them.
func (h *AdminHandler) Drain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	m, err := h.broker.DrainMember(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "drained", "member": m})
}
