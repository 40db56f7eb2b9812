package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

type TeamHandler struct {
	broker *broker.Broker
}

func NewTeamHandler(b *broker.Broker) *TeamHandler {
	return &TeamHandler{broker: b}
}

// Balance: GET /api/v1/team/balance?timeframe=today|week|month|all
func (h *TeamHandler) Balance(w http.ResponseWriter, r *http.Request) {
	report, err := h.broker.Balance(r.Context(), r.URL.Query().Get("timeframe"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Dashboard: GET /api/v1/team/dashboard?view=overview|elements|progress|bottleneck
func (h *TeamHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.broker.Dashboard(r.Context(), r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
