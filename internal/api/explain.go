package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
)

type ExplainHandler struct {
	broker *broker.Broker
}

func NewExplainHandler(b *broker.Broker) *ExplainHandler {
	return &ExplainHandler{broker: b}
}

// Match returns every active member ranked against a task with the
// per-component breakdown.
// GET /api/v1/tasks/{id}/match?strategy=hybrid
func (h *ExplainHandler) Match(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	report, err := h.broker.FindBestMatch(r.Context(), id, r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"task_id":        report.Task.ID,
		"strategy_used":  report.Strategy,
		"best_match":     report.Best,
		"all_candidates": report.Candidates,
	}
	if report.NoCandidates {
		resp["no_candidates"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}
