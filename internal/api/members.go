package api

import (
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

type MembersHandler struct {
	broker *broker.Broker
}

func NewMembersHandler(b *broker.Broker) *MembersHandler {
	return &MembersHandler{broker: b}
}

// Elements are accepted as a loose map so callers may key by name or glyph.
type CreateMemberRequest struct {
	Name     string             `json:"name"`
	Skills   []string           `json:"skills,omitempty"`
	Elements map[string]float64 `json:"elements,omitempty"`
}

type UpdateMemberRequest struct {
	Name     *string            `json:"name,omitempty"`
	Skills   []string           `json:"skills,omitempty"`
	Elements map[string]float64 `json:"elements,omitempty"`
	Status   *string            `json:"status,omitempty"`
}

func profileFromRequest(m map[string]float64) *scoring.Profile {
	if m == nil {
		return nil
	}
	p := scoring.ProfileFromMap(m)
	return &p
}

func (h *MembersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	m, err := h.broker.RegisterMember(r.Context(), broker.MemberInput{
		Name:     req.Name,
		Skills:   req.Skills,
		Elements: profileFromRequest(req.Elements),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *store.MemberStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ms := store.MemberStatus(s)
		if ms != store.MemberActive && ms != store.MemberInactive {
			badRequest(w, "invalid status")
			return
		}
		status = &ms
	}
	members, err := h.broker.ListMembers(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	m, err := h.broker.GetMember(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MembersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	patch := broker.MemberPatch{
		Name:     req.Name,
		Skills:   req.Skills,
		Elements: profileFromRequest(req.Elements),
	}
	if req.Status != nil {
		s := store.MemberStatus(*req.Status)
		patch.Status = &s
	}
	m, err := h.broker.UpdateMember(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Tasks lists the member's tasks, most urgent first.
func (h *MembersHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	var status *store.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ts := store.TaskStatus(s)
		if !ts.Valid() {
			badRequest(w, "invalid status")
			return
		}
		status = &ts
	}
	tasks, err := h.broker.MemberTasks(r.Context(), id, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *MembersHandler) Partners(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	partners, err := h.broker.RecommendPartners(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member_id":       id,
		"recommendations": partners,
	})
}

func (h *MembersHandler) TeamFit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "member")
	if !ok {
		return
	}
	fit, err := h.broker.TeamFit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fit)
}
