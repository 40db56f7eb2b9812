package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

type TasksHandler struct {
	broker *broker.Broker
}

func NewTasksHandler(b *broker.Broker) *TasksHandler {
	return &TasksHandler{broker: b}
}

type CreateTaskRequest struct {
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Priority       string             `json:"priority,omitempty"`
	RequiredSkills []string           `json:"required_skills,omitempty"`
	Element        string             `json:"element,omitempty"`
	Affinity       map[string]float64 `json:"affinity,omitempty"`
}

type UpdateStatusRequest struct {
	Status   string  `json:"status"`
	Progress *int    `json:"progress,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// AssignRequest names the member to assign. Omit member_id to let the
// hybrid ranking pick.
type AssignRequest struct {
	MemberID string `json:"member_id,omitempty"`
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	task, err := h.broker.CreateTask(r.Context(), broker.TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		RequiredSkills: req.RequiredSkills,
		Element:        req.Element,
		Affinity:       profileFromRequest(req.Affinity),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *store.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		ts := store.TaskStatus(s)
		if !ts.Valid() {
			badRequest(w, "invalid status")
			return
		}
		status = &ts
	}
	tasks, err := h.broker.ListTasks(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	task, err := h.broker.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TasksHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.Status == "" {
		badRequest(w, "status required")
		return
	}

	task, err := h.broker.UpdateTaskStatus(r.Context(), id, broker.StatusUpdate{
		Status:   store.TaskStatus(req.Status),
		Progress: req.Progress,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TasksHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	events, err := h.broker.TaskEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *TasksHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	var req AssignRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	var memberID *uuid.UUID
	if req.MemberID != "" {
		mid, err := uuid.Parse(req.MemberID)
		if err != nil {
			badRequest(w, "invalid member_id")
			return
		}
		memberID = &mid
	}

	assignment, err := h.broker.Assign(r.Context(), id, memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
