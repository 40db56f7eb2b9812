package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/broker"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
)

// statusFor maps broker and engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, broker.ErrInvalidInput), errors.Is(err, scoring.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, broker.ErrTaskNotFound), errors.Is(err, broker.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, broker.ErrTaskNotAssignable):
		return http.StatusConflict
	case errors.Is(err, scoring.ErrNoEligibleMember):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody reads a JSON body into v. An empty body is allowed when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	badRequest(w, "invalid request body")
	return false
}
