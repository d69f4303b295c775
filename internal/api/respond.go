package api

import (
	"encoding/json"
	"net/http"

	"github.com/carebridge/hospital-scheduling/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the closed error-kind taxonomy onto HTTP codes.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := scheduling.KindOf(err)
	resp := ErrorResponse{Error: string(kind), Details: err.Error()}

	status := http.StatusInternalServerError
	switch kind {
	case scheduling.KindValidation:
		status = http.StatusBadRequest
	case scheduling.KindNotFound:
		status = http.StatusNotFound
	case scheduling.KindConflict:
		status = http.StatusConflict
		if id, ok := scheduling.ConflictIDOf(err); ok {
			resp.ConflictingAppointmentID = id
		}
	case scheduling.KindInvalidTransition:
		status = http.StatusConflict
	}

	writeJSON(w, status, resp)
}
