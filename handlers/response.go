package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"project-tracker/logging"
	"project-tracker/services"
)

type errorBody struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// errorWriter translates service errors into HTTP responses. Internal error
// detail is only exposed in development mode.
type errorWriter struct {
	dev bool
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Validation failed", Fields: verr.Fields})
	case errors.As(err, &maxErr), errors.Is(err, services.ErrFileTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, services.ErrFileTypeNotAllowed):
		writeMessage(w, http.StatusBadRequest, "File type not allowed")
	case errors.Is(err, services.ErrOwnerRemoval):
		writeMessage(w, http.StatusBadRequest, "Cannot remove project owner")
	case errors.Is(err, services.ErrBadArguments):
		writeMessage(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, services.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, services.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrAlreadyExists):
		writeMessage(w, http.StatusConflict, "Already exists")
	case errors.Is(err, services.ErrStorageUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, "Attachment storage unavailable")
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %s %s failed: %v", r.Method, r.URL.Path, err)
		body := errorBody{Message: "Internal server error"}
		if e.dev {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}
