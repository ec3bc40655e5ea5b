package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/soseska/internal/lending"
	"github.com/erazemk/soseska/internal/metrics"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonMessage writes a JSON body with a single message field.
func jsonMessage(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"message": message})
}

// internalError logs err and writes a generic 500 response.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)
	jsonError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the named path value as a positive ID.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt returns the named query parameter as an int, def if it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// lendingStatus maps a lending rejection kind to an HTTP status code.
func lendingStatus(err error) int {
	switch {
	case errors.Is(err, lending.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lending.ErrInvalidState), errors.Is(err, lending.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lending.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, lending.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// lendingOutcome names err for the transitions counter.
func lendingOutcome(err error) string {
	switch lending.Kind(err) {
	case nil:
		if err == nil {
			return metrics.OutcomeSuccess
		}
		return metrics.OutcomeError
	case lending.ErrNotFound:
		return "not_found"
	case lending.ErrInvalidState:
		return "invalid_state"
	case lending.ErrNotAuthorized:
		return "not_authorized"
	case lending.ErrConflict:
		return "conflict"
	case lending.ErrValidation:
		return "validation"
	}
	return metrics.OutcomeError
}

// lendingError writes the response for a failed lending operation.
func lendingError(w http.ResponseWriter, r *http.Request, err error) {
	status := lendingStatus(err)
	if status == http.StatusInternalServerError {
		internalError(w, r, "lending operation failed", err)
		return
	}
	jsonError(w, status, err.Error())
}
