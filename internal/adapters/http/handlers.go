package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"surfshop/internal/adapters/storage"
	"surfshop/internal/domain/apperr"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   apperr.Kind       `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// writeError maps an error kind to a status code. Store failures get a fixed
// message so internals never reach the client.
// POST: validation 400, not_found 404, conflict 409, transient_store 503,
// store_config and unknown 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	errors.As(err, &ae)

	switch kind := apperr.KindOf(err); kind {
	case apperr.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: kind, Message: ae.Message, Fields: ae.Fields})
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: kind, Message: ae.Message})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, errorBody{Error: kind, Message: ae.Message})
	case apperr.KindTransientStore:
		slog.Warn("store_unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: kind, Message: "datastore temporarily unavailable, try again"})
	case apperr.KindStoreConfig:
		slog.Error("store_misconfigured", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: kind, Message: "datastore misconfigured, contact the operator"})
	default:
		internalError(w, r, err)
	}
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: apperr.KindUnknown, Message: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields
// and trailing data. Failures come back as validation errors.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid request body: %s", decodeMessage(err))
	}
	if dec.More() {
		return apperr.Validation("invalid request body: trailing data")
	}
	return nil
}

func decodeMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "body too large"
	}
	return err.Error()
}

// handleHealth reports whether the record store answers.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		err := storage.Do(r.Context(), "storage.ping", func(ctx context.Context) error {
			return s.db.PingContext(ctx)
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
