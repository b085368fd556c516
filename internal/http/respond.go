package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/ecofinds/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ErrorResponse struct {
	Error   string               `json:"error"`
	Code    string               `json:"code,omitempty"`
	Details string               `json:"details,omitempty"`
	Items   []domain.InvalidItem `json:"items,omitempty"`
	// Committed lists purchase ids that were written before a transaction failure.
	Committed []string `json:"committed,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// statusFor maps an error kind to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusConflict, "validation_failed"
	case errors.Is(err, domain.ErrTransaction):
		return http.StatusBadGateway, "transaction_failed"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, domain.ErrOwnership):
		return http.StatusForbidden, "ownership"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusUnprocessableEntity, "unavailable"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusUnprocessableEntity, "invalid_state"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal_error"
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		resp.Error = "some items are no longer available"
		resp.Items = vErr.Items
	}
	var txErr *domain.TransactionError
	if errors.As(err, &txErr) {
		resp.Details = "product " + txErr.ProductID
		for _, p := range txErr.Committed {
			resp.Committed = append(resp.Committed, p.ID)
		}
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}
	respondJSON(w, status, resp)
}

// decodeJSON reads a JSON body into dst. An empty body is reported as io.EOF.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func badJSON(w http.ResponseWriter, err error) {
	if errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body is required")
		return
	}
	respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
}

func queryLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.InvalidInputf("limit must be a non-negative integer")
	}
	return n, nil
}
