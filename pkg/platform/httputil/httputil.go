// Package httputil holds the JSON response helpers shared by handlers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "sanctum/pkg/domain-errors"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the rejection envelope. Error is the category, Code the
// machine-readable reason.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as a rejection envelope. Errors that are not domain
// errors, and internal or integrity errors, are reported without detail.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}
	status := dErrors.HTTPStatus(de.Code)
	resp := ErrorResponse{Error: string(de.Code), Code: de.Reason}
	if dErrors.Exposed(de.Code) {
		resp.Message = de.Message
		resp.Details = de.Details
	} else {
		resp.Error = string(dErrors.CodeInternal)
		resp.Code = "INTERNAL_FAULT"
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON decodes a bounded JSON body into T, writing a validation error
// response and returning false on failure.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		if logger != nil {
			logger.DebugContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body").WithReason("MALFORMED_BODY"))
		return nil, false
	}
	return &v, true
}
