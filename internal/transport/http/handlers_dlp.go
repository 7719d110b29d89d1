package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sanctum/internal/dlp"
	"sanctum/internal/policy"
	"sanctum/pkg/platform/httputil"
)

type Scanner interface {
	Scan(content string) *dlp.Result
}

// DLPHandler scans submitted content and returns the redacted form. Content
// over the pipeline's risk ceiling never reaches it.
type DLPHandler struct {
	scanner Scanner
	guard   Guard
	logger  *slog.Logger
}

func NewDLPHandler(scanner Scanner, guard Guard, logger *slog.Logger) *DLPHandler {
	return &DLPHandler{scanner: scanner, guard: guard, logger: logger}
}

func (h *DLPHandler) Register(r chi.Router) {
	r.With(h.guard.Guard(policy.OperationWrite)).Post("/v1/dlp/scan", h.handleScan)
}

func (h *DLPHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	if _, ok := securityContext(w, r, h.logger); !ok {
		return
	}
	req, ok := httputil.DecodeJSON[ScanRequest](w, r, h.logger)
	if !ok {
		return
	}

	result := h.scanner.Scan(req.Content)
	httputil.WriteJSON(w, http.StatusOK, ScanResponse{Result: result, Counts: result.CountsByType()})
}
