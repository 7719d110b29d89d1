package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sanctum/internal/pipeline"
	"sanctum/internal/policy"
	"sanctum/internal/vault"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/httputil"
	"sanctum/pkg/requestcontext"
)

type RecordService interface {
	Put(ctx context.Context, id, dataType string, subject policy.Subject, plaintext []byte) (*vault.StoredRecord, error)
	Get(ctx context.Context, id string, subject policy.Subject) (*vault.Opened, error)
	Delete(ctx context.Context, id string, subject policy.Subject) error
}

// Guard wraps a handler in the request pipeline for one operation.
type Guard interface {
	Guard(op policy.Operation) func(http.Handler) http.Handler
}

// RecordHandler serves classified records. Every route runs behind the
// pipeline; the handler only sees requests that cleared every stage.
type RecordHandler struct {
	records RecordService
	guard   Guard
	logger  *slog.Logger
}

func NewRecordHandler(records RecordService, guard Guard, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, guard: guard, logger: logger}
}

func (h *RecordHandler) Register(r chi.Router) {
	r.With(h.guard.Guard(policy.OperationWrite)).Put("/v1/records/{id}", h.handlePut)
	r.With(h.guard.Guard(policy.OperationRead)).Get("/v1/records/{id}", h.handleGet)
	r.With(h.guard.Guard(policy.OperationDelete)).Delete("/v1/records/{id}", h.handleDelete)
}

func (h *RecordHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, ok := securityContext(w, r, h.logger)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[PutRecordRequest](w, r, h.logger)
	if !ok {
		return
	}

	rec, err := h.records.Put(ctx, chi.URLParam(r, "id"), sc.DataType, subjectOf(sc), []byte(req.Content))
	if err != nil {
		h.fail(ctx, w, "failed to store record", err)
		return
	}

	meta := RecordMetadata{
		ID:         rec.ID,
		DataType:   rec.DataType,
		OwnerID:    rec.OwnerID,
		Algorithm:  string(rec.Record.Metadata.Algorithm),
		KeyVersion: rec.Record.Metadata.KeyVersion,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if !rec.RetentionDeadline.IsZero() {
		deadline := rec.RetentionDeadline
		meta.RetentionDeadline = &deadline
	}
	httputil.WriteJSON(w, http.StatusOK, meta)
}

func (h *RecordHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, ok := securityContext(w, r, h.logger)
	if !ok {
		return
	}

	opened, err := h.records.Get(ctx, chi.URLParam(r, "id"), subjectOf(sc))
	if err != nil {
		h.fail(ctx, w, "failed to read record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RecordResponse{
		ID:        opened.ID,
		DataType:  opened.DataType,
		OwnerID:   opened.OwnerID,
		Content:   string(opened.Plaintext),
		CreatedAt: opened.CreatedAt,
		UpdatedAt: opened.UpdatedAt,
	})
}

func (h *RecordHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, ok := securityContext(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.records.Delete(ctx, chi.URLParam(r, "id"), subjectOf(sc)); err != nil {
		h.fail(ctx, w, "failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if de, ok := dErrors.As(err); ok && dErrors.Exposed(de.Code) {
		h.logger.InfoContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"code", string(de.Code),
			"reason", de.Reason,
		)
	} else {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func subjectOf(sc *pipeline.SecurityContext) policy.Subject {
	return policy.Subject{
		PrincipalID:       sc.PrincipalID,
		ResourceOwnerID:   sc.ResourceOwnerID,
		TwoFactorVerified: sc.TwoFactorVerified,
	}
}

// securityContext fetches the pipeline's context. Its absence means a route
// was registered without the guard.
func securityContext(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*pipeline.SecurityContext, bool) {
	sc, ok := pipeline.FromContext(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "security context missing from guarded route", "path", r.URL.Path)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "security context missing"))
		return nil, false
	}
	return sc, true
}
