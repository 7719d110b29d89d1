package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sanctum/internal/pipeline"
	"sanctum/internal/session"
	"sanctum/internal/session/device"
	dErrors "sanctum/pkg/domain-errors"
	"sanctum/pkg/platform/httputil"
	"sanctum/pkg/requestcontext"
)

// HeaderPrincipalID carries the principal asserted by the upstream identity
// provider when a session is opened.
const HeaderPrincipalID = "X-Principal-ID"

type SessionService interface {
	CreateSession(ctx context.Context, principalID string, attrs device.Attributes) (*session.Session, string, error)
	ValidateToken(ctx context.Context, token string, attrs device.Attributes) (*session.ValidationResult, error)
	ListSessions(ctx context.Context, principalID string) ([]*session.Session, error)
	RevokeSession(ctx context.Context, principalID, sessionID string) error
	RequiresReauth(s *session.Session) bool
	IdleTimeout() time.Duration
}

// SessionHandler serves session lifecycle endpoints. Listing and revoking
// authenticate with the session token directly rather than the full pipeline:
// they touch no classified data.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) Register(r chi.Router) {
	r.Post("/v1/sessions", h.handleCreate)
	r.Get("/v1/sessions", h.handleList)
	r.Delete("/v1/sessions/{id}", h.handleRevoke)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := strings.TrimSpace(r.Header.Get(HeaderPrincipalID))
	if principalID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "principal not asserted").WithReason("PRINCIPAL_REQUIRED"))
		return
	}

	sess, token, err := h.sessions.CreateSession(ctx, principalID, device.FromRequest(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create session",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:      sess.ID,
		Token:          token,
		ExpiresIn:      int(h.sessions.IdleTimeout().Seconds()),
		SecurityScore:  sess.SecurityScore,
		RequiresReauth: h.sessions.RequiresReauth(sess),
		DeviceName:     sess.DeviceName,
	})
}

func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListSessions(ctx, current.PrincipalID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sessions",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", current.PrincipalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := ListSessionsResponse{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			SessionID:     s.ID,
			DeviceName:    s.DeviceName,
			Location:      s.Location,
			CreatedAt:     s.CreatedAt,
			LastActivity:  s.LastActivity,
			SecurityScore: s.SecurityScore,
			Current:       s.ID == current.ID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.sessions.RevokeSession(ctx, current.PrincipalID, chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authenticate validates the bearer session token, writing a 401 on failure.
func (h *SessionHandler) authenticate(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	ctx := r.Context()
	token, ok := pipeline.BearerToken(r)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session token required").WithReason(session.ReasonInvalidToken))
		return nil, false
	}
	result, err := h.sessions.ValidateToken(ctx, token, device.FromRequest(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "session validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	if !result.Valid {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session rejected").WithReason(result.Reason))
		return nil, false
	}
	return result.Session, true
}
