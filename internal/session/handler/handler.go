package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"
	"idproof/pkg/platform/httputil"
	"idproof/pkg/requestcontext"

	"idproof/internal/session"
)

// Service defines the interface for session pipeline operations.
type Service interface {
	Create(ctx context.Context) (*session.Session, error)
	SubmitDocument(ctx context.Context, id domain.SessionID, data []byte, mediaType string) (*session.Session, error)
	ConfirmFields(ctx context.Context, id domain.SessionID, fields domain.ExtractedFields) (*session.Session, error)
	SubmitLiveCapture(ctx context.Context, id domain.SessionID, data []byte, mediaType string) (*session.Session, error)
	Result(ctx context.Context, id domain.SessionID) (*session.Session, error)
}

// Handler wires session endpoints to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a session handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.HandleCreate)
	r.Post("/sessions/{sessionID}/document", h.HandleSubmitDocument)
	r.Post("/sessions/{sessionID}/fields", h.HandleConfirmFields)
	r.Post("/sessions/{sessionID}/live-capture", h.HandleSubmitLiveCapture)
	r.Get("/sessions/{sessionID}/result", h.HandleResult)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}

// HandleCreate handles POST /sessions requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.service.Create(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "session creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromSession(sess))
}

// HandleSubmitDocument handles POST /sessions/{id}/document requests.
func (h *Handler) HandleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, err := h.service.SubmitDocument(ctx, id, req.Data(), req.ParsedMediaType())
	if err != nil {
		h.logger.WarnContext(ctx, "document submission failed",
			"request_id", requestID,
			"session_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document submitted",
		"request_id", requestID,
		"session_id", id.String(),
		"document_type", sess.DocumentType.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleConfirmFields handles POST /sessions/{id}/fields requests.
func (h *Handler) HandleConfirmFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmFieldsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, err := h.service.ConfirmFields(ctx, id, req.Fields())
	if err != nil {
		h.logger.WarnContext(ctx, "field confirmation failed",
			"request_id", requestID,
			"session_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleSubmitLiveCapture handles POST /sessions/{id}/live-capture requests.
func (h *Handler) HandleSubmitLiveCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sess, err := h.service.SubmitLiveCapture(ctx, id, req.Data(), req.ParsedMediaType())
	if err != nil {
		h.logger.WarnContext(ctx, "live capture failed",
			"request_id", requestID,
			"session_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	verified := sess.Verified != nil && *sess.Verified
	h.logger.InfoContext(ctx, "live capture processed",
		"request_id", requestID,
		"session_id", id.String(),
		"verified", verified,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(sess))
}

// HandleResult handles GET /sessions/{id}/result requests.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.service.Result(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidTransition) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "result read surfaced failure",
				"request_id", requestcontext.RequestID(ctx),
				"session_id", id.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromResult(sess))
}
