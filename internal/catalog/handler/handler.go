package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/httputil"
	"entrant/pkg/requestcontext"
)

// Service defines the catalog operations exposed over HTTP.
type Service interface {
	TogglePause(ctx context.Context, segmentID id.SegmentID) (bool, error)
}

// Handler wires organizer-facing segment endpoints to the catalog service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a catalog handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints on the router. The router is expected
// to have already enforced organizer authorization.
func (h *Handler) Register(r chi.Router) {
	r.Patch("/segments/{segmentID}/toggle-pause", h.HandleTogglePause)
}

// HandleTogglePause handles PATCH /segments/{segmentID}/toggle-pause.
func (h *Handler) HandleTogglePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	segmentID, err := id.ParseSegmentID(chi.URLParam(r, "segmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid segment id"))
		return
	}

	paused, err := h.service.TogglePause(ctx, segmentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "pause toggle failed",
			"request_id", requestID,
			"segment_id", segmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TogglePauseResponse{
		SegmentID: segmentID.String(),
		Paused:    paused,
	})
}

// TogglePauseResponse reports the pause state after a toggle.
type TogglePauseResponse struct {
	SegmentID string `json:"segment_id"`
	Paused    bool   `json:"paused"`
}
