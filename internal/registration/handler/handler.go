package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"entrant/internal/registration/models"
	"entrant/internal/registration/service"
	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/httputil"
	"entrant/pkg/requestcontext"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	CreateRegistration(ctx context.Context, req service.CreateRequest) (*models.Registration, error)
	ConfirmPayment(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	CancelRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	ListBySegment(ctx context.Context, segmentID id.SegmentID) ([]models.Registration, error)
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registration handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts participant-facing registration endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations", h.HandleCreate)
	r.Delete("/registrations/{registrationID}", h.HandleCancel)
	r.Get("/registrations/{registrationID}", h.HandleGet)
}

// RegisterGateway mounts the payment callback. The router gates it on the
// gateway credential so a participant cannot confirm their own payment.
func (h *Handler) RegisterGateway(r chi.Router) {
	r.Post("/registrations/{registrationID}/confirm-payment", h.HandleConfirmPayment)
}

// RegisterOrganizer mounts organizer-only endpoints. The router enforces
// the organizer role before these are reached.
func (h *Handler) RegisterOrganizer(r chi.Router) {
	r.Get("/segments/{segmentID}/registrations", h.HandleListBySegment)
}

// HandleCreate handles POST /registrations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	segmentID, err := req.ParsedSegmentID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	principal, err := req.ParsedPrincipal()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reg, err := h.service.CreateRegistration(ctx, service.CreateRequest{
		SegmentID:    segmentID,
		Principal:    principal,
		SubmitterID:  userID,
		SuppliedCode: req.Code,
	})
	if err != nil {
		h.logger.InfoContext(ctx, "registration attempt failed",
			"request_id", requestID,
			"segment_id", req.SegmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestID,
		"registration_id", reg.ID,
		"status", reg.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRegistration(reg))
}

// HandleConfirmPayment handles POST /registrations/{id}/confirm-payment.
// Called by the payment gateway adapter once a charge settles.
func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid registration id"))
		return
	}

	reg, err := h.service.ConfirmPayment(ctx, regID)
	if err != nil {
		h.logger.ErrorContext(ctx, "payment confirmation failed",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", regID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistration(reg))
}

// HandleCancel handles DELETE /registrations/{id}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid registration id"))
		return
	}

	reg, err := h.service.CancelRegistration(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistration(reg))
}

// HandleGet handles GET /registrations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid registration id"))
		return
	}

	reg, err := h.service.GetRegistration(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRegistration(reg))
}

// HandleListBySegment handles GET /segments/{id}/registrations.
func (h *Handler) HandleListBySegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	segmentID, err := id.ParseSegmentID(chi.URLParam(r, "segmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid segment id"))
		return
	}

	regs, err := h.service.ListBySegment(ctx, segmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{
		SegmentID:     segmentID.String(),
		Registrations: make([]RegistrationResponse, 0, len(regs)),
	}
	for i := range regs {
		resp.Registrations = append(resp.Registrations, FromRegistration(&regs[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
