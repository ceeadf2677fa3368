package handler

import (
	"time"

	"entrant/internal/registration/models"
)

// RegistrationResponse is the wire form of a registration.
type RegistrationResponse struct {
	ID                 string     `json:"id"`
	SegmentID          string     `json:"segment_id"`
	Principal          string     `json:"principal"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	PaymentDeadline    *time.Time `json:"payment_deadline,omitempty"`
}

// FromRegistration converts a domain registration to its wire form.
func FromRegistration(reg *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:                 reg.ID.String(),
		SegmentID:          reg.SegmentID.String(),
		Principal:          reg.PrincipalRef.String(),
		Status:             string(reg.Status),
		CreatedAt:          reg.CreatedAt,
		PaymentConfirmedAt: reg.PaymentConfirmedAt,
		PaymentDeadline:    reg.PaymentDeadline,
	}
}

// ListResponse wraps an organizer listing.
type ListResponse struct {
	SegmentID     string                 `json:"segment_id"`
	Registrations []RegistrationResponse `json:"registrations"`
}
