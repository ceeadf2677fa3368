// Package audit defines the lifecycle audit trail: every registration
// decision and transition is recorded for organizer-facing history and
// compliance review.
package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	// ActorID is the authenticated user who performed the action: the
	// registrant, the team leader, or the organizer toggling pause.
	ActorID string `json:"actor_id"`
	// Subject is the entity acted upon (registration ref or segment id).
	Subject  string `json:"subject"`
	Action   Action `json:"action"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
	// Client is the parsed User-Agent summary of the caller.
	Client string `json:"client,omitempty"`
}

// Action names the auditable lifecycle actions.
type Action string

const (
	ActionRegistrationCreated   Action = "registration_created"
	ActionRegistrationConfirmed Action = "registration_confirmed"
	ActionRegistrationCancelled Action = "registration_cancelled"
	ActionRegistrationExpired   Action = "registration_expired"
	ActionRegistrationRefused   Action = "registration_refused"
	ActionPauseToggled          Action = "pause_toggled"
)
