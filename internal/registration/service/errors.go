package service

import (
	"errors"

	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/sentinel"
)

// translateGate maps capacity-gate sentinels to domain errors. Returns
// nil for errors the gate does not own.
func translateGate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrPaused):
		return dErrors.New(dErrors.CodeRegistrationPaused, "registration is paused for this segment")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeAlreadyRegistered, "already registered for this segment")
	case errors.Is(err, sentinel.ErrCapacity):
		return dErrors.New(dErrors.CodeCapacityExhausted, "segment is full")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "segment not found")
	}
	return nil
}

// translateLifecycle maps store sentinels on lifecycle transitions.
func translateLifecycle(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidTransition, "registration cannot transition from its current status")
	}
	return dErrors.Wrap(dErrors.CodeInternal, "failed to "+op, err)
}
