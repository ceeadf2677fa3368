package testutil

import (
	"net/http"
	"time"

	id "entrant/pkg/domain"
	"entrant/pkg/requestcontext"
)

// WithUserID adds an authenticated user to the request context, simulating
// what the auth middleware does. Invalid IDs are silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// AsOrganizer marks the request context as carrying the organizer role.
func AsOrganizer(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithOrganizer(req.Context(), true))
}

// AtTime pins the request's evaluation time, the way the request-time
// middleware does.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
