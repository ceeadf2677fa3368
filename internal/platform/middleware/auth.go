package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"entrant/internal/jwttoken"
	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/httputil"
	"entrant/pkg/requestcontext"
)

// TokenValidator validates bearer tokens into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated user ID (and organizer flag) into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithOrganizer(ctx, claims.Role == jwttoken.RoleOrganizer)
			ctx = requestcontext.WithGateway(ctx, claims.Role == jwttoken.RoleGateway)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrganizer gates organizer-only endpoints. Must run after RequireAuth.
func RequireOrganizer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.IsOrganizer(ctx) {
				logger.WarnContext(ctx, "forbidden - organizer role required",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "organizer role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGateway gates the payment callback. Only the payment gateway's
// service token or an organizer may confirm payments; participant tokens
// cannot settle their own registrations. Must run after RequireAuth.
func RequireGateway(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.IsGateway(ctx) && !requestcontext.IsOrganizer(ctx) {
				logger.WarnContext(ctx, "forbidden - gateway credential required",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "payment gateway credential required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
