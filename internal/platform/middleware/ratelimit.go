package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"entrant/internal/platform/ratelimit"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/circuit"
	"entrant/pkg/platform/httputil"
	"entrant/pkg/requestcontext"
)

// RateLimiter limits requests per client. The primary limiter is checked
// while its circuit is closed; limiter errors open the circuit and route
// checks to the in-memory fallback until the primary recovers.
type RateLimiter struct {
	primary  ratelimit.Limiter
	fallback ratelimit.Limiter
	breaker  *circuit.Breaker
	logger   *slog.Logger
	limit    int
	window   time.Duration
	skipped  atomic.Uint64
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimit sets the allowed requests per window.
func WithLimit(limit int, window time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.limit = limit
		rl.window = window
	}
}

// NewRateLimiter builds the middleware. primary may be nil, in which case
// the in-memory fallback serves all checks. Defaults to 60 requests per
// minute.
func NewRateLimiter(primary ratelimit.Limiter, logger *slog.Logger, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		primary:  primary,
		fallback: ratelimit.NewMemory(),
		breaker:  circuit.New("ratelimit"),
		logger:   logger,
		limit:    60,
		window:   time.Minute,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Limit enforces the per-client limit. Requests are keyed by user ID when
// authenticated, falling back to client IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := requestcontext.ClientIP(ctx)
		if userID := requestcontext.UserID(ctx); !userID.IsZero() {
			key = userID.String()
		}
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		res, err := rl.check(r, key)
		if err != nil {
			// The fallback also failed; letting the request through beats
			// refusing traffic on limiter trouble.
			rl.logger.ErrorContext(ctx, "rate limit check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			if res.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// probeEvery is how many checks go straight to the fallback between
// primary probes while the circuit is open.
const probeEvery = 20

func (rl *RateLimiter) check(r *http.Request, key string) (ratelimit.Result, error) {
	ctx := r.Context()

	usePrimary := rl.primary != nil && !rl.breaker.IsOpen()
	if rl.primary != nil && !usePrimary {
		usePrimary = rl.skipped.Add(1)%probeEvery == 0
	}
	if usePrimary {
		res, err := rl.primary.Allow(ctx, key, rl.limit, rl.window)
		if err == nil {
			rl.breaker.RecordSuccess()
			return res, nil
		}
		if _, change := rl.breaker.RecordFailure(); change.Opened {
			rl.logger.ErrorContext(ctx, "rate limiter degraded to in-memory fallback",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}

	return rl.fallback.Allow(ctx, key, rl.limit, rl.window)
}
