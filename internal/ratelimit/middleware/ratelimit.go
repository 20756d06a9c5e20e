package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"showroom/internal/ratelimit/models"
	"showroom/pkg/platform/httputil"
	"showroom/pkg/platform/privacy"
	"showroom/pkg/requestcontext"
)

// RateLimiter decides admission for one client request.
type RateLimiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter      RateLimiter
	logger       *slog.Logger
	rejectStatus int
}

// Option configures the middleware.
type Option func(*Middleware)

// WithRejectStatus sets the status written for rejected requests.
func WithRejectStatus(status int) Option {
	return func(m *Middleware) {
		if status >= 200 && status < 600 {
			m.rejectStatus = status
		}
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter:      limiter,
		logger:       logger,
		rejectStatus: http.StatusTooManyRequests,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit guards a route group with the window of the given class.
// Limiter errors let the request through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.CheckIP(ctx, ip, class)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check IP rate limit",
					"error", err,
					"ip_prefix", privacy.AnonymizeIP(ip),
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.writeRateLimitExceeded(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func (m *Middleware) writeRateLimitExceeded(w http.ResponseWriter, r *http.Request, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, m.rejectStatus, &models.RateLimitExceededResponse{
		Success:    false,
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
		Timestamp:  requestcontext.Now(r.Context()).UTC(),
	})
}
