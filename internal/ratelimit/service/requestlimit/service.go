// Package requestlimit provides per-IP sliding window rate limiting.
//
// Usage:
//
//	svc, _ := requestlimit.New(bucketStore, requestlimit.WithConfig(cfg))
//	result, _ := svc.CheckIP(ctx, clientIP, models.ClassListing)
//	if !result.Allowed {
//	    // reject before any upstream call
//	}
package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"showroom/internal/ratelimit/config"
	"showroom/internal/ratelimit/metrics"
	"showroom/internal/ratelimit/models"
	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/privacy"
	"showroom/pkg/requestcontext"
)

// BucketStore checks rate limits using sliding window counters.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// AllowlistStore checks if an identifier should bypass rate limiting.
type AllowlistStore interface {
	IsAllowlisted(ctx context.Context, identifier string) (bool, error)
}

// Service enforces per-IP limits per endpoint class.
// Safe for concurrent use by HTTP middleware.
type Service struct {
	buckets   BucketStore
	allowlist AllowlistStore
	logger    *slog.Logger
	config    *config.Config
	metrics   *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAllowlist exempts allowlisted identifiers from the limit.
func WithAllowlist(allowlist AllowlistStore) Option {
	return func(s *Service) {
		s.allowlist = allowlist
	}
}

// New creates a rate limiting service over the given window store.
func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		logger:  slog.Default(),
		config:  config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP admits or rejects one request from ip for the endpoint class.
// A class without a configured limit is denied.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)
	limit, window, ok := s.config.GetIPLimit(class)
	if !ok {
		s.logger.WarnContext(ctx, "rate_limit_config_missing",
			"ip_prefix", privacy.AnonymizeIP(ip),
			"endpoint_class", class,
		)
		return &models.RateLimitResult{
			Allowed:    false,
			ResetAt:    now,
			RetryAfter: 60,
		}, nil
	}

	allowlisted := false
	if s.allowlist != nil {
		var err error
		allowlisted, err = s.allowlist.IsAllowlisted(ctx, ip)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check allowlist")
		}
	}
	if allowlisted {
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   now.Add(window),
		}, nil
	}

	key := models.NewIPKey(ip, class)
	result, err := s.buckets.Allow(ctx, key.String(), limit, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreErrors()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(string(class), result.Allowed)
	}
	if !result.Allowed {
		s.logger.InfoContext(ctx, "ip_rate_limit_exceeded",
			"ip_prefix", privacy.AnonymizeIP(ip),
			"endpoint_class", class,
			"limit", limit,
			"window_seconds", int(window.Seconds()),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return result, nil
}

// Allow reports whether a listing request from key may proceed. Store
// failures admit the request.
func (s *Service) Allow(ctx context.Context, key string) bool {
	result, err := s.CheckIP(ctx, key, models.ClassListing)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limit check failed, allowing request", "error", err)
		return true
	}
	return result.Allowed
}

// RejectStatus is the HTTP status for rejected requests.
func (s *Service) RejectStatus() int {
	return s.config.RejectStatus
}
