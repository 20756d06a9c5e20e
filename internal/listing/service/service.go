// Package service aggregates vendor search pages into one client page.
//
// A client page of up to 100 records is assembled from fixed-size vendor
// pages. Paging stops when the client page is full, a vendor page comes back
// empty, or MaxPageFetches pages have been attempted.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"showroom/internal/listing/metrics"
	"showroom/internal/listing/models"
	"showroom/internal/listing/tracer"
	"showroom/internal/listing/vendor"
	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/requestcontext"
)

// VendorClient is the upstream search API.
type VendorClient interface {
	SearchPage(ctx context.Context, filters url.Values, page, size int) (*models.UpstreamPage, error)
	GetAd(ctx context.Context, id string) (json.RawMessage, error)
	BreakerOpen() bool
}

// Sleeper waits between retries. It returns early with ctx.Err().
type Sleeper func(ctx context.Context, d time.Duration) error

var adIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Service is safe for concurrent use.
type Service struct {
	vendor  VendorClient
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	sleep   Sleeper
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(fn Sleeper) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

func New(client VendorClient, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("vendor client is required")
	}
	s := &Service{
		vendor: client,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Search assembles one client page. It fails with CodeUpstream only when no
// vendor page could be read; a readable empty page is a successful, empty
// result.
func (s *Service) Search(ctx context.Context, q models.Query) (result *models.SearchResult, err error) {
	q = q.Normalize(s.cfg.DefaultPageSize)
	limit := q.Limit()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, tracer.SpanSearch,
		tracer.Int(tracer.AttrPageSize, q.PageSize),
		tracer.String(tracer.AttrFailurePolicy, string(s.cfg.FailurePolicy)),
	)
	defer func() { span.End(err) }()

	vendorSize := s.cfg.VendorPageSize
	offset := q.Offset()
	page := offset/vendorSize + 1
	skip := offset % vendorSize
	params := q.Filters.Params()

	ads := make([]json.RawMessage, 0, limit)
	total := 0
	attempted, fetched, failed := 0, 0, 0
	var lastErr error

	for attempted < s.cfg.MaxPageFetches && len(ads) < limit {
		attempted++
		up, fetchErr := s.fetchPage(ctx, params, page)
		if fetchErr != nil {
			failed++
			lastErr = fetchErr
			if s.cfg.FailurePolicy == PolicyRetry || ctx.Err() != nil {
				break
			}
			s.logger.WarnContext(ctx, "vendor page skipped",
				"page", page,
				"error", fetchErr,
				"request_id", requestcontext.RequestID(ctx),
			)
			span.AddEvent(tracer.EventPageSkipped, tracer.Int(tracer.AttrPage, page))
			page++
			continue
		}

		fetched++
		if up.Total > 0 {
			total = up.Total
		}
		if len(up.Ads) == 0 {
			break
		}

		records := up.Ads
		if skip > 0 {
			n := min(skip, len(records))
			records = records[n:]
			skip -= n
		}
		ads = append(ads, records[:min(len(records), limit-len(ads))]...)
		page++
	}

	span.SetAttributes(
		tracer.Int(tracer.AttrPagesFetched, fetched),
		tracer.Int(tracer.AttrPagesFailed, failed),
	)

	strictFailure := s.cfg.FailurePolicy == PolicyRetry && lastErr != nil
	if fetched == 0 || strictFailure {
		s.recordSearch("failed", attempted)
		s.logger.ErrorContext(ctx, "listing search failed",
			"pages_attempted", attempted,
			"pages_failed", failed,
			"error", lastErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, searchError(ctx, lastErr)
	}

	outcome := "complete"
	if failed > 0 {
		outcome = "partial"
	}
	s.recordSearch(outcome, attempted)

	if total == 0 {
		total = len(ads)
	}
	return &models.SearchResult{
		Ads:          ads,
		Total:        total,
		CurrentPage:  q.PageNumber,
		PageSize:     q.PageSize,
		MaxPages:     (total + q.PageSize - 1) / q.PageSize,
		PagesFetched: fetched,
		PagesFailed:  failed,
	}, nil
}

// GetListing returns one vendor ad unchanged.
func (s *Service) GetListing(ctx context.Context, id string) (ad json.RawMessage, err error) {
	if !adIDPattern.MatchString(id) {
		return nil, dErrors.New(dErrors.CodeValidation, "listing id is invalid")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, tracer.SpanGetListing, tracer.String("ad.id", id))
	defer func() { span.End(err) }()

	err = s.withRetry(ctx, func() error {
		var callErr error
		ad, callErr = s.vendor.GetAd(ctx, id)
		return callErr
	})
	if err != nil {
		switch vendor.CategoryOf(err) {
		case vendor.ErrorNotFound:
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "listing not found")
		case vendor.ErrorTimeout:
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "listing lookup timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "listing service unavailable")
	}
	return ad, nil
}

func (s *Service) fetchPage(ctx context.Context, params url.Values, page int) (*models.UpstreamPage, error) {
	var up *models.UpstreamPage
	err := s.withRetry(ctx, func() error {
		var callErr error
		up, callErr = s.vendor.SearchPage(ctx, params, page, s.cfg.VendorPageSize)
		return callErr
	})
	return up, err
}

// withRetry runs call until it succeeds, fails permanently, or the attempt
// budget is spent. The n-th retry waits n*BackoffBase. An open breaker stops
// retrying at once.
func (s *Service) withRetry(ctx context.Context, call func() error) error {
	maxAttempts := s.cfg.attemptsPerPage()
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || !vendor.IsRetryable(err) || s.vendor.BreakerOpen() || ctx.Err() != nil {
			return err
		}

		delay := time.Duration(attempt) * s.cfg.BackoffBase
		s.logger.InfoContext(ctx, "retrying vendor call",
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"category", vendor.CategoryOf(err),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementRetries()
		}
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

func (s *Service) recordSearch(outcome string, attempted int) {
	if s.metrics != nil {
		s.metrics.RecordSearch(outcome, attempted)
	}
}

func searchError(ctx context.Context, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(cause, dErrors.CodeTimeout, "listing search timed out")
	}
	if cause == nil {
		cause = errors.New("no vendor page could be read")
	}
	return dErrors.Wrap(cause, dErrors.CodeUpstream, "listing service unavailable")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
