package middleware

//go:generate mockgen -source=ratelimit.go -destination=mocks/ratelimit_mock.go -package=mocks RateLimiter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"showroom/internal/ratelimit/middleware/mocks"
	"showroom/internal/ratelimit/models"
	"showroom/internal/ratelimit/service/requestlimit"
	"showroom/internal/ratelimit/store/bucket"
	"showroom/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	limiter  *mocks.MockRateLimiter
	logger   *slog.Logger
	upstream atomic.Int32
	next     http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.limiter = mocks.NewMockRateLimiter(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.upstream.Store(0)
	s.next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.upstream.Add(1)
		w.WriteHeader(http.StatusOK)
	})
}

func (s *MiddlewareSuite) request(ip string, at time.Time) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, "test")
	ctx = requestcontext.WithTime(ctx, at)
	return req.WithContext(ctx)
}

func (s *MiddlewareSuite) TestAllowedRequestGetsHeaders() {
	reset := time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC)
	s.limiter.EXPECT().CheckIP(gomock.Any(), "203.0.113.1", models.ClassListing).
		Return(&models.RateLimitResult{Allowed: true, Limit: 50, Remaining: 49, ResetAt: reset}, nil)

	w := httptest.NewRecorder()
	New(s.limiter, s.logger).RateLimit(models.ClassListing)(s.next).ServeHTTP(w, s.request("203.0.113.1", time.Now()))

	s.Equal(http.StatusOK, w.Code)
	s.Equal("50", w.Header().Get("X-RateLimit-Limit"))
	s.Equal("49", w.Header().Get("X-RateLimit-Remaining"))
	s.Equal("1748772060", w.Header().Get("X-RateLimit-Reset"))
	s.Equal(int32(1), s.upstream.Load())
}

func (s *MiddlewareSuite) TestRejectedRequestEnvelope() {
	s.limiter.EXPECT().CheckIP(gomock.Any(), gomock.Any(), models.ClassListing).
		Return(&models.RateLimitResult{Allowed: false, Limit: 50, RetryAfter: 42}, nil)

	w := httptest.NewRecorder()
	New(s.limiter, s.logger).RateLimit(models.ClassListing)(s.next).ServeHTTP(w, s.request("203.0.113.1", time.Now()))

	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("42", w.Header().Get("Retry-After"))
	s.Equal(int32(0), s.upstream.Load())

	var body models.RateLimitExceededResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.False(body.Success)
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(42, body.RetryAfter)
	s.NotEmpty(body.Message)
}

func (s *MiddlewareSuite) TestLenientRejectStatus() {
	s.limiter.EXPECT().CheckIP(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.RateLimitResult{Allowed: false, Limit: 50, RetryAfter: 1}, nil)

	w := httptest.NewRecorder()
	New(s.limiter, s.logger, WithRejectStatus(http.StatusOK)).RateLimit(models.ClassListing)(s.next).
		ServeHTTP(w, s.request("203.0.113.1", time.Now()))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"success":false`)
	s.Equal(int32(0), s.upstream.Load())
}

func (s *MiddlewareSuite) TestLimiterErrorFailsOpen() {
	s.limiter.EXPECT().CheckIP(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis: i/o timeout"))

	w := httptest.NewRecorder()
	New(s.limiter, s.logger).RateLimit(models.ClassListing)(s.next).ServeHTTP(w, s.request("203.0.113.1", time.Now()))

	s.Equal(http.StatusOK, w.Code)
	s.Equal(int32(1), s.upstream.Load())
	s.Empty(w.Header().Get("X-RateLimit-Limit"))
}

// The 51st request inside a minute never reaches the handler; a request 61s
// after the burst does.
func (s *MiddlewareSuite) TestSlidingWindowEndToEnd() {
	store, err := bucket.NewInMemoryBucketStore(100)
	s.Require().NoError(err)
	svc, err := requestlimit.New(store, requestlimit.WithLogger(s.logger))
	s.Require().NoError(err)
	handler := New(svc, s.logger).RateLimit(models.ClassListing)(s.next)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := range 50 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, s.request("198.51.100.20", start.Add(time.Duration(i)*time.Second)))
		s.Require().Equal(http.StatusOK, w.Code, "request %d", i+1)
	}
	s.Equal(int32(50), s.upstream.Load())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, s.request("198.51.100.20", start.Add(55*time.Second)))
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal(int32(50), s.upstream.Load(), "rejected request made no downstream call")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, s.request("198.51.100.20", start.Add(61*time.Second)))
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int32(51), s.upstream.Load())
}
