package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"showroom/internal/listing/metrics"
	"showroom/internal/listing/models"
	"showroom/internal/listing/service/mocks"
	"showroom/internal/listing/vendor"
	dErrors "showroom/pkg/domain-errors"
	fixtures "showroom/pkg/testutil"
)

type SearchServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	vendor  *mocks.MockVendorClient
	metrics *metrics.Metrics
	sleeps  []time.Duration
}

func TestSearchServiceSuite(t *testing.T) {
	suite.Run(t, new(SearchServiceSuite))
}

func (s *SearchServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.vendor = mocks.NewMockVendorClient(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.sleeps = nil
	s.vendor.EXPECT().BreakerOpen().Return(false).AnyTimes()
}

func (s *SearchServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SearchServiceSuite) newService(mutate ...func(*Config)) *Service {
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := New(s.vendor,
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			s.sleeps = append(s.sleeps, d)
			return nil
		}),
	)
	s.Require().NoError(err)
	return svc
}

func page(ads []json.RawMessage, total int) *models.UpstreamPage {
	return &models.UpstreamPage{Ads: ads, Total: total}
}

func outage() error {
	return vendor.NewError(vendor.ErrorOutage, vendor.OperationSearch, "vendor unavailable: 503", nil)
}

func skipPolicy(c *Config) { c.FailurePolicy = PolicySkip }

func (s *SearchServiceSuite) TestNewValidatesConfig() {
	_, err := New(nil)
	s.Error(err)

	_, err = New(s.vendor, WithConfig(Config{FailurePolicy: "sometimes"}))
	s.Error(err)
}

func (s *SearchServiceSuite) TestEmptyFirstPageStopsPaging() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(page(nil, 0), nil).Times(1)

	result, err := s.newService().Search(context.Background(), models.Query{PageSize: 100})

	s.Require().NoError(err)
	s.Empty(result.Ads)
	s.NotNil(result.Ads)
	s.Equal(0, result.Total)
	s.Equal(0, result.MaxPages)
	s.Equal(1, result.PagesFetched)
}

func (s *SearchServiceSuite) TestThreeFullPagesThenEmpty() {
	gomock.InOrder(
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(page(fixtures.Ads(1, 20), 240), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 2, 20).Return(page(fixtures.Ads(21, 20), 245), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 3, 20).Return(page(fixtures.Ads(41, 20), 250), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 4, 20).Return(page(nil, 0), nil),
	)

	result, err := s.newService().Search(context.Background(), models.Query{PageNumber: 1, PageSize: 100})

	s.Require().NoError(err)
	s.Len(result.Ads, 60)
	s.Equal(string(fixtures.Ad(1)), string(result.Ads[0]))
	s.Equal(string(fixtures.Ad(60)), string(result.Ads[59]))
	s.Equal(250, result.Total)
	s.Equal(3, result.MaxPages)
	s.Equal(4, result.PagesFetched)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Searches.WithLabelValues("complete")))
}

func (s *SearchServiceSuite) TestOversizedPageIsCappedAtHundred() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), gomock.Any(), 20).
		DoAndReturn(func(_ context.Context, _ url.Values, p, size int) (*models.UpstreamPage, error) {
			return page(fixtures.Ads((p-1)*size+1, size), 5000), nil
		}).Times(5)

	result, err := s.newService().Search(context.Background(), models.Query{PageSize: 500})

	s.Require().NoError(err)
	s.Len(result.Ads, models.MaxPageSize)
	s.Equal(models.MaxPageSize, result.PageSize)
	s.Equal(50, result.MaxPages)
}

func (s *SearchServiceSuite) TestSmallPageTruncatesVendorPage() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(page(fixtures.Ads(1, 20), 33), nil).Times(1)

	result, err := s.newService().Search(context.Background(), models.Query{PageSize: 5})

	s.Require().NoError(err)
	s.Len(result.Ads, 5)
	s.Equal(7, result.MaxPages)
}

func (s *SearchServiceSuite) TestLaterClientPageStartsAtMatchingVendorPage() {
	gomock.InOrder(
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 2, 20).Return(page(fixtures.Ads(21, 20), 90), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 3, 20).Return(page(fixtures.Ads(41, 20), 90), nil),
	)

	result, err := s.newService().Search(context.Background(), models.Query{PageNumber: 2, PageSize: 30})

	s.Require().NoError(err)
	s.Len(result.Ads, 30)
	s.Equal(string(fixtures.Ad(31)), string(result.Ads[0]))
	s.Equal(string(fixtures.Ad(60)), string(result.Ads[29]))
	s.Equal(2, result.CurrentPage)
	s.Equal(3, result.MaxPages)
}

func (s *SearchServiceSuite) TestHugePageNumberRequestsPositiveVendorPage() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), gomock.Any(), 20).
		DoAndReturn(func(_ context.Context, _ url.Values, p, _ int) (*models.UpstreamPage, error) {
			s.GreaterOrEqual(p, 1)
			return page(nil, 0), nil
		}).Times(1)

	result, err := s.newService().Search(context.Background(), models.Query{PageNumber: math.MaxInt64 / 50, PageSize: 100})

	s.Require().NoError(err)
	s.Empty(result.Ads)
	s.Equal(models.MaxPageNumber, result.CurrentPage)
}

func (s *SearchServiceSuite) TestFiltersAreForwarded() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).
		DoAndReturn(func(_ context.Context, params url.Values, _, _ int) (*models.UpstreamPage, error) {
			s.Equal("Audi", params.Get("make"))
			s.Equal("2018-01-01", params.Get("firstRegistrationFrom"))
			return page(nil, 0), nil
		})

	_, err := s.newService().Search(context.Background(), models.Query{
		Filters: models.Filters{Make: "Audi", YearFrom: 2018},
	})
	s.NoError(err)
}

func (s *SearchServiceSuite) TestRetryPolicyRecoversWithLinearBackoff() {
	gomock.InOrder(
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, outage()),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, outage()),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(page(fixtures.Ads(1, 3), 3), nil),
	)

	result, err := s.newService().Search(context.Background(), models.Query{PageSize: 20})

	s.Require().NoError(err)
	s.Len(result.Ads, 3)
	s.Equal([]time.Duration{time.Second, 2 * time.Second}, s.sleeps)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.VendorRetries))
}

func (s *SearchServiceSuite) TestRetryPolicyFailsWhenPageExhaustsAttempts() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, outage()).Times(3)

	result, err := s.newService().Search(context.Background(), models.Query{PageSize: 100})

	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Searches.WithLabelValues("failed")))
}

func (s *SearchServiceSuite) TestRetryPolicyFailsOnLaterPage() {
	gomock.InOrder(
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(page(fixtures.Ads(1, 20), 100), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 2, 20).Return(nil, outage()).Times(3),
	)

	_, err := s.newService().Search(context.Background(), models.Query{PageSize: 40})

	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
}

func (s *SearchServiceSuite) TestPermanentFailureIsNotRetried() {
	badData := vendor.NewError(vendor.ErrorBadData, vendor.OperationSearch, "unrecognized search response", nil)
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, badData).Times(1)

	_, err := s.newService().Search(context.Background(), models.Query{})

	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	s.Empty(s.sleeps)
}

func (s *SearchServiceSuite) TestOpenBreakerStopsRetries() {
	ctrl := gomock.NewController(s.T())
	client := mocks.NewMockVendorClient(ctrl)
	client.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, outage()).Times(1)
	client.EXPECT().BreakerOpen().Return(true)
	svc, err := New(client, WithSleeper(func(context.Context, time.Duration) error { return nil }))
	s.Require().NoError(err)

	_, err = svc.Search(context.Background(), models.Query{})

	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
}

func (s *SearchServiceSuite) TestSkipPolicyContinuesPastFailedPage() {
	gomock.InOrder(
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).Return(nil, outage()),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 2, 20).Return(page(fixtures.Ads(21, 20), 80), nil),
		s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 3, 20).Return(page(nil, 80), nil),
	)

	result, err := s.newService(skipPolicy).Search(context.Background(), models.Query{PageSize: 100})

	s.Require().NoError(err)
	s.Len(result.Ads, 20)
	s.Equal(1, result.PagesFailed)
	s.Equal(80, result.Total)
	s.Empty(s.sleeps)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Searches.WithLabelValues("partial")))
}

func (s *SearchServiceSuite) TestSkipPolicyAllPagesFailed() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), gomock.Any(), 20).Return(nil, outage()).Times(5)

	result, err := s.newService(skipPolicy).Search(context.Background(), models.Query{PageSize: 100})

	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
}

func (s *SearchServiceSuite) TestDeadlineBoundsSearch() {
	s.vendor.EXPECT().SearchPage(gomock.Any(), gomock.Any(), 1, 20).
		DoAndReturn(func(ctx context.Context, _ url.Values, _, _ int) (*models.UpstreamPage, error) {
			<-ctx.Done()
			return nil, vendor.NewError(vendor.ErrorTimeout, vendor.OperationSearch, "request timeout", ctx.Err())
		})

	_, err := s.newService(func(c *Config) { c.Deadline = 20 * time.Millisecond }).
		Search(context.Background(), models.Query{})

	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *SearchServiceSuite) TestGetListing() {
	s.Run("invalid id makes no vendor call", func() {
		_, err := s.newService().GetListing(context.Background(), "../etc")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("vendor 404 is not_found", func() {
		s.vendor.EXPECT().GetAd(gomock.Any(), "404404").
			Return(nil, vendor.NewError(vendor.ErrorNotFound, vendor.OperationGetAd, "record not found", nil))

		_, err := s.newService().GetListing(context.Background(), "404404")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("retries transient failure", func() {
		gomock.InOrder(
			s.vendor.EXPECT().GetAd(gomock.Any(), "123").Return(nil, outage()),
			s.vendor.EXPECT().GetAd(gomock.Any(), "123").Return(fixtures.Ad(123), nil),
		)

		ad, err := s.newService().GetListing(context.Background(), "123")
		s.Require().NoError(err)
		s.JSONEq(string(fixtures.Ad(123)), string(ad))
	})
}
