//go:build integration

package bucket

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"showroom/pkg/requestcontext"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	client *redis.Client
	store  *RedisBucketStore
	start  time.Time
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.Require().NoError(s.client.Ping(context.Background()).Err())
}

func (s *RedisBucketStoreSuite) TearDownSuite() {
	_ = s.client.Close()
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.store = NewRedis(s.client, "test:"+uuid.NewString()+":")
	s.start = time.Now().Truncate(time.Second)
}

func (s *RedisBucketStoreSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.start.Add(offset))
}

func (s *RedisBucketStoreSuite) TestSlidingWindow() {
	for i := range 50 {
		res, err := s.store.Allow(s.at(time.Duration(i)*time.Millisecond), "ip:a:listing", 50, time.Minute)
		s.Require().NoError(err)
		s.Require().True(res.Allowed)
	}

	res, err := s.store.Allow(s.at(time.Second), "ip:a:listing", 50, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(0, res.Remaining)
	s.Equal(59, res.RetryAfter)

	res, err = s.store.Allow(s.at(61*time.Second), "ip:a:listing", 50, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	count, err := s.store.GetCurrentCount(s.at(61*time.Second), "ip:a:listing", time.Minute)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RedisBucketStoreSuite) TestReset() {
	_, err := s.store.Allow(s.at(0), "k", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(context.Background(), "k"))

	res, err := s.store.Allow(s.at(0), "k", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisBucketStoreSuite) TestRejectsBadArguments() {
	_, err := s.store.Allow(s.at(0), "", 1, time.Minute)
	s.Error(err)
	_, err = s.store.Allow(s.at(0), "k", 0, time.Minute)
	s.Error(err)
}
