package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	listinghandler "showroom/internal/listing/handler"
	listingmetrics "showroom/internal/listing/metrics"
	listingservice "showroom/internal/listing/service"
	"showroom/internal/listing/tracer"
	"showroom/internal/listing/vendor"
	mailhandler "showroom/internal/mail/handler"
	mailmetrics "showroom/internal/mail/metrics"
	"showroom/internal/mail/sender"
	mailservice "showroom/internal/mail/service"
	"showroom/internal/mail/storage"
	"showroom/internal/platform/config"
	"showroom/internal/platform/health"
	"showroom/internal/platform/redis"
	rlconfig "showroom/internal/ratelimit/config"
	rlmetrics "showroom/internal/ratelimit/metrics"
	rlmiddleware "showroom/internal/ratelimit/middleware"
	"showroom/internal/ratelimit/models"
	"showroom/internal/ratelimit/service/requestlimit"
	"showroom/internal/ratelimit/store/allowlist"
	"showroom/internal/ratelimit/store/bucket"
	"showroom/internal/ratelimit/workers/cleanup"
	"showroom/pkg/platform/circuit"
	"showroom/pkg/platform/middleware/metadata"
	"showroom/pkg/platform/middleware/request"
	"showroom/pkg/platform/validation"
)

// worker is a background loop that runs until its context is cancelled.
type worker func(ctx context.Context) error

type application struct {
	router  http.Handler
	workers []worker
	closers []func() error
}

func (a *application) close() {
	for _, c := range a.closers {
		c() //nolint:errcheck // best-effort cleanup on shutdown
	}
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.New(cfg.Server.Environment)

	redisClient, err := redis.New(ctx, cfg.Redis, redis.NewPoolMetrics(reg))
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		app.closers = append(app.closers, redisClient.Close)
		healthHandler.RegisterCheck("redis", redisClient.Health)
		app.workers = append(app.workers, func(ctx context.Context) error {
			redisClient.ReportPoolStats(ctx, 15*time.Second, log)
			return nil
		})
	}

	limiter, err := buildRateLimiter(cfg, log, reg, redisClient, app)
	if err != nil {
		return nil, err
	}

	vendorClient, listings, err := buildListing(cfg, log, reg)
	if err != nil {
		return nil, err
	}
	healthHandler.RegisterSoftCheck("vendor", func(context.Context) error {
		if vendorClient.BreakerOpen() {
			return errors.New("circuit open")
		}
		return nil
	})

	var mails *mailhandler.Handler
	if cfg.Mail.Enabled() {
		svc, err := buildMail(ctx, cfg, log, reg)
		if err != nil {
			return nil, err
		}
		mails = mailhandler.New(svc, log)
	} else {
		log.Warn("mail relay disabled: no recipient configured")
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	limits := rlmiddleware.New(limiter, log, rlmiddleware.WithRejectStatus(limiter.RejectStatus()))

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(metadata.NewMiddleware(trusted).Handler)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics(reg)))
	r.Use(request.CORS(cfg.Server.AllowedOrigins))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.Server.RequestTimeout))
		r.Use(limits.RateLimit(models.ClassListing))
		listinghandler.New(listings, log).Register(r)
	})
	if mails != nil {
		r.Group(func(r chi.Router) {
			r.Use(request.BodyLimit(validation.MaxMultipartSize))
			r.Use(request.Timeout(cfg.Server.RequestTimeout))
			r.Use(limits.RateLimit(models.ClassMail))
			mails.Register(r)
		})
	}

	app.router = r
	return app, nil
}

// buildRateLimiter picks the redis store when available, otherwise the
// in-memory LRU store with its cleanup worker.
func buildRateLimiter(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer, redisClient *redis.Client, app *application) (*requestlimit.Service, error) {
	rlCfg := rlconfig.DefaultConfig()
	rlCfg.IPLimits[models.ClassListing] = rlconfig.Limit{RequestsPerWindow: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	rlCfg.IPLimits[models.ClassMail] = rlconfig.Limit{RequestsPerWindow: cfg.RateLimit.MailRequests, Window: cfg.RateLimit.MailWindow}
	rlCfg.RejectStatus = cfg.RateLimit.RejectStatus
	rlCfg.MaxKeys = cfg.RateLimit.MaxKeys
	rlCfg.CleanupInterval = cfg.RateLimit.CleanupInterval

	m := rlmetrics.New(reg)
	var buckets requestlimit.BucketStore
	if redisClient != nil {
		buckets = bucket.NewRedis(redisClient.Client, cfg.Redis.KeyPrefix)
		log.Info("rate limiter using redis store")
	} else {
		mem, err := bucket.NewInMemoryBucketStore(rlCfg.MaxKeys)
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
		sweeper := cleanup.New(mem,
			cleanup.WithLogger(log),
			cleanup.WithInterval(rlCfg.CleanupInterval),
			cleanup.WithMetrics(m),
		)
		app.workers = append(app.workers, sweeper.Start)
		buckets = mem
	}

	allowed, err := metadata.ParseTrustedProxies(cfg.RateLimit.Allowlist)
	if err != nil {
		return nil, fmt.Errorf("rate limit allowlist: %w", err)
	}
	return requestlimit.New(buckets,
		requestlimit.WithConfig(rlCfg),
		requestlimit.WithLogger(log),
		requestlimit.WithMetrics(m),
		requestlimit.WithAllowlist(allowlist.NewStatic(allowed)),
	)
}

func buildListing(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*vendor.Client, *listingservice.Service, error) {
	m := listingmetrics.New(reg)
	trace := tracer.NewOTel()

	client, err := vendor.New(vendor.Config{
		BaseURL:  cfg.Vendor.BaseURL,
		Username: cfg.Vendor.Username,
		Password: cfg.Vendor.Password,
		Accept:   cfg.Vendor.Accept,
		Timeout:  cfg.Vendor.Timeout,
		RPS:      cfg.Vendor.RPS,
		Burst:    cfg.Vendor.Burst,
	},
		vendor.WithBreaker(circuit.New("listing-vendor")),
		vendor.WithTracer(trace),
		vendor.WithLogger(log),
		vendor.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("vendor client: %w", err)
	}

	svc, err := listingservice.New(client,
		listingservice.WithConfig(listingservice.Config{
			DefaultPageSize: cfg.Listing.DefaultPageSize,
			VendorPageSize:  cfg.Listing.VendorPageSize,
			MaxPageFetches:  cfg.Listing.MaxPageFetches,
			FailurePolicy:   listingservice.FailurePolicy(cfg.Listing.FailurePolicy),
			MaxAttempts:     cfg.Listing.MaxAttempts,
			BackoffBase:     cfg.Listing.BackoffBase,
			Deadline:        cfg.Listing.Deadline,
		}),
		listingservice.WithLogger(log),
		listingservice.WithMetrics(m),
		listingservice.WithTracer(trace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("listing service: %w", err)
	}
	return client, svc, nil
}

func buildMail(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*mailservice.Service, error) {
	smtp, err := sender.NewSMTP(sender.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		From:      cfg.SMTP.From,
		FromName:  cfg.SMTP.FromName,
		TLSPolicy: sender.TLSPolicy(cfg.SMTP.TLSPolicy),
		Timeout:   cfg.SMTP.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp sender: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Mail.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("mail time zone: %w", err)
	}
	opts := []mailservice.Option{
		mailservice.WithConfig(mailservice.Config{
			Recipient:     cfg.Mail.Recipient,
			SubjectPrefix: cfg.Mail.SubjectPrefix,
			KeyPrefix:     cfg.Mail.KeyPrefix,
			Location:      loc,
		}),
		mailservice.WithLogger(log),
		mailservice.WithMetrics(mailmetrics.New(reg)),
	}

	if cfg.Storage.Enabled() {
		store, err := storage.NewS3(ctx, storage.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Endpoint:        cfg.Storage.Endpoint,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		opts = append(opts, mailservice.WithUploader(store))
	} else {
		log.Warn("object storage disabled: trade-in submissions with images will be rejected")
	}

	return mailservice.New(smtp, opts...)
}
