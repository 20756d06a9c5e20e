// Package config assembles server configuration from defaults, an optional
// YAML file at CONFIG_PATH and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Vendor    Vendor    `yaml:"vendor"`
	Listing   Listing   `yaml:"listing"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Redis     Redis     `yaml:"redis"`
	SMTP      SMTP      `yaml:"smtp"`
	Mail      Mail      `yaml:"mail"`
	Storage   Storage   `yaml:"storage"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Port            int           `yaml:"port"`
	Environment     string        `yaml:"environment"`
	LogLevel        string        `yaml:"log_level"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address for Port.
func (s Server) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// Vendor configures the listing search API client.
type Vendor struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Accept   string        `yaml:"accept"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
	Burst    int           `yaml:"burst"`
}

// Listing configures paging and failure handling for searches.
type Listing struct {
	DefaultPageSize int           `yaml:"default_page_size"`
	VendorPageSize  int           `yaml:"vendor_page_size"`
	MaxPageFetches  int           `yaml:"max_page_fetches"`
	FailurePolicy   string        `yaml:"failure_policy"`
	MaxAttempts     int           `yaml:"max_attempts"`
	BackoffBase     time.Duration `yaml:"backoff_base"`
	Deadline        time.Duration `yaml:"deadline"`
}

// RateLimit configures the per-IP sliding windows.
type RateLimit struct {
	Requests        int           `yaml:"requests"`
	Window          time.Duration `yaml:"window"`
	MailRequests    int           `yaml:"mail_requests"`
	MailWindow      time.Duration `yaml:"mail_window"`
	MaxKeys         int           `yaml:"max_keys"`
	RejectStatus    int           `yaml:"reject_status"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Allowlist       []string      `yaml:"allowlist"`
}

// Redis enables the shared rate limit store when URL is set.
type Redis struct {
	URL          string        `yaml:"url"`
	KeyPrefix    string        `yaml:"key_prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SMTP configures the outbound relay.
type SMTP struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	FromName  string        `yaml:"from_name"`
	TLSPolicy string        `yaml:"tls_policy"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Mail configures the form relay.
type Mail struct {
	Recipient     string `yaml:"recipient"`
	SubjectPrefix string `yaml:"subject_prefix"`
	KeyPrefix     string `yaml:"key_prefix"`
	TimeZone      string `yaml:"time_zone"`
}

// Enabled reports whether the mail routes should be mounted.
func (m Mail) Enabled() bool {
	return m.Recipient != ""
}

// Storage configures the S3-compatible bucket for trade-in images.
type Storage struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// Enabled reports whether a bucket is configured.
func (s Storage) Enabled() bool {
	return s.Bucket != ""
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:            8080,
			Environment:     "development",
			LogLevel:        "info",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Vendor: Vendor{
			BaseURL: "https://services.mobile.de",
			Accept:  "application/vnd.de.mobile.api+json",
			Timeout: 15 * time.Second,
			RPS:     10,
			Burst:   5,
		},
		Listing: Listing{
			DefaultPageSize: 20,
			VendorPageSize:  20,
			MaxPageFetches:  5,
			FailurePolicy:   "retry",
			MaxAttempts:     3,
			BackoffBase:     time.Second,
			Deadline:        45 * time.Second,
		},
		RateLimit: RateLimit{
			Requests:        50,
			Window:          time.Minute,
			MailRequests:    5,
			MailWindow:      10 * time.Minute,
			MaxKeys:         10000,
			RejectStatus:    429,
			CleanupInterval: time.Minute,
		},
		Redis: Redis{
			KeyPrefix:    "showroom:rl:",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		SMTP: SMTP{
			Port:      587,
			TLSPolicy: "mandatory",
			Timeout:   30 * time.Second,
		},
		Mail: Mail{
			SubjectPrefix: "[Website]",
			KeyPrefix:     "trade-in/",
			TimeZone:      "UTC",
		},
		Storage: Storage{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration. A missing CONFIG_PATH is fine; a set but
// unreadable one is an error.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	// ${VAR} references are expanded before parsing so secrets can stay in the environment.
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() error {
	e := &envReader{}

	e.int("PORT", &c.Server.Port)
	e.str("ENVIRONMENT", &c.Server.Environment)
	e.str("LOG_LEVEL", &c.Server.LogLevel)
	e.list("TRUSTED_PROXIES", &c.Server.TrustedProxies)
	e.list("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	e.duration("REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	e.duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("VENDOR_BASE_URL", &c.Vendor.BaseURL)
	e.str("VENDOR_USERNAME", &c.Vendor.Username)
	e.str("VENDOR_PASSWORD", &c.Vendor.Password)
	e.str("VENDOR_ACCEPT", &c.Vendor.Accept)
	e.duration("VENDOR_TIMEOUT", &c.Vendor.Timeout)
	e.float("VENDOR_RPS", &c.Vendor.RPS)
	e.int("VENDOR_BURST", &c.Vendor.Burst)

	e.int("LISTING_DEFAULT_PAGE_SIZE", &c.Listing.DefaultPageSize)
	e.int("LISTING_VENDOR_PAGE_SIZE", &c.Listing.VendorPageSize)
	e.int("LISTING_MAX_PAGE_FETCHES", &c.Listing.MaxPageFetches)
	e.str("LISTING_FAILURE_POLICY", &c.Listing.FailurePolicy)
	e.int("LISTING_MAX_ATTEMPTS", &c.Listing.MaxAttempts)
	e.duration("LISTING_BACKOFF_BASE", &c.Listing.BackoffBase)
	e.duration("LISTING_DEADLINE", &c.Listing.Deadline)

	e.int("RATE_LIMIT_REQUESTS", &c.RateLimit.Requests)
	e.duration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	e.int("MAIL_RATE_LIMIT_REQUESTS", &c.RateLimit.MailRequests)
	e.duration("MAIL_RATE_LIMIT_WINDOW", &c.RateLimit.MailWindow)
	e.int("RATE_LIMIT_MAX_KEYS", &c.RateLimit.MaxKeys)
	e.int("RATE_LIMIT_REJECT_STATUS", &c.RateLimit.RejectStatus)
	e.duration("RATE_LIMIT_CLEANUP_INTERVAL", &c.RateLimit.CleanupInterval)
	e.list("RATE_LIMIT_ALLOWLIST", &c.RateLimit.Allowlist)

	e.str("REDIS_URL", &c.Redis.URL)
	e.str("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)
	e.int("REDIS_POOL_SIZE", &c.Redis.PoolSize)

	e.str("SMTP_HOST", &c.SMTP.Host)
	e.int("SMTP_PORT", &c.SMTP.Port)
	e.str("SMTP_USER", &c.SMTP.Username)
	e.str("SMTP_PASSWORD", &c.SMTP.Password)
	e.str("SMTP_FROM", &c.SMTP.From)
	e.str("SMTP_TLS_POLICY", &c.SMTP.TLSPolicy)
	e.duration("SMTP_TIMEOUT", &c.SMTP.Timeout)

	e.str("MAIL_RECIPIENT", &c.Mail.Recipient)
	e.str("MAIL_FROM_NAME", &c.SMTP.FromName)
	e.str("MAIL_SUBJECT_PREFIX", &c.Mail.SubjectPrefix)
	e.str("MAIL_TIME_ZONE", &c.Mail.TimeZone)

	e.str("STORAGE_BUCKET", &c.Storage.Bucket)
	e.str("STORAGE_REGION", &c.Storage.Region)
	e.str("STORAGE_ACCESS_KEY_ID", &c.Storage.AccessKeyID)
	e.str("STORAGE_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey)
	e.str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	e.str("STORAGE_PUBLIC_BASE_URL", &c.Storage.PublicBaseURL)

	return errors.Join(e.errs...)
}

// Validate rejects configurations the server cannot start with. Mail
// settings are only checked when a recipient is set.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	if c.Vendor.BaseURL == "" {
		errs = append(errs, errors.New("vendor base URL is required"))
	}
	switch c.Listing.FailurePolicy {
	case "retry", "skip":
	default:
		errs = append(errs, fmt.Errorf("listing failure policy %q must be retry or skip", c.Listing.FailurePolicy))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}
	if c.RateLimit.RejectStatus != 200 && c.RateLimit.RejectStatus != 429 {
		errs = append(errs, fmt.Errorf("rate limit reject status %d must be 200 or 429", c.RateLimit.RejectStatus))
	}
	if c.Mail.Enabled() {
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("SMTP host is required when a mail recipient is set"))
		}
		if c.SMTP.From == "" {
			errs = append(errs, errors.New("SMTP from address is required when a mail recipient is set"))
		}
		if _, err := time.LoadLocation(c.Mail.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("mail time zone: %w", err))
		}
	}
	if c.Storage.Enabled() && (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		errs = append(errs, errors.New("storage access key ID and secret must be set together"))
	}
	return errors.Join(errs...)
}

// envReader applies set environment variables and collects parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
