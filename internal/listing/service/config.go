package service

import (
	"fmt"
	"time"
)

// FailurePolicy decides what a failed vendor page does to the search.
type FailurePolicy string

const (
	// PolicyRetry retries retryable failures and fails the search when a
	// page exhausts its attempts.
	PolicyRetry FailurePolicy = "retry"
	// PolicySkip makes one attempt per page and keeps paging past failures.
	PolicySkip FailurePolicy = "skip"
)

func (p FailurePolicy) IsValid() bool {
	return p == PolicyRetry || p == PolicySkip
}

// Config tunes paging and retry behaviour.
type Config struct {
	DefaultPageSize int
	VendorPageSize  int
	MaxPageFetches  int
	FailurePolicy   FailurePolicy
	MaxAttempts     int
	// BackoffBase is multiplied by the attempt number before each retry.
	BackoffBase time.Duration
	// Deadline bounds a whole search or lookup, retries included.
	Deadline time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 20,
		VendorPageSize:  20,
		MaxPageFetches:  5,
		FailurePolicy:   PolicyRetry,
		MaxAttempts:     3,
		BackoffBase:     time.Second,
		Deadline:        45 * time.Second,
	}
}

// Validate rejects settings the paging loop cannot work with.
func (c Config) Validate() error {
	switch {
	case c.DefaultPageSize < 1:
		return fmt.Errorf("default page size must be positive, got %d", c.DefaultPageSize)
	case c.VendorPageSize < 1:
		return fmt.Errorf("vendor page size must be positive, got %d", c.VendorPageSize)
	case c.MaxPageFetches < 1:
		return fmt.Errorf("max page fetches must be positive, got %d", c.MaxPageFetches)
	case !c.FailurePolicy.IsValid():
		return fmt.Errorf("unknown failure policy %q", c.FailurePolicy)
	case c.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	case c.BackoffBase < 0:
		return fmt.Errorf("backoff base must not be negative")
	case c.Deadline <= 0:
		return fmt.Errorf("deadline must be positive")
	}
	return nil
}

// attemptsPerPage is 1 under PolicySkip.
func (c Config) attemptsPerPage() int {
	if c.FailurePolicy == PolicySkip {
		return 1
	}
	return c.MaxAttempts
}
