package models

import "time"

// EndpointClass groups routes that share one rate window per client.
type EndpointClass string

const (
	// ClassListing covers listing search and single-listing lookups (50 req/min).
	ClassListing EndpointClass = "listing"
	// ClassMail covers the contact and trade-in mail relay.
	ClassMail EndpointClass = "mail"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassListing, ClassMail:
		return true
	}
	return false
}

// RateLimitResult is the outcome of one admission check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
