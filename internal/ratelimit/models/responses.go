package models

import "time"

// RateLimitExceededResponse is written when a client exhausts its window.
type RateLimitExceededResponse struct {
	Success    bool      `json:"success"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	RetryAfter int       `json:"retryAfter"` // seconds
	Timestamp  time.Time `json:"timestamp"`
}
