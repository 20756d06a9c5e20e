package models

import (
	"encoding/json"
	"time"
)

// SearchResponse is the envelope for GET /api/listings.
type SearchResponse struct {
	Success      bool              `json:"success"`
	Total        int               `json:"total"`
	CurrentPage  int               `json:"currentPage"`
	PageSize     int               `json:"pageSize"`
	MaxPages     int               `json:"maxPages"`
	Ads          []json.RawMessage `json:"ads"`
	Timestamp    time.Time         `json:"timestamp"`
	ResponseTime string            `json:"responseTime"`
}

// ListingResponse is the envelope for GET /api/listings/{id}.
type ListingResponse struct {
	Success   bool            `json:"success"`
	Ad        json.RawMessage `json:"ad"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSearchResponse renders a result. Ads is never null in the JSON output.
func NewSearchResponse(r *SearchResult, now time.Time, elapsed time.Duration) SearchResponse {
	ads := r.Ads
	if ads == nil {
		ads = []json.RawMessage{}
	}
	return SearchResponse{
		Success:      true,
		Total:        r.Total,
		CurrentPage:  r.CurrentPage,
		PageSize:     r.PageSize,
		MaxPages:     r.MaxPages,
		Ads:          ads,
		Timestamp:    now,
		ResponseTime: elapsed.Round(time.Millisecond).String(),
	}
}
