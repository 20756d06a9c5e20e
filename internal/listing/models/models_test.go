package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Query
		wantPage int
		wantSize int
	}{
		{"defaults", Query{}, 1, 20},
		{"negative page", Query{PageNumber: -3, PageSize: 10}, 1, 10},
		{"oversized page capped", Query{PageNumber: 2, PageSize: 500}, 2, MaxPageSize},
		{"exact cap kept", Query{PageNumber: 1, PageSize: 100}, 1, 100},
		{"huge page number capped", Query{PageNumber: math.MaxInt64 / 50, PageSize: 100}, MaxPageNumber, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(20)
			assert.Equal(t, tt.wantPage, got.PageNumber)
			assert.Equal(t, tt.wantSize, got.PageSize)
			assert.LessOrEqual(t, got.Limit(), MaxPageSize)
			assert.GreaterOrEqual(t, got.Offset(), 0)
		})
	}
}

func TestQueryOffset(t *testing.T) {
	assert.Equal(t, 0, Query{PageNumber: 1, PageSize: 30}.Offset())
	assert.Equal(t, 60, Query{PageNumber: 3, PageSize: 30}.Offset())
}

func TestNewSearchResponseAlwaysCarriesResponseTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	fast := NewSearchResponse(&SearchResult{CurrentPage: 1, PageSize: 20}, now, 300*time.Microsecond)
	assert.Equal(t, "0s", fast.ResponseTime)
	assert.NotNil(t, fast.Ads)

	raw, err := json.Marshal(fast)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"responseTime":"0s"`)
	assert.Contains(t, string(raw), `"ads":[]`)

	slow := NewSearchResponse(&SearchResult{}, now, 312400*time.Microsecond)
	assert.Equal(t, "312ms", slow.ResponseTime)
}

func TestFiltersParams(t *testing.T) {
	v := Filters{
		Make:      "BMW",
		Model:     "320d",
		PriceFrom: 5000,
		PriceTo:   -1,
		YearFrom:  2015,
		YearTo:    2020,
		Fuel:      "DIESEL",
	}.Params()

	assert.Equal(t, "BMW", v.Get("make"))
	assert.Equal(t, "320d", v.Get("model"))
	assert.Equal(t, "5000", v.Get("priceFrom"))
	assert.False(t, v.Has("priceTo"))
	assert.Equal(t, "2015-01-01", v.Get("firstRegistrationFrom"))
	assert.Equal(t, "2020-12-31", v.Get("firstRegistrationTo"))
	assert.Equal(t, "DIESEL", v.Get("fuel"))
	assert.False(t, v.Has("gearbox"))
	assert.False(t, v.Has("yearFrom"))
}
