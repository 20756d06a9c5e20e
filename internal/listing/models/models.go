package models

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
)

// MaxPageSize caps both the requested page size and the aggregated result.
const MaxPageSize = 100

// MaxPageNumber keeps Offset inside int range for every accepted page size.
const MaxPageNumber = math.MaxInt / MaxPageSize

// Filters narrows a vehicle search. Zero values are not forwarded.
type Filters struct {
	Make      string
	Model     string
	PriceFrom int
	PriceTo   int
	YearFrom  int
	YearTo    int
	Fuel      string
	Gearbox   string
}

// Params renders the filters as vendor query parameters. Year bounds become
// first-registration date bounds covering the whole calendar year.
func (f Filters) Params() url.Values {
	v := url.Values{}
	setString(v, "make", f.Make)
	setString(v, "model", f.Model)
	setPositive(v, "priceFrom", f.PriceFrom)
	setPositive(v, "priceTo", f.PriceTo)
	if f.YearFrom > 0 {
		v.Set("firstRegistrationFrom", strconv.Itoa(f.YearFrom)+"-01-01")
	}
	if f.YearTo > 0 {
		v.Set("firstRegistrationTo", strconv.Itoa(f.YearTo)+"-12-31")
	}
	setString(v, "fuel", f.Fuel)
	setString(v, "gearbox", f.Gearbox)
	return v
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setPositive(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

// Query is one client listing request.
type Query struct {
	PageNumber int
	PageSize   int
	Filters    Filters
}

// Normalize clamps paging into range. A zero or negative page size takes
// defaultSize; anything above MaxPageSize is capped. Page numbers are capped
// at MaxPageNumber.
func (q Query) Normalize(defaultSize int) Query {
	if defaultSize <= 0 || defaultSize > MaxPageSize {
		defaultSize = 20
	}
	switch {
	case q.PageNumber < 1:
		q.PageNumber = 1
	case q.PageNumber > MaxPageNumber:
		q.PageNumber = MaxPageNumber
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = defaultSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	return q
}

// Limit is the number of records the aggregate may hold.
func (q Query) Limit() int {
	return min(q.PageSize, MaxPageSize)
}

// Offset is the zero-based index of the first record on the requested page.
func (q Query) Offset() int {
	return (q.PageNumber - 1) * q.PageSize
}

// UpstreamPage is one parsed vendor response.
type UpstreamPage struct {
	Ads   []json.RawMessage
	Total int
}

// SearchResult is the aggregate returned to the handler. Ads are forwarded
// unchanged and kept in vendor page order.
type SearchResult struct {
	Ads          []json.RawMessage
	Total        int
	CurrentPage  int
	PageSize     int
	MaxPages     int
	PagesFetched int
	PagesFailed  int
}
