package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"showroom/internal/listing/models"
	dErrors "showroom/pkg/domain-errors"
	"showroom/pkg/platform/httputil"
	"showroom/pkg/requestcontext"
)

// Service is the listing aggregation service.
type Service interface {
	Search(ctx context.Context, q models.Query) (*models.SearchResult, error)
	GetListing(ctx context.Context, id string) (json.RawMessage, error)
}

// Handler serves the listing endpoints.
type Handler struct {
	listings Service
	logger   *slog.Logger
}

func New(listings Service, logger *slog.Logger) *Handler {
	return &Handler{listings: listings, logger: logger}
}

// Register mounts the listing routes. Rate limiting is applied by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/listings", h.handleSearch)
	r.Get("/api/listings/{id}", h.handleGetListing)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)

	q := parseQuery(r)
	result, err := h.listings.Search(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing search failed",
			"request_id", requestID,
			"page_number", q.PageNumber,
			"page_size", q.PageSize,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "listing search served",
		"request_id", requestID,
		"ads", len(result.Ads),
		"total", result.Total,
		"pages_fetched", result.PagesFetched,
		"pages_failed", result.PagesFailed,
	)
	httputil.WriteJSON(w, http.StatusOK, models.NewSearchResponse(result, requestcontext.Now(ctx), time.Since(start)))
}

func (h *Handler) handleGetListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "listing id is required"))
		return
	}

	ad, err := h.listings.GetListing(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "listing lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"listing_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ListingResponse{
		Success:   true,
		Ad:        ad,
		Timestamp: requestcontext.Now(ctx),
	})
}

// parseQuery reads paging and filters leniently: malformed numbers fall back
// to defaults and non-positive prices or years are dropped later.
func parseQuery(r *http.Request) models.Query {
	return models.Query{
		PageNumber: httputil.QueryInt(r, "pageNumber", 1),
		PageSize:   httputil.QueryInt(r, "pageSize", 0),
		Filters: models.Filters{
			Make:      httputil.QueryString(r, "make"),
			Model:     httputil.QueryString(r, "model"),
			PriceFrom: httputil.QueryInt(r, "priceFrom", 0),
			PriceTo:   httputil.QueryInt(r, "priceTo", 0),
			YearFrom:  httputil.QueryInt(r, "yearFrom", 0),
			YearTo:    httputil.QueryInt(r, "yearTo", 0),
			Fuel:      httputil.QueryString(r, "fuel"),
			Gearbox:   httputil.QueryString(r, "gearbox"),
		},
	}
}
