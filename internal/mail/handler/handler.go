package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"showroom/internal/mail/models"
	"showroom/pkg/platform/httputil"
	"showroom/pkg/requestcontext"
)

// Service relays form submissions by email.
type Service interface {
	SendContact(ctx context.Context, sub *models.ContactSubmission) error
	SendTradeIn(ctx context.Context, sub *models.TradeInSubmission) error
}

// Handler serves the contact and trade-in forms.
type Handler struct {
	mail   Service
	logger *slog.Logger
}

func New(mail Service, logger *slog.Logger) *Handler {
	return &Handler{mail: mail, logger: logger}
}

// Register mounts the mail routes. Rate limiting and body caps are applied by
// the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/contact", h.handleContact)
	r.Post("/api/trade-in", h.handleTradeIn)
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := h.decodeContact(w, r)
	if sub == nil {
		if err != nil {
			h.reject(ctx, w, "contact", err)
		}
		return
	}
	sub.UserAgent = requestcontext.UserAgent(ctx)
	if err := httputil.PrepareRequest(sub); err != nil {
		h.reject(ctx, w, "contact", err)
		return
	}
	if err := h.mail.SendContact(ctx, sub); err != nil {
		h.reject(ctx, w, "contact", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.MessageResponse{
		Success: true,
		Message: "Your message has been sent",
	})
}

func (h *Handler) handleTradeIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sub, err := decodeTradeIn(r)
	if err != nil {
		h.reject(ctx, w, "trade_in", err)
		return
	}
	sub.UserAgent = requestcontext.UserAgent(ctx)
	if err := httputil.PrepareRequest(sub); err != nil {
		h.reject(ctx, w, "trade_in", err)
		return
	}
	if err := h.mail.SendTradeIn(ctx, sub); err != nil {
		h.reject(ctx, w, "trade_in", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.MessageResponse{
		Success: true,
		Message: "Your trade-in request has been sent",
	})
}

// decodeContact accepts JSON (no files) or multipart with "attachments".
// A nil submission with a nil error means the response was already written.
func (h *Handler) decodeContact(w http.ResponseWriter, r *http.Request) (*models.ContactSubmission, error) {
	if !isMultipart(r) {
		sub, ok := httputil.DecodeJSON[models.ContactSubmission](w, r, h.logger)
		if !ok {
			return nil, nil
		}
		return sub, nil
	}

	if err := parseForm(r); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup is best effort

	files, err := readFiles(r, "attachments")
	if err != nil {
		return nil, err
	}
	return &models.ContactSubmission{
		Name:        formValue(r, "name"),
		Email:       formValue(r, "email"),
		Phone:       formValue(r, "phone"),
		Subject:     formValue(r, "subject"),
		Message:     formValue(r, "message"),
		VehicleID:   formValue(r, "vehicleId"),
		Attachments: files,
	}, nil
}

func decodeTradeIn(r *http.Request) (*models.TradeInSubmission, error) {
	if err := parseForm(r); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup is best effort

	year, err := formInt(r, "year")
	if err != nil {
		return nil, err
	}
	mileage, err := formInt(r, "mileage")
	if err != nil {
		return nil, err
	}
	images, err := readFiles(r, "images")
	if err != nil {
		return nil, err
	}
	return &models.TradeInSubmission{
		Name:    formValue(r, "name"),
		Email:   formValue(r, "email"),
		Phone:   formValue(r, "phone"),
		Message: formValue(r, "message"),
		Brand:   formValue(r, "brand"),
		Model:   formValue(r, "model"),
		Year:    year,
		Mileage: mileage,
		Fuel:    formValue(r, "fuel"),
		Gearbox: formValue(r, "gearbox"),
		Images:  images,
	}, nil
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, kind string, err error) {
	h.logger.WarnContext(ctx, "mail submission rejected",
		"kind", kind,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteError(w, err)
}
