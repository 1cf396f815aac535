package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/checkout"
	"tablewood-catering-services/internal/pricing"
	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/pkg/response"
)

// CreateCheckoutSession validates the order intent, re-prices it and hands the
// customer a hosted payment page URL. No order row is written here; that is
// the webhook's job once payment completes.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	tenantCode := strings.TrimSpace(chi.URLParam(r, "tenantCode"))

	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	req.Fulfillment = strings.ToUpper(strings.TrimSpace(req.Fulfillment))

	sess, err := h.Initiator.CreateSession(r.Context(), tenantCode, req)
	if err != nil {
		var fieldErrs checkout.FieldErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]any, len(fieldErrs))
			for field, msg := range fieldErrs {
				details[field] = msg
			}
			response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Checkout request is invalid", details)
			return
		}
		var perr *pricing.Error
		if errors.As(err, &perr) {
			response.ErrorWithDetails(w, perr.StatusCode, string(perr.Code), perr.Message, perr.Details)
			return
		}
		switch {
		case errors.Is(err, checkout.ErrTenantNotFound):
			response.Error(w, http.StatusNotFound, "TENANT_NOT_FOUND", "Unknown tenant")
		case errors.Is(err, schedule.ErrSlotFull):
			response.Error(w, http.StatusConflict, "SLOT_FULL", "The selected time slot is fully booked")
		case errors.Is(err, schedule.ErrSlotNotFound):
			response.Error(w, http.StatusBadRequest, "SLOT_UNAVAILABLE", "The selected time slot is no longer available")
		default:
			h.Logger.Error("checkout session creation failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "CHECKOUT_FAILED", "Failed to start checkout")
		}
		return
	}

	response.Success(w, sess)
}
