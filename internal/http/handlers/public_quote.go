package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/internal/pricing"
	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/pkg/response"
)

type quoteRequest struct {
	Items       []pricing.CartLine `json:"items"`
	Fulfillment string             `json:"fulfillmentType"`
	Postcode    string             `json:"postcode"`
}

// PublicQuote re-prices a cart server-side so the storefront can show totals,
// the delivery fee and any minimum-order shortfall before checkout starts.
func (h *Handler) PublicQuote(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	req.Fulfillment = strings.ToUpper(strings.TrimSpace(req.Fulfillment))
	if req.Fulfillment != pricing.FulfillmentPickup && req.Fulfillment != pricing.FulfillmentDelivery {
		response.Error(w, http.StatusBadRequest, "INVALID_FULFILLMENT", "fulfillmentType must be PICKUP or DELIVERY")
		return
	}

	settings, err := schedule.LoadSettings(r.Context(), h.DB, tenant.ID)
	if err != nil {
		h.Logger.Error("settings load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute quote")
		return
	}

	cat, zones, err := h.loadPricingInputs(r.Context(), tenant.ID)
	if err != nil {
		h.Logger.Error("pricing inputs load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute quote")
		return
	}

	quote, err := pricing.ComputeQuote(req.Items, cat, req.Fulfillment, req.Postcode, zones, h.fallbackFee(), settings.MinOrderValue)
	if err != nil {
		var perr *pricing.Error
		if errors.As(err, &perr) {
			response.ErrorWithDetails(w, perr.StatusCode, string(perr.Code), perr.Message, perr.Details)
			return
		}
		h.Logger.Error("quote computation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute quote")
		return
	}

	response.Success(w, quote)
}

func (h *Handler) loadPricingInputs(ctx context.Context, tenantID int64) (*catalog.Catalog, []pricing.Zone, error) {
	cat, err := catalog.Load(ctx, h.DB, tenantID)
	if err != nil {
		return nil, nil, err
	}
	zones, err := pricing.LoadZones(ctx, h.DB, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return cat, zones, nil
}

func (h *Handler) fallbackFee() decimal.Decimal {
	fee, err := decimal.NewFromString(h.Config.FallbackDeliveryFee)
	if err != nil {
		return decimal.RequireFromString("10.00")
	}
	return fee
}
