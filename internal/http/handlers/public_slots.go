package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/pkg/response"
)

// PublicSlots lists bookable time slots for the visible horizon, grouped by
// date. Slot rows are materialized on demand so capacity edits and booked
// counters survive between calls.
func (h *Handler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	fulfillment := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("fulfillmentType")))
	if !schedule.ValidFulfillment(fulfillment) {
		response.Error(w, http.StatusBadRequest, "INVALID_FULFILLMENT", "fulfillmentType must be PICKUP or DELIVERY")
		return
	}

	settings, err := schedule.LoadSettings(r.Context(), h.DB, tenant.ID)
	if err != nil {
		h.Logger.Error("settings load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load slots")
		return
	}
	if !settings.FulfillmentEnabled(fulfillment) {
		response.Success(w, map[string]any{"days": []schedule.DaySlots{}})
		return
	}

	now := time.Now()
	if err := schedule.EnsureSlots(r.Context(), h.DB, tenant.ID, settings, fulfillment, now, h.Config.SlotHorizonDays); err != nil {
		h.Logger.Error("slot materialization failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load slots")
		return
	}

	days, err := schedule.ListAvailable(r.Context(), h.DB, tenant.ID, settings, fulfillment, now, h.Config.SlotHorizonDays)
	if err != nil {
		h.Logger.Error("slot listing failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load slots")
		return
	}

	response.Success(w, map[string]any{
		"fulfillmentType": fulfillment,
		"leadTimeMinutes": settings.LeadTimeMinutes,
		"days":            days,
	})
}
