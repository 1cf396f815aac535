package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

// AdminGetSettings returns the tenant's scheduling and ordering configuration.
func (h *Handler) AdminGetSettings(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	settings, err := schedule.LoadSettings(r.Context(), h.DB, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("settings load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load settings")
		return
	}

	response.Success(w, settings)
}

type settingsRequest struct {
	PickupEnabled       bool                         `json:"pickupEnabled"`
	DeliveryEnabled     bool                         `json:"deliveryEnabled"`
	LeadTimeMinutes     int                          `json:"leadTimeMinutes"`
	MinOrderValue       string                       `json:"minOrderValue"`
	BlackoutDates       []string                     `json:"blackoutDates"`
	Hours               map[string]schedule.DayHours `json:"businessHours"`
	PickupSlotMinutes   int                          `json:"pickupSlotMinutes"`
	DeliverySlotMinutes int                          `json:"deliverySlotMinutes"`
	PickupSlotCap       int32                        `json:"pickupSlotCap"`
	DeliverySlotCap     int32                        `json:"deliverySlotCap"`
	DailyOrderCap       *int32                       `json:"dailyOrderCap"`
	NotesMaxLength      int                          `json:"notesMaxLength"`
}

var weekdayKeys = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validateSettings(req *settingsRequest) (decimal.Decimal, map[string]any) {
	details := map[string]any{}

	minOrder := decimal.Zero
	if raw := strings.TrimSpace(req.MinOrderValue); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.LessThan(decimal.Zero) {
			details["minOrderValue"] = "Minimum order value must be a non-negative amount"
		} else {
			minOrder = parsed.Round(2)
		}
	}
	if req.LeadTimeMinutes < 0 {
		details["leadTimeMinutes"] = "Lead time cannot be negative"
	}
	if req.PickupSlotMinutes <= 0 || req.DeliverySlotMinutes <= 0 {
		details["slotMinutes"] = "Slot lengths must be positive"
	}
	if req.PickupSlotCap <= 0 || req.DeliverySlotCap <= 0 {
		details["slotCap"] = "Slot capacities must be positive"
	}
	if req.DailyOrderCap != nil && *req.DailyOrderCap <= 0 {
		details["dailyOrderCap"] = "Daily order cap must be positive when set"
	}
	if req.NotesMaxLength < 0 {
		details["notesMaxLength"] = "Notes length limit cannot be negative"
	}

	if req.BlackoutDates == nil {
		req.BlackoutDates = []string{}
	}
	for _, date := range req.BlackoutDates {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			details["blackoutDates"] = "Blackout dates must be YYYY-MM-DD"
			break
		}
	}

	if req.Hours == nil {
		req.Hours = map[string]schedule.DayHours{}
	}
	normalized := make(map[string]schedule.DayHours, len(req.Hours))
	for day, hours := range req.Hours {
		key := strings.ToLower(strings.TrimSpace(day))
		if !weekdayKeys[key] {
			details["businessHours"] = "Unknown weekday " + day
			continue
		}
		open, errOpen := time.Parse("15:04", hours.Open)
		closeAt, errClose := time.Parse("15:04", hours.Close)
		if errOpen != nil || errClose != nil || !open.Before(closeAt) {
			details["businessHours"] = "Hours for " + key + " must be HH:MM with open before close"
			continue
		}
		normalized[key] = hours
	}
	req.Hours = normalized

	if len(details) > 0 {
		return decimal.Zero, details
	}
	return minOrder, nil
}

// AdminUpdateSettings upserts the business settings row. Capacity edits apply
// to newly materialized slots; already booked counters are untouched.
func (h *Handler) AdminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	minOrder, details := validateSettings(&req)
	if details != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Settings are invalid", details)
		return
	}

	blackoutJSON, err := json.Marshal(req.BlackoutDates)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid blackout dates")
		return
	}
	hoursJSON, err := json.Marshal(req.Hours)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid business hours")
		return
	}

	_, err = h.DB.Exec(r.Context(), `
		insert into business_settings (
			tenant_id, pickup_enabled, delivery_enabled, lead_time_minutes, min_order_value,
			blackout_dates, business_hours, pickup_slot_minutes, delivery_slot_minutes,
			pickup_slot_cap, delivery_slot_cap, daily_order_cap, notes_max_length, updated_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		on conflict (tenant_id) do update set
			pickup_enabled = excluded.pickup_enabled,
			delivery_enabled = excluded.delivery_enabled,
			lead_time_minutes = excluded.lead_time_minutes,
			min_order_value = excluded.min_order_value,
			blackout_dates = excluded.blackout_dates,
			business_hours = excluded.business_hours,
			pickup_slot_minutes = excluded.pickup_slot_minutes,
			delivery_slot_minutes = excluded.delivery_slot_minutes,
			pickup_slot_cap = excluded.pickup_slot_cap,
			delivery_slot_cap = excluded.delivery_slot_cap,
			daily_order_cap = excluded.daily_order_cap,
			notes_max_length = excluded.notes_max_length,
			updated_at = now()
	`, authCtx.TenantID, req.PickupEnabled, req.DeliveryEnabled, req.LeadTimeMinutes, utils.DecimalParam(minOrder),
		blackoutJSON, hoursJSON, req.PickupSlotMinutes, req.DeliverySlotMinutes,
		req.PickupSlotCap, req.DeliverySlotCap, req.DailyOrderCap, req.NotesMaxLength)
	if err != nil {
		h.Logger.Error("settings update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update settings")
		return
	}

	response.Success(w, map[string]any{"updated": true})
}
