package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tablewood-catering-services/pkg/response"
)

type quoteRequestBody struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	EventDate  string `json:"eventDate"`
	GuestCount int32  `json:"guestCount"`
	Message    string `json:"message"`
}

// CreateQuoteRequest records a large-event inquiry for manual follow-up by the
// caterer; no pricing or payment is involved.
func (h *Handler) CreateQuoteRequest(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	var req quoteRequestBody
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	details := map[string]any{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "Name is required"
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		details["email"] = "A valid email is required"
	}
	var eventDate any
	if raw := strings.TrimSpace(req.EventDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			details["eventDate"] = "Event date must be YYYY-MM-DD"
		} else {
			eventDate = parsed
		}
	}
	if req.GuestCount < 0 {
		details["guestCount"] = "Guest count cannot be negative"
	}
	if len(details) > 0 {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Quote request is invalid", details)
		return
	}

	var guestCount any
	if req.GuestCount > 0 {
		guestCount = req.GuestCount
	}

	var id int64
	err = h.DB.QueryRow(r.Context(), `
		insert into quote_requests (tenant_id, name, email, phone, event_date, guest_count, message)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, tenant.ID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Email),
		nullableText(req.Phone), eventDate, guestCount, strings.TrimSpace(req.Message),
	).Scan(&id)
	if err != nil {
		h.Logger.Error("quote request insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit quote request")
		return
	}

	response.Created(w, map[string]any{"id": id, "status": QuoteStatusNew}, "Quote request received")
}
