package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"tablewood-catering-services/pkg/response"
)

type quoteRequestView struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      *string    `json:"phone"`
	EventDate  *string    `json:"eventDate"`
	GuestCount *int32     `json:"guestCount"`
	Message    string     `json:"message"`
	Status     string     `json:"status"`
	AdminNotes *string    `json:"adminNotes"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (h *Handler) AdminListQuoteRequests(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1_000_000)

	where := "tenant_id = $1"
	args := []any{authCtx.TenantID}
	if status != "" && ValidQuoteStatus(status) {
		args = append(args, status)
		where += " and status = $2"
	}
	args = append(args, limit, offset)

	rows, err := h.DB.Query(r.Context(), `
		select id, name, email, phone, to_char(event_date, 'YYYY-MM-DD'), guest_count,
		       message, status, admin_notes, created_at, updated_at
		from quote_requests
		where `+where+`
		order by created_at desc
		limit $`+itoa(len(args)-1)+` offset $`+itoa(len(args)),
		args...)
	if err != nil {
		h.Logger.Error("quote requests query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load quote requests")
		return
	}
	defer rows.Close()

	quotes := make([]quoteRequestView, 0)
	for rows.Next() {
		var (
			q          quoteRequestView
			phone      pgtype.Text
			eventDate  pgtype.Text
			guestCount pgtype.Int4
			adminNotes pgtype.Text
		)
		if err := rows.Scan(&q.ID, &q.Name, &q.Email, &phone, &eventDate, &guestCount,
			&q.Message, &q.Status, &adminNotes, &q.CreatedAt, &q.UpdatedAt); err != nil {
			h.Logger.Error("quote request scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load quote requests")
			return
		}
		if phone.Valid {
			q.Phone = &phone.String
		}
		if eventDate.Valid {
			q.EventDate = &eventDate.String
		}
		if guestCount.Valid {
			q.GuestCount = &guestCount.Int32
		}
		if adminNotes.Valid {
			q.AdminNotes = &adminNotes.String
		}
		quotes = append(quotes, q)
	}

	response.Success(w, quotes)
}

type quoteStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
}

// AdminUpdateQuoteRequest moves an inquiry along the follow-up pipeline and
// records the sales notes alongside it.
func (h *Handler) AdminUpdateQuoteRequest(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	quoteID, err := urlParamInt64(r, "quoteID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req quoteStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !ValidQuoteStatus(status) {
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown quote request status")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update quote_requests
		set status = $1, admin_notes = coalesce($2, admin_notes), updated_at = now()
		where id = $3 and tenant_id = $4
	`, status, nullableText(req.AdminNotes), quoteID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("quote request update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update quote request")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "QUOTE_NOT_FOUND", "Quote request not found")
		return
	}

	response.Success(w, map[string]any{"id": quoteID, "status": status})
}
