package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/queue"
	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

const orderListColumns = `
	id, order_number, customer_name, customer_email, customer_phone,
	fulfillment_type, scheduled_for, status, payment_status, email_status,
	needs_reschedule, subtotal, delivery_fee, total_amount, created_at, updated_at
`

func scanOrderListItem(row pgx.Row) (OrderListItem, error) {
	var (
		item         OrderListItem
		phone        pgtype.Text
		scheduledFor pgtype.Timestamptz
		subtotal     pgtype.Numeric
		deliveryFee  pgtype.Numeric
		totalAmount  pgtype.Numeric
	)
	err := row.Scan(
		&item.ID, &item.OrderNumber, &item.CustomerName, &item.CustomerEmail, &phone,
		&item.Fulfillment, &scheduledFor, &item.Status, &item.PaymentStatus, &item.EmailStatus,
		&item.NeedsReschedule, &subtotal, &deliveryFee, &totalAmount, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return OrderListItem{}, err
	}
	if phone.Valid {
		item.CustomerPhone = &phone.String
	}
	if scheduledFor.Valid {
		item.ScheduledFor = &scheduledFor.Time
	}
	item.Subtotal = utils.NumericToDecimal(subtotal)
	item.DeliveryFee = utils.NumericToDecimal(deliveryFee)
	item.TotalAmount = utils.NumericToDecimal(totalAmount)
	return item, nil
}

type orderFilters struct {
	Status          string
	Fulfillment     string
	Search          string
	DateFrom        time.Time
	DateTo          time.Time
	NeedsReschedule bool
}

func parseOrderFilters(r *http.Request) orderFilters {
	q := r.URL.Query()
	f := orderFilters{
		Status:          strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		Fulfillment:     strings.ToUpper(strings.TrimSpace(q.Get("fulfillmentType"))),
		Search:          strings.TrimSpace(q.Get("search")),
		NeedsReschedule: q.Get("needsReschedule") == "true",
	}
	if raw := strings.TrimSpace(q.Get("dateFrom")); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			f.DateFrom = parsed
		}
	}
	if raw := strings.TrimSpace(q.Get("dateTo")); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			f.DateTo = parsed.AddDate(0, 0, 1)
		}
	}
	return f
}

// buildOrderListQuery renders the where clause for the order board. All
// clauses come from a fixed set; user input only ever lands in args.
func buildOrderListQuery(tenantID int64, f orderFilters) (string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	next := func(value any) string {
		args = append(args, value)
		return "$" + itoa(len(args))
	}

	if f.Status != "" && ValidOrderStatus(f.Status) {
		where = append(where, "status = "+next(f.Status))
	}
	if f.Fulfillment == schedule.FulfillmentPickup || f.Fulfillment == schedule.FulfillmentDelivery {
		where = append(where, "fulfillment_type = "+next(f.Fulfillment))
	}
	if f.Search != "" {
		p := next("%" + f.Search + "%")
		where = append(where, "(order_number ilike "+p+" or customer_name ilike "+p+" or customer_email ilike "+p+")")
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "scheduled_for >= "+next(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "scheduled_for < "+next(f.DateTo))
	}
	if f.NeedsReschedule {
		where = append(where, "needs_reschedule = true")
	}
	return strings.Join(where, " and "), args
}

// AdminListOrders is the back-office order board: filterable by status,
// fulfillment type, scheduled date range and free-text search, newest first.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	filters := parseOrderFilters(r)
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1_000_000)

	whereSQL, args := buildOrderListQuery(authCtx.TenantID, filters)

	var total int64
	if err := h.DB.QueryRow(r.Context(), `select count(*) from orders where `+whereSQL, args...).Scan(&total); err != nil {
		h.Logger.Error("order count failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
		return
	}

	listArgs := append(append([]any{}, args...), limit, offset)
	rows, err := h.DB.Query(r.Context(), `
		select `+orderListColumns+`
		from orders
		where `+whereSQL+`
		order by created_at desc
		limit $`+itoa(len(args)+1)+` offset $`+itoa(len(args)+2),
		listArgs...)
	if err != nil {
		h.Logger.Error("order list query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
		return
	}
	defer rows.Close()

	orders := make([]OrderListItem, 0)
	for rows.Next() {
		item, err := scanOrderListItem(rows)
		if err != nil {
			h.Logger.Error("order scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
			return
		}
		orders = append(orders, item)
	}

	response.Success(w, map[string]any{
		"orders": orders,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) AdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := urlParamInt64(r, "orderID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	detail, err := h.fetchOrderDetail(r.Context(), authCtx.TenantID, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order detail failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}

	response.Success(w, detail)
}

func (h *Handler) fetchOrderDetail(ctx context.Context, tenantID, orderID int64) (OrderDetail, error) {
	var (
		detail     OrderDetail
		timeSlotID pgtype.Int8
		address    pgtype.Text
		postcode   pgtype.Text
		city       pgtype.Text
		notes      pgtype.Text
		adminNotes pgtype.Text
	)
	item, err := scanOrderListItem(h.DB.QueryRow(ctx, `
		select `+orderListColumns+`
		from orders
		where id = $1 and tenant_id = $2
	`, orderID, tenantID))
	if err != nil {
		return OrderDetail{}, err
	}
	detail.OrderListItem = item

	err = h.DB.QueryRow(ctx, `
		select time_slot_id, delivery_address, delivery_postcode, delivery_city, notes, admin_notes
		from orders
		where id = $1 and tenant_id = $2
	`, orderID, tenantID).Scan(&timeSlotID, &address, &postcode, &city, &notes, &adminNotes)
	if err != nil {
		return OrderDetail{}, err
	}
	if timeSlotID.Valid {
		detail.TimeSlotID = &timeSlotID.Int64
	}
	if address.Valid {
		detail.DeliveryAddress = &address.String
	}
	if postcode.Valid {
		detail.Postcode = &postcode.String
	}
	if city.Valid {
		detail.City = &city.String
	}
	if notes.Valid {
		detail.Notes = &notes.String
	}
	if adminNotes.Valid {
		detail.AdminNotes = &adminNotes.String
	}

	detail.Items, err = h.fetchOrderItems(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}

	var (
		payment       PaymentView
		paymentIntent pgtype.Text
		amount        pgtype.Numeric
	)
	err = h.DB.QueryRow(ctx, `
		select id, provider, provider_session_id, provider_payment_intent, amount, currency, status, created_at
		from payments
		where order_id = $1
		order by id asc
		limit 1
	`, orderID).Scan(&payment.ID, &payment.Provider, &payment.ProviderSessionID, &paymentIntent,
		&amount, &payment.Currency, &payment.Status, &payment.CreatedAt)
	if err == nil {
		if paymentIntent.Valid {
			payment.ProviderPaymentIntent = &paymentIntent.String
		}
		payment.Amount = utils.NumericToDecimal(amount)
		detail.Payment = &payment
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return OrderDetail{}, err
	}

	return detail, nil
}

// FetchActiveOrders returns the live order board used by the websocket feed:
// everything not yet completed or cancelled, soonest schedule first.
func FetchActiveOrders(ctx context.Context, db *pgxpool.Pool, tenantID int64) ([]OrderListItem, error) {
	rows, err := db.Query(ctx, `
		select `+orderListColumns+`
		from orders
		where tenant_id = $1 and status in ('NEW', 'CONFIRMED', 'PREPARING', 'READY')
		order by scheduled_for asc nulls last, created_at desc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]OrderListItem, 0)
	for rows.Next() {
		item, err := scanOrderListItem(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	return orders, rows.Err()
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// AdminUpdateOrderStatus sets an order's status. Any valid state is
// accepted so mistakes can be corrected. Cancelling frees the booked slot
// seat in the same transaction; un-cancelling books it again, flagging the
// order for manual reschedule when the slot has filled in the meantime.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := urlParamInt64(r, "orderID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	newStatus := strings.ToUpper(strings.TrimSpace(req.Status))
	if !ValidOrderStatus(newStatus) {
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status")
		return
	}

	tx, err := h.DB.Begin(r.Context())
	if err != nil {
		h.Logger.Error("tx begin failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	var currentStatus string
	var timeSlotID pgtype.Int8
	err = tx.QueryRow(r.Context(), `
		select status, time_slot_id from orders where id = $1 and tenant_id = $2 for update
	`, orderID, authCtx.TenantID).Scan(&currentStatus, &timeSlotID)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order lock failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
		return
	}

	if currentStatus == newStatus {
		response.Success(w, map[string]any{"id": orderID, "status": newStatus})
		return
	}

	if _, err := tx.Exec(r.Context(), `
		update orders set status = $1, updated_at = now() where id = $2 and tenant_id = $3
	`, newStatus, orderID, authCtx.TenantID); err != nil {
		h.Logger.Error("order status update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
		return
	}

	if timeSlotID.Valid {
		switch SlotSeatDelta(currentStatus, newStatus) {
		case -1:
			if err := schedule.Release(r.Context(), tx, authCtx.TenantID, timeSlotID.Int64); err != nil {
				h.Logger.Error("slot release failed", zap.Error(err))
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
				return
			}
		case 1:
			err := schedule.Book(r.Context(), tx, authCtx.TenantID, timeSlotID.Int64)
			if errors.Is(err, schedule.ErrSlotFull) || errors.Is(err, schedule.ErrSlotNotFound) {
				// The seat was given away while the order sat cancelled.
				if _, err := tx.Exec(r.Context(), `
					update orders set needs_reschedule = true where id = $1 and tenant_id = $2
				`, orderID, authCtx.TenantID); err != nil {
					h.Logger.Error("reschedule flag failed", zap.Error(err))
					response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
					return
				}
				h.Logger.Warn("reinstated order needs reschedule",
					zap.Int64("orderId", orderID),
					zap.Int64("slotId", timeSlotID.Int64),
				)
			} else if err != nil {
				h.Logger.Error("slot rebook failed", zap.Error(err))
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
				return
			}
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.Logger.Error("tx commit failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
		return
	}

	h.Logger.Info("order status changed",
		zap.Int64("orderId", orderID),
		zap.String("from", currentStatus),
		zap.String("to", newStatus),
		zap.Int64("adminId", authCtx.AdminID),
	)
	response.Success(w, map[string]any{"id": orderID, "status": newStatus})
}

type adminNotesRequest struct {
	AdminNotes string `json:"adminNotes"`
}

func (h *Handler) AdminUpdateOrderNotes(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := urlParamInt64(r, "orderID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req adminNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update orders set admin_notes = $1, updated_at = now() where id = $2 and tenant_id = $3
	`, nullableText(req.AdminNotes), orderID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("admin notes update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update notes")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	response.Success(w, map[string]any{"id": orderID})
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

// AdminUpdatePaymentStatus records a refund issued through the provider
// dashboard; the service itself never moves money.
func (h *Handler) AdminUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := urlParamInt64(r, "orderID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req paymentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.PaymentStatus))
	if status != "REFUNDED" {
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Only REFUNDED can be set manually")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update orders set payment_status = $1, updated_at = now()
		where id = $2 and tenant_id = $3 and payment_status = 'PAID'
	`, status, orderID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("payment status update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update payment status")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", "Order is not in a refundable state")
		return
	}

	response.Success(w, map[string]any{"id": orderID, "paymentStatus": status})
}

// AdminResendOrderEmail re-queues the confirmation email for orders whose
// email never left PENDING, or when the customer asks for another copy.
func (h *Handler) AdminResendOrderEmail(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	orderID, err := urlParamInt64(r, "orderID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var exists bool
	if err := h.DB.QueryRow(r.Context(), `
		select exists(select 1 from orders where id = $1 and tenant_id = $2)
	`, orderID, authCtx.TenantID).Scan(&exists); err != nil {
		h.Logger.Error("order lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resend email")
		return
	}
	if !exists {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if err := queue.PublishOrderConfirmed(r.Context(), h.Queue, authCtx.TenantID, orderID); err != nil {
		h.Logger.Error("email resend publish failed", zap.Int64("orderId", orderID), zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Email queue is unavailable")
		return
	}

	response.Success(w, map[string]any{"id": orderID, "queued": true})
}
