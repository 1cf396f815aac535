package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

// PublicOrderBySession resolves a completed checkout session to its order.
// The success page polls this until the webhook has materialized the order.
func (h *Handler) PublicOrderBySession(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_SESSION", "Session id is required")
		return
	}

	var orderNumber, status string
	err = h.DB.QueryRow(r.Context(), `
		select o.order_number, o.status
		from payments p
		join orders o on o.id = p.order_id
		where p.provider_session_id = $1 and o.tenant_id = $2
	`, sessionID, tenant.ID).Scan(&orderNumber, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		// Payment webhook not processed yet; the client keeps polling.
		response.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"ready": false},
		})
		return
	}
	if err != nil {
		h.Logger.Error("session lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	response.Success(w, map[string]any{
		"ready":         true,
		"orderNumber":   orderNumber,
		"status":        status,
		"trackingToken": utils.CreateOrderTrackingToken(h.Config.OrderTrackingTokenSecret, tenant.Code, orderNumber),
	})
}

// PublicOrderStatus serves the customer tracking page. Access is gated by the
// HMAC tracking token, not by account login.
func (h *Handler) PublicOrderStatus(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if orderNumber == "" || !utils.VerifyOrderTrackingToken(h.Config.OrderTrackingTokenSecret, token, tenant.Code, orderNumber) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	var (
		orderID         int64
		status          string
		paymentStatus   string
		fulfillment     string
		scheduledFor    pgtype.Timestamptz
		needsReschedule bool
		subtotal        pgtype.Numeric
		deliveryFee     pgtype.Numeric
		totalAmount     pgtype.Numeric
		createdAt       time.Time
	)
	err = h.DB.QueryRow(r.Context(), `
		select id, status, payment_status, fulfillment_type, scheduled_for, needs_reschedule,
		       subtotal, delivery_fee, total_amount, created_at
		from orders
		where tenant_id = $1 and order_number = $2
	`, tenant.ID, orderNumber).Scan(
		&orderID, &status, &paymentStatus, &fulfillment, &scheduledFor, &needsReschedule,
		&subtotal, &deliveryFee, &totalAmount, &createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("order lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	items, err := h.fetchOrderItems(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("order items lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}

	data := map[string]any{
		"orderNumber":     orderNumber,
		"status":          status,
		"paymentStatus":   paymentStatus,
		"fulfillmentType": fulfillment,
		"needsReschedule": needsReschedule,
		"subtotal":        utils.NumericToDecimal(subtotal),
		"deliveryFee":     utils.NumericToDecimal(deliveryFee),
		"totalAmount":     utils.NumericToDecimal(totalAmount),
		"createdAt":       createdAt,
		"items":           items,
	}
	if scheduledFor.Valid {
		data["scheduledFor"] = scheduledFor.Time
	}
	response.Success(w, data)
}

func (h *Handler) fetchOrderItems(ctx context.Context, orderID int64) ([]OrderItemView, error) {
	rows, err := h.DB.Query(ctx, `
		select id, menu_item_id, item_name, unit_price, quantity, line_total
		from order_items
		where order_id = $1
		order by id asc
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OrderItemView, 0)
	for rows.Next() {
		var (
			item       OrderItemView
			menuItemID pgtype.Int8
			unitPrice  pgtype.Numeric
			lineTotal  pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &menuItemID, &item.Name, &unitPrice, &item.Quantity, &lineTotal); err != nil {
			return nil, err
		}
		if menuItemID.Valid {
			item.MenuItemID = &menuItemID.Int64
		}
		item.UnitPrice = utils.NumericToDecimal(unitPrice)
		item.LineTotal = utils.NumericToDecimal(lineTotal)
		items = append(items, item)
	}
	return items, rows.Err()
}
