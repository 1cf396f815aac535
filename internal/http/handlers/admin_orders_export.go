package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tablewood-catering-services/pkg/response"
)

var exportHeader = []string{
	"Order Number", "Status", "Payment", "Fulfillment", "Scheduled For",
	"Customer", "Email", "Phone", "Subtotal", "Delivery Fee", "Total", "Created At",
}

// AdminExportOrders streams the filtered order board as an XLSX workbook,
// using the same filters as the list endpoint.
func (h *Handler) AdminExportOrders(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	filters := parseOrderFilters(r)
	whereSQL, args := buildOrderListQuery(authCtx.TenantID, filters)

	rows, err := h.DB.Query(r.Context(), `
		select `+orderListColumns+`
		from orders
		where `+whereSQL+`
		order by created_at desc
	`, args...)
	if err != nil {
		h.Logger.Error("order export query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export orders")
		return
	}
	defer rows.Close()

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	const sheet = "Orders"
	index, err := file.NewSheet(sheet)
	if err != nil {
		h.Logger.Error("export sheet creation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export orders")
		return
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = file.SetCellValue(sheet, cell, title)
	}

	rowIndex := 2
	for rows.Next() {
		item, err := scanOrderListItem(rows)
		if err != nil {
			h.Logger.Error("order export scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export orders")
			return
		}

		scheduled := ""
		if item.ScheduledFor != nil {
			scheduled = item.ScheduledFor.Format("2006-01-02 15:04")
		}
		phone := ""
		if item.CustomerPhone != nil {
			phone = *item.CustomerPhone
		}
		values := []any{
			item.OrderNumber, item.Status, item.PaymentStatus, item.Fulfillment, scheduled,
			item.CustomerName, item.CustomerEmail, phone,
			item.Subtotal.StringFixed(2), item.DeliveryFee.StringFixed(2), item.TotalAmount.StringFixed(2),
			item.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIndex)
			_ = file.SetCellValue(sheet, cell, value)
		}
		rowIndex++
	}
	if err := rows.Err(); err != nil {
		h.Logger.Error("order export iteration failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export orders")
		return
	}

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := file.Write(w); err != nil {
		h.Logger.Error("order export write failed", zap.Error(err))
	}
}
