package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"

	"tablewood-catering-services/pkg/response"
)

type receiptItem struct {
	Name      string
	Quantity  int32
	UnitPrice string
	LineTotal string
}

type receiptData struct {
	TenantName      string
	TenantEmail     string
	OrderNumber     string
	Fulfillment     string
	ScheduledFor    string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	Currency        string
	Items           []receiptItem
	Subtotal        string
	DeliveryFee     string
	TotalAmount     string
	PaymentStatus   string
	CreatedAt       string
}

// AdminOrderReceipt renders a printable PDF receipt for an order.
func (h *Handler) AdminOrderReceipt(w http.ResponseWriter, r *http.Request) {
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
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render receipt")
		return
	}

	var tenantName, tenantEmail, currency string
	if err := h.DB.QueryRow(r.Context(), `
		select name, contact_email, currency from tenants where id = $1
	`, authCtx.TenantID).Scan(&tenantName, &tenantEmail, &currency); err != nil {
		h.Logger.Error("tenant lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render receipt")
		return
	}

	data := receiptData{
		TenantName:    tenantName,
		TenantEmail:   tenantEmail,
		OrderNumber:   detail.OrderNumber,
		Fulfillment:   detail.Fulfillment,
		CustomerName:  detail.CustomerName,
		CustomerEmail: detail.CustomerEmail,
		Currency:      strings.ToUpper(currency),
		Subtotal:      detail.Subtotal.StringFixed(2),
		DeliveryFee:   detail.DeliveryFee.StringFixed(2),
		TotalAmount:   detail.TotalAmount.StringFixed(2),
		PaymentStatus: detail.PaymentStatus,
		CreatedAt:     detail.CreatedAt.Format("2006-01-02 15:04"),
	}
	if detail.ScheduledFor != nil {
		data.ScheduledFor = detail.ScheduledFor.Format("2006-01-02 15:04")
	}
	if detail.CustomerPhone != nil {
		data.CustomerPhone = *detail.CustomerPhone
	}
	if detail.DeliveryAddress != nil {
		address := *detail.DeliveryAddress
		if detail.Postcode != nil {
			address += ", " + *detail.Postcode
		}
		if detail.City != nil {
			address += " " + *detail.City
		}
		data.DeliveryAddress = address
	}
	for _, item := range detail.Items {
		data.Items = append(data.Items, receiptItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}

	out, err := renderReceiptPDF(data)
	if err != nil {
		h.Logger.Error("receipt render failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt_%s.pdf"`, sanitizeFilename(detail.OrderNumber)))
	_, _ = w.Write(out.Bytes())
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}

func renderReceiptPDF(data receiptData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.TenantName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if data.TenantEmail != "" {
		pdf.CellFormat(0, 5, data.TenantEmail, "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order %s", data.OrderNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.Fulfillment, "", 1, "C", false, 0, "")
	if data.ScheduledFor != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Scheduled: %s", data.ScheduledFor), "", 1, "C", false, 0, "")
	}
	if data.DeliveryAddress != "" {
		pdf.MultiCell(0, 4, data.DeliveryAddress, "", "C", false)
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", data.CreatedAt), "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Customer", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.CustomerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, data.CustomerEmail, "", 1, "L", false, 0, "")
	if data.CustomerPhone != "" {
		pdf.CellFormat(0, 5, data.CustomerPhone, "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range data.Items {
		pdf.CellFormat(0, 5, fmt.Sprintf("%dx %s @ %s", item.Quantity, item.Name, item.UnitPrice), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s %s", data.Currency, item.LineTotal), "", 1, "L", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s %s", data.Currency, data.Subtotal), "", 1, "L", false, 0, "")
	if data.DeliveryFee != "0.00" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Delivery: %s %s", data.Currency, data.DeliveryFee), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s %s", data.Currency, data.TotalAmount), "", 1, "L", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", data.PaymentStatus), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
