package handlers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status machine: NEW orders exist only transiently (materialized orders
// start CONFIRMED), then move PREPARING, READY, COMPLETED or CANCELLED.
const (
	OrderStatusNew       = "NEW"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	QuoteStatusNew       = "NEW"
	QuoteStatusContacted = "CONTACTED"
	QuoteStatusQuoted    = "QUOTED"
	QuoteStatusConverted = "CONVERTED"
	QuoteStatusLost      = "LOST"
)

type OrderListItem struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   *string         `json:"customerPhone"`
	Fulfillment     string          `json:"fulfillmentType"`
	ScheduledFor    *time.Time      `json:"scheduledFor"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"paymentStatus"`
	EmailStatus     string          `json:"emailStatus"`
	NeedsReschedule bool            `json:"needsReschedule"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItemView struct {
	ID         int64           `json:"id"`
	MenuItemID *int64          `json:"menuItemId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int32           `json:"quantity"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

type PaymentView struct {
	ID                    int64           `json:"id"`
	Provider              string          `json:"provider"`
	ProviderSessionID     string          `json:"providerSessionId"`
	ProviderPaymentIntent *string         `json:"providerPaymentIntent"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"createdAt"`
}

type OrderDetail struct {
	OrderListItem
	TimeSlotID      *int64          `json:"timeSlotId"`
	DeliveryAddress *string         `json:"deliveryAddress"`
	Postcode        *string         `json:"deliveryPostcode"`
	City            *string         `json:"deliveryCity"`
	Notes           *string         `json:"notes"`
	AdminNotes      *string         `json:"adminNotes"`
	Items           []OrderItemView `json:"items"`
	Payment         *PaymentView    `json:"payment"`
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusNew, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// SlotSeatDelta reports how a status change moves the order's booked slot
// seat: entering CANCELLED frees it, leaving CANCELLED takes it again. The
// back office may otherwise set any state, including corrections that skip
// or rewind the customer-visible flow.
func SlotSeatDelta(from, to string) int {
	switch {
	case from != OrderStatusCancelled && to == OrderStatusCancelled:
		return -1
	case from == OrderStatusCancelled && to != OrderStatusCancelled:
		return 1
	}
	return 0
}

func ValidQuoteStatus(status string) bool {
	switch status {
	case QuoteStatusNew, QuoteStatusContacted, QuoteStatusQuoted,
		QuoteStatusConverted, QuoteStatusLost:
		return true
	}
	return false
}
