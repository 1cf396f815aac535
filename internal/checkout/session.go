package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/internal/config"
	"tablewood-catering-services/internal/pricing"
	"tablewood-catering-services/internal/schedule"
	"tablewood-catering-services/internal/utils"
)

var ErrTenantNotFound = errors.New("tenant not found")

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Request struct {
	Customer    Customer           `json:"customer"`
	Fulfillment string             `json:"fulfillmentType"`
	SlotID      int64              `json:"slotId"`
	Postcode    string             `json:"postcode"`
	Address     string             `json:"address"`
	City        string             `json:"city"`
	Notes       string             `json:"notes"`
	Cart        []pricing.CartLine `json:"items"`
}

// FieldErrors maps field names to messages; the checkout UI renders them inline.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

type Session struct {
	RedirectURL string `json:"redirectUrl"`
	SessionID   string `json:"sessionId"`
}

// Initiator packages a validated order intent into a hosted Checkout session.
// It never creates the Order row: that happens only when the payment webhook
// arrives, so abandoned sessions leave nothing behind.
type Initiator struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
}

// Validate re-checks every field the webhook will need before any provider
// call is made.
func Validate(req Request, notesMaxLength int) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(req.Customer.Name) == "" {
		errs["customer.name"] = "Name is required"
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		errs["customer.email"] = "Email is required"
	} else if !strings.Contains(req.Customer.Email, "@") {
		errs["customer.email"] = "Email is invalid"
	}
	if req.Fulfillment != pricing.FulfillmentPickup && req.Fulfillment != pricing.FulfillmentDelivery {
		errs["fulfillmentType"] = "Fulfillment type must be PICKUP or DELIVERY"
	}
	if req.SlotID <= 0 {
		errs["slotId"] = "A time slot must be selected"
	}
	if len(req.Cart) == 0 {
		errs["items"] = "Cart is empty"
	}
	if req.Fulfillment == pricing.FulfillmentDelivery {
		if strings.TrimSpace(req.Address) == "" {
			errs["address"] = "Delivery address is required"
		}
		if pricing.NormalizePostcode(req.Postcode) == "" {
			errs["postcode"] = "Postcode is required for delivery"
		}
	}
	if notesMaxLength > 0 && len(req.Notes) > notesMaxLength {
		errs["notes"] = "Notes are too long"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type tenantRow struct {
	ID       int64
	Code     string
	Currency string
	Active   bool
}

// CreateSession validates the order intent, re-prices it server-side and
// creates the provider session. Returned errors are either FieldErrors,
// *pricing.Error, schedule.ErrSlotFull/ErrSlotNotFound, ErrTenantNotFound or
// a fault.
func (i *Initiator) CreateSession(ctx context.Context, tenantCode string, req Request) (*Session, error) {
	var tenant tenantRow
	err := i.DB.QueryRow(ctx, `
		select id, code, currency, is_active from tenants where code = $1
	`, tenantCode).Scan(&tenant.ID, &tenant.Code, &tenant.Currency, &tenant.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !tenant.Active {
		return nil, ErrTenantNotFound
	}

	settings, err := schedule.LoadSettings(ctx, i.DB, tenant.ID)
	if err != nil {
		return nil, err
	}

	if errs := Validate(req, settings.NotesMaxLength); errs != nil {
		return nil, errs
	}
	if !settings.FulfillmentEnabled(req.Fulfillment) {
		return nil, FieldErrors{"fulfillmentType": "This fulfillment type is not offered"}
	}

	cat, err := catalog.Load(ctx, i.DB, tenant.ID)
	if err != nil {
		return nil, err
	}
	zones, err := pricing.LoadZones(ctx, i.DB, tenant.ID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.ComputeQuote(req.Cart, cat, req.Fulfillment, req.Postcode, zones, i.fallbackFee(), settings.MinOrderValue)
	if err != nil {
		return nil, err
	}
	if quote.Minimum != nil {
		return nil, &pricing.Error{
			Code:       pricing.ErrMinOrderNotMet,
			Message:    "Order is below the minimum order value",
			StatusCode: 400,
			Details: map[string]any{
				"minimum":      quote.Minimum.Minimum,
				"amountNeeded": quote.Minimum.AmountNeeded,
			},
		}
	}

	// Advisory check only; the booking itself is the atomic increment at
	// order-materialization time.
	if _, err := schedule.SlotOpen(ctx, i.DB, tenant.ID, req.SlotID, settings, req.Fulfillment, time.Now()); err != nil {
		return nil, err
	}

	md := Metadata{
		TenantCode:    tenant.Code,
		Cart:          req.Cart,
		SlotID:        req.SlotID,
		Fulfillment:   req.Fulfillment,
		Postcode:      pricing.NormalizePostcode(req.Postcode),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		CustomerName:  strings.TrimSpace(req.Customer.Name),
		CustomerEmail: strings.TrimSpace(req.Customer.Email),
		CustomerPhone: strings.TrimSpace(req.Customer.Phone),
		Notes:         strings.TrimSpace(req.Notes),
	}

	currency := strings.ToLower(strings.TrimSpace(tenant.Currency))
	if currency == "" {
		currency = i.Config.Currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(i.Config.CheckoutSuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(i.Config.CheckoutCancelURL),
		CustomerEmail: stripe.String(md.CustomerEmail),
	}
	for _, line := range quote.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(utils.MinorUnits(line.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}
	if quote.DeliveryFee.GreaterThan(decimal.Zero) {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(utils.MinorUnits(quote.DeliveryFee)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Delivery"),
				},
			},
		})
	}
	for key, value := range md.ToMap() {
		params.AddMetadata(key, value)
	}

	out, err := session.New(params)
	if err != nil {
		i.Logger.Error("stripe session creation failed",
			zap.String("tenant", tenant.Code),
			zap.Error(err),
		)
		return nil, err
	}

	i.Logger.Info("checkout session created",
		zap.String("tenant", tenant.Code),
		zap.String("sessionId", out.ID),
		zap.String("total", quote.Total.StringFixed(2)),
	)
	return &Session{RedirectURL: out.URL, SessionID: out.ID}, nil
}

func (i *Initiator) fallbackFee() decimal.Decimal {
	fee, err := decimal.NewFromString(i.Config.FallbackDeliveryFee)
	if err != nil {
		return decimal.RequireFromString("10.00")
	}
	return fee
}
