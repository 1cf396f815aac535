package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/internal/utils"
)

const (
	FulfillmentPickup   = "PICKUP"
	FulfillmentDelivery = "DELIVERY"
)

type CartLine struct {
	ItemID   int64 `json:"itemId"`
	Quantity int32 `json:"quantity"`
}

type Line struct {
	ItemID    int64           `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int32           `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type Zone struct {
	ID            int64
	Name          string
	Prefix        string
	DeliveryFee   decimal.Decimal
	MinOrderValue *decimal.Decimal
}

// MinimumViolation reports how far a cart falls short of the order minimum.
type MinimumViolation struct {
	Minimum      decimal.Decimal `json:"minimum"`
	AmountNeeded decimal.Decimal `json:"amountNeeded"`
}

type Quote struct {
	Lines       []Line            `json:"lines"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"deliveryFee"`
	Total       decimal.Decimal   `json:"total"`
	ZoneID      *int64            `json:"zoneId"`
	Warnings    []string          `json:"warnings"`
	Minimum     *MinimumViolation `json:"minimumOrderViolation,omitempty"`
}

// Subtotal re-prices every cart line against the current catalog. Lines whose
// item is no longer orderable are dropped with a warning; a cart that drops to
// empty is an error, never a zero-priced order.
func Subtotal(cart []CartLine, cat *catalog.Catalog) ([]Line, decimal.Decimal, []string, error) {
	if len(cart) == 0 {
		return nil, decimal.Zero, nil, validationError(ErrCartEmpty, "Cart is empty", nil)
	}

	lines := make([]Line, 0, len(cart))
	warnings := make([]string, 0)
	subtotal := decimal.Zero

	for _, cl := range cart {
		if cl.Quantity < 1 {
			return nil, decimal.Zero, nil, validationError(ErrCartInvalid, "Item quantity must be at least 1", nil)
		}
		item, ok := cat.Item(cl.ItemID)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Item %d is no longer available and was removed from the order", cl.ItemID))
			continue
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt32(cl.Quantity)).Round(2)
		lines = append(lines, Line{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.Price.Round(2),
			Quantity:  cl.Quantity,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	if len(lines) == 0 {
		return nil, decimal.Zero, warnings, validationError(ErrCartEmpty, "No cart item is available anymore", map[string]any{
			"warnings": warnings,
		})
	}
	return lines, subtotal.Round(2), warnings, nil
}

// ResolveDeliveryFee matches the postcode against zone prefixes; the longest
// matching prefix wins. No match charges the fallback fee, never zero.
// Pickup orders always resolve to a zero fee.
func ResolveDeliveryFee(fulfillment, postcode string, zones []Zone, fallback decimal.Decimal) (decimal.Decimal, *Zone) {
	if fulfillment != FulfillmentDelivery {
		return decimal.Zero, nil
	}

	normalized := NormalizePostcode(postcode)
	var best *Zone
	for i := range zones {
		prefix := NormalizePostcode(zones[i].Prefix)
		if prefix == "" || !strings.HasPrefix(normalized, prefix) {
			continue
		}
		if best == nil || len(prefix) > len(NormalizePostcode(best.Prefix)) {
			best = &zones[i]
		}
	}
	if best == nil {
		return fallback.Round(2), nil
	}
	return best.DeliveryFee.Round(2), best
}

// CheckMinimumOrder returns the shortfall when the subtotal is under the
// configured minimum, nil when the minimum is met.
func CheckMinimumOrder(subtotal, minimum decimal.Decimal) *MinimumViolation {
	if minimum.LessThanOrEqual(decimal.Zero) || subtotal.GreaterThanOrEqual(minimum) {
		return nil
	}
	return &MinimumViolation{
		Minimum:      minimum.Round(2),
		AmountNeeded: minimum.Sub(subtotal).Round(2),
	}
}

// ComputeQuote is the full pricing pass used by the quote endpoint, checkout
// validation and the webhook's server-side re-derivation.
func ComputeQuote(cart []CartLine, cat *catalog.Catalog, fulfillment, postcode string, zones []Zone, fallbackFee, tenantMinimum decimal.Decimal) (*Quote, error) {
	lines, subtotal, warnings, err := Subtotal(cart, cat)
	if err != nil {
		return nil, err
	}

	if fulfillment == FulfillmentDelivery && NormalizePostcode(postcode) == "" {
		return nil, validationError(ErrPostcodeRequired, "Postcode is required for delivery", nil)
	}

	fee, zone := ResolveDeliveryFee(fulfillment, postcode, zones, fallbackFee)

	minimum := tenantMinimum
	if zone != nil && zone.MinOrderValue != nil {
		minimum = *zone.MinOrderValue
	}

	quote := &Quote{
		Lines:       lines,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee).Round(2),
		Warnings:    warnings,
		Minimum:     CheckMinimumOrder(subtotal, minimum),
	}
	if zone != nil {
		quote.ZoneID = &zone.ID
	}
	return quote, nil
}

func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
}

// LoadZones reads a tenant's delivery zone table; read-only at checkout time.
func LoadZones(ctx context.Context, db *pgxpool.Pool, tenantID int64) ([]Zone, error) {
	rows, err := db.Query(ctx, `
		select id, name, postcode_prefix, delivery_fee, min_order_value
		from delivery_zones
		where tenant_id = $1
		order by length(postcode_prefix) desc, postcode_prefix asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := make([]Zone, 0)
	for rows.Next() {
		var (
			zone     Zone
			fee      pgtype.Numeric
			minOrder pgtype.Numeric
		)
		if err := rows.Scan(&zone.ID, &zone.Name, &zone.Prefix, &fee, &minOrder); err != nil {
			return nil, err
		}
		zone.DeliveryFee = utils.NumericToDecimal(fee)
		if minOrder.Valid {
			value := utils.NumericToDecimal(minOrder)
			zone.MinOrderValue = &value
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}
