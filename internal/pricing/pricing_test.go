package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"tablewood-catering-services/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Items: map[int64]catalog.MenuItem{
		1: {ID: 1, Name: "Lasagna tray", Price: decimal.RequireFromString("10.00"), Available: true, Published: true},
		2: {ID: 2, Name: "Focaccia", Price: decimal.RequireFromString("4.50"), Available: true, Published: true},
	}}
}

func TestSubtotalRepricesAgainstCatalog(t *testing.T) {
	lines, subtotal, warnings, err := Subtotal([]CartLine{
		{ItemID: 1, Quantity: 2},
		{ItemID: 2, Quantity: 3},
	}, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if got := subtotal.StringFixed(2); got != "33.50" {
		t.Fatalf("expected subtotal 33.50, got %s", got)
	}
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineTotal)
	}
	if !sum.Equal(subtotal) {
		t.Fatalf("line totals %s do not add up to subtotal %s", sum, subtotal)
	}
}

func TestSubtotalDropsMissingItems(t *testing.T) {
	lines, subtotal, warnings, err := Subtotal([]CartLine{
		{ItemID: 1, Quantity: 1},
		{ItemID: 99, Quantity: 2},
	}, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 surviving line, got %d", len(lines))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected a drop warning, got %v", warnings)
	}
	if got := subtotal.StringFixed(2); got != "10.00" {
		t.Fatalf("expected subtotal 10.00, got %s", got)
	}
}

func TestSubtotalFailsWhenCartDropsToEmpty(t *testing.T) {
	_, _, _, err := Subtotal([]CartLine{{ItemID: 99, Quantity: 1}}, testCatalog())
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected pricing error, got %v", err)
	}
	if perr.Code != ErrCartEmpty {
		t.Fatalf("expected CART_EMPTY, got %s", perr.Code)
	}
}

func TestSubtotalRejectsZeroQuantity(t *testing.T) {
	_, _, _, err := Subtotal([]CartLine{{ItemID: 1, Quantity: 0}}, testCatalog())
	perr, ok := err.(*Error)
	if !ok || perr.Code != ErrCartInvalid {
		t.Fatalf("expected CART_INVALID, got %v", err)
	}
}

func TestResolveDeliveryFee(t *testing.T) {
	zones := []Zone{
		{ID: 1, Prefix: "10", DeliveryFee: decimal.RequireFromString("5.00")},
		{ID: 2, Prefix: "30", DeliveryFee: decimal.RequireFromString("8.00")},
	}
	fallback := decimal.RequireFromString("10.00")

	cases := []struct {
		name        string
		fulfillment string
		postcode    string
		expectFee   string
		expectZone  *int64
	}{
		{"prefix match", FulfillmentDelivery, "1012AB", "5.00", ptrInt64(1)},
		{"other zone", FulfillmentDelivery, "3011 CD", "8.00", ptrInt64(2)},
		{"no match falls back non-zero", FulfillmentDelivery, "9999ZZ", "10.00", nil},
		{"pickup is always free", FulfillmentPickup, "1012AB", "0.00", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, zone := ResolveDeliveryFee(tc.fulfillment, tc.postcode, zones, fallback)
			if got := fee.StringFixed(2); got != tc.expectFee {
				t.Fatalf("expected fee %s, got %s", tc.expectFee, got)
			}
			if tc.expectZone == nil && zone != nil {
				t.Fatalf("expected no zone, got %d", zone.ID)
			}
			if tc.expectZone != nil && (zone == nil || zone.ID != *tc.expectZone) {
				t.Fatalf("expected zone %d, got %v", *tc.expectZone, zone)
			}
		})
	}
}

func TestResolveDeliveryFeeLongestPrefixWins(t *testing.T) {
	zones := []Zone{
		{ID: 1, Prefix: "10", DeliveryFee: decimal.RequireFromString("5.00")},
		{ID: 2, Prefix: "101", DeliveryFee: decimal.RequireFromString("3.50")},
	}
	fee, zone := ResolveDeliveryFee(FulfillmentDelivery, "1012AB", zones, decimal.RequireFromString("10.00"))
	if zone == nil || zone.ID != 2 {
		t.Fatalf("expected the longer prefix zone, got %v", zone)
	}
	if got := fee.StringFixed(2); got != "3.50" {
		t.Fatalf("expected 3.50, got %s", got)
	}
}

func TestCheckMinimumOrder(t *testing.T) {
	min := decimal.RequireFromString("20.00")

	violation := CheckMinimumOrder(decimal.RequireFromString("15.00"), min)
	if violation == nil {
		t.Fatal("expected a minimum order violation")
	}
	if got := violation.AmountNeeded.StringFixed(2); got != "5.00" {
		t.Fatalf("expected amountNeeded 5.00, got %s", got)
	}

	if CheckMinimumOrder(decimal.RequireFromString("20.00"), min) != nil {
		t.Fatal("subtotal at the minimum should pass")
	}
	if CheckMinimumOrder(decimal.RequireFromString("25.00"), min) != nil {
		t.Fatal("subtotal above the minimum should pass")
	}
	if CheckMinimumOrder(decimal.RequireFromString("1.00"), decimal.Zero) != nil {
		t.Fatal("zero minimum should never violate")
	}
}

func TestComputeQuoteTotals(t *testing.T) {
	zones := []Zone{{ID: 1, Prefix: "10", DeliveryFee: decimal.RequireFromString("5.00")}}
	quote, err := ComputeQuote(
		[]CartLine{{ItemID: 1, Quantity: 2}},
		testCatalog(),
		FulfillmentDelivery, "1012AB",
		zones,
		decimal.RequireFromString("10.00"),
		decimal.RequireFromString("15.00"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := quote.Total.StringFixed(2); got != "25.00" {
		t.Fatalf("expected total 25.00, got %s", got)
	}
	if !quote.Subtotal.Add(quote.DeliveryFee).Equal(quote.Total) {
		t.Fatal("subtotal + deliveryFee must equal total")
	}
	if quote.Minimum != nil {
		t.Fatalf("minimum met, expected no violation, got %+v", quote.Minimum)
	}
}

func TestComputeQuoteZoneMinimumOverride(t *testing.T) {
	zoneMin := decimal.RequireFromString("40.00")
	zones := []Zone{{ID: 1, Prefix: "10", DeliveryFee: decimal.RequireFromString("5.00"), MinOrderValue: &zoneMin}}
	quote, err := ComputeQuote(
		[]CartLine{{ItemID: 1, Quantity: 2}},
		testCatalog(),
		FulfillmentDelivery, "1012AB",
		zones,
		decimal.RequireFromString("10.00"),
		decimal.RequireFromString("15.00"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Minimum == nil {
		t.Fatal("expected the zone minimum to apply")
	}
	if got := quote.Minimum.AmountNeeded.StringFixed(2); got != "20.00" {
		t.Fatalf("expected amountNeeded 20.00, got %s", got)
	}
}

func TestComputeQuoteRequiresPostcodeForDelivery(t *testing.T) {
	_, err := ComputeQuote([]CartLine{{ItemID: 1, Quantity: 1}}, testCatalog(), FulfillmentDelivery, " ", nil, decimal.Zero, decimal.Zero)
	perr, ok := err.(*Error)
	if !ok || perr.Code != ErrPostcodeRequired {
		t.Fatalf("expected POSTCODE_REQUIRED, got %v", err)
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
