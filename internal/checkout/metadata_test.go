package checkout

import (
	"testing"

	"tablewood-catering-services/internal/pricing"
)

func TestCartCodecRoundTrip(t *testing.T) {
	cart := []pricing.CartLine{
		{ItemID: 12, Quantity: 2},
		{ItemID: 7, Quantity: 1},
	}
	encoded := EncodeCart(cart)
	if encoded != "12:2|7:1" {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	decoded, err := DecodeCart(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != cart[0] || decoded[1] != cart[1] {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodeCartRejectsGarbage(t *testing.T) {
	cases := []string{"", "abc", "1:", ":2", "1:0", "-4:2", "1:2|", "1;2"}
	for _, input := range cases {
		if _, err := DecodeCart(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func validMetadataMap() map[string]string {
	return Metadata{
		TenantCode:    "tablewood",
		Cart:          []pricing.CartLine{{ItemID: 1, Quantity: 2}},
		SlotID:        42,
		Fulfillment:   pricing.FulfillmentDelivery,
		Postcode:      "1012AB",
		Address:       "Canal Street 1",
		City:          "Amsterdam",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	}.ToMap()
}

func TestParseMetadataRoundTrip(t *testing.T) {
	md, err := ParseMetadata(validMetadataMap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.TenantCode != "tablewood" || md.SlotID != 42 {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if len(md.Cart) != 1 || md.Cart[0].ItemID != 1 || md.Cart[0].Quantity != 2 {
		t.Fatalf("unexpected cart: %+v", md.Cart)
	}
}

func TestParseMetadataMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing tenant", func(m map[string]string) { delete(m, "tenant") }},
		{"missing cart", func(m map[string]string) { delete(m, "cart") }},
		{"missing slot", func(m map[string]string) { delete(m, "slot") }},
		{"bad slot", func(m map[string]string) { m["slot"] = "zero" }},
		{"bad fulfillment", func(m map[string]string) { m["fulfillment"] = "TELEPORT" }},
		{"missing customer", func(m map[string]string) { delete(m, "customerEmail") }},
		{"delivery without address", func(m map[string]string) { delete(m, "address") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := validMetadataMap()
			tc.mutate(values)
			if _, err := ParseMetadata(values); err == nil {
				t.Fatal("expected a parse error")
			}
		})
	}
}

func TestParseMetadataPickupNeedsNoAddress(t *testing.T) {
	values := validMetadataMap()
	values["fulfillment"] = pricing.FulfillmentPickup
	delete(values, "address")
	delete(values, "postcode")
	if _, err := ParseMetadata(values); err != nil {
		t.Fatalf("pickup should not require an address: %v", err)
	}
}

func TestValidate(t *testing.T) {
	req := Request{
		Customer:    Customer{Name: "Ada", Email: "ada@example.com"},
		Fulfillment: pricing.FulfillmentPickup,
		SlotID:      1,
		Cart:        []pricing.CartLine{{ItemID: 1, Quantity: 1}},
	}
	if errs := Validate(req, 500); errs != nil {
		t.Fatalf("expected valid request, got %v", errs)
	}

	bad := req
	bad.Customer.Email = "nope"
	bad.SlotID = 0
	bad.Cart = nil
	errs := Validate(bad, 500)
	for _, field := range []string{"customer.email", "slotId", "items"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}

	delivery := req
	delivery.Fulfillment = pricing.FulfillmentDelivery
	errs = Validate(delivery, 500)
	for _, field := range []string{"address", "postcode"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
}
