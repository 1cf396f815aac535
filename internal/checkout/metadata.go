package checkout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tablewood-catering-services/internal/pricing"
)

// Session metadata carries only identifiers (item ids, quantities, slot id,
// postcode), never computed totals. The webhook re-derives every amount from
// the live catalog, so a tampered or stale snapshot can't set prices.

type Metadata struct {
	TenantCode    string
	Cart          []pricing.CartLine
	SlotID        int64
	Fulfillment   string
	Postcode      string
	Address       string
	City          string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

// EncodeCart renders a cart as "id:qty|id:qty", compact enough for the
// provider's metadata value limits.
func EncodeCart(cart []pricing.CartLine) string {
	parts := make([]string, 0, len(cart))
	for _, line := range cart {
		parts = append(parts, fmt.Sprintf("%d:%d", line.ItemID, line.Quantity))
	}
	return strings.Join(parts, "|")
}

func DecodeCart(encoded string) ([]pricing.CartLine, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("cart metadata is empty")
	}
	parts := strings.Split(encoded, "|")
	cart := make([]pricing.CartLine, 0, len(parts))
	for _, part := range parts {
		idQty := strings.SplitN(part, ":", 2)
		if len(idQty) != 2 {
			return nil, fmt.Errorf("malformed cart entry %q", part)
		}
		id, err := strconv.ParseInt(idQty[0], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("malformed item id %q", idQty[0])
		}
		qty, err := strconv.ParseInt(idQty[1], 10, 32)
		if err != nil || qty < 1 {
			return nil, fmt.Errorf("malformed quantity %q", idQty[1])
		}
		cart = append(cart, pricing.CartLine{ItemID: id, Quantity: int32(qty)})
	}
	return cart, nil
}

func (m Metadata) ToMap() map[string]string {
	out := map[string]string{
		"tenant":        m.TenantCode,
		"cart":          EncodeCart(m.Cart),
		"fulfillment":   m.Fulfillment,
		"slot":          strconv.FormatInt(m.SlotID, 10),
		"customerName":  m.CustomerName,
		"customerEmail": m.CustomerEmail,
	}
	setIfNotEmpty(out, "postcode", m.Postcode)
	setIfNotEmpty(out, "address", m.Address)
	setIfNotEmpty(out, "city", m.City)
	setIfNotEmpty(out, "customerPhone", m.CustomerPhone)
	setIfNotEmpty(out, "notes", m.Notes)
	return out
}

// ParseMetadata reconstructs the order intent from a provider session. Any
// missing required field is a permanent failure: retrying the delivery can
// never fix it.
func ParseMetadata(values map[string]string) (Metadata, error) {
	md := Metadata{
		TenantCode:    strings.TrimSpace(values["tenant"]),
		Fulfillment:   strings.TrimSpace(values["fulfillment"]),
		Postcode:      strings.TrimSpace(values["postcode"]),
		Address:       strings.TrimSpace(values["address"]),
		City:          strings.TrimSpace(values["city"]),
		CustomerName:  strings.TrimSpace(values["customerName"]),
		CustomerEmail: strings.TrimSpace(values["customerEmail"]),
		CustomerPhone: strings.TrimSpace(values["customerPhone"]),
		Notes:         values["notes"],
	}

	if md.TenantCode == "" {
		return Metadata{}, errors.New("metadata is missing tenant")
	}
	if md.Fulfillment != pricing.FulfillmentPickup && md.Fulfillment != pricing.FulfillmentDelivery {
		return Metadata{}, fmt.Errorf("metadata has invalid fulfillment %q", values["fulfillment"])
	}
	if md.CustomerName == "" || md.CustomerEmail == "" {
		return Metadata{}, errors.New("metadata is missing customer contact")
	}
	if md.Fulfillment == pricing.FulfillmentDelivery && (md.Postcode == "" || md.Address == "") {
		return Metadata{}, errors.New("metadata is missing delivery address")
	}

	cart, err := DecodeCart(values["cart"])
	if err != nil {
		return Metadata{}, err
	}
	md.Cart = cart

	slotRaw := strings.TrimSpace(values["slot"])
	if slotRaw == "" {
		return Metadata{}, errors.New("metadata is missing slot")
	}
	slotID, err := strconv.ParseInt(slotRaw, 10, 64)
	if err != nil || slotID <= 0 {
		return Metadata{}, fmt.Errorf("malformed slot id %q", slotRaw)
	}
	md.SlotID = slotID

	return md, nil
}

func setIfNotEmpty(values map[string]string, key, value string) {
	if strings.TrimSpace(value) != "" {
		values[key] = value
	}
}
