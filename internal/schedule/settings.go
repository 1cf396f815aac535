package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tablewood-catering-services/internal/utils"
)

type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Settings is the per-tenant scheduling configuration. It is loaded once per
// request and passed explicitly; the engine never reads ambient state.
type Settings struct {
	PickupEnabled        bool                `json:"pickupEnabled"`
	DeliveryEnabled      bool                `json:"deliveryEnabled"`
	LeadTimeMinutes      int                 `json:"leadTimeMinutes"`
	MinOrderValue        decimal.Decimal     `json:"minOrderValue"`
	BlackoutDates        []string            `json:"blackoutDates"`
	Hours                map[string]DayHours `json:"businessHours"`
	PickupSlotMinutes    int                 `json:"pickupSlotMinutes"`
	DeliverySlotMinutes  int                 `json:"deliverySlotMinutes"`
	PickupSlotCap        int32               `json:"pickupSlotCap"`
	DeliverySlotCap      int32               `json:"deliverySlotCap"`
	DailyOrderCap        *int32              `json:"dailyOrderCap"`
	NotesMaxLength       int                 `json:"notesMaxLength"`
	Timezone             string              `json:"timezone"`
}

func (s Settings) IsBlackout(date string) bool {
	for _, d := range s.BlackoutDates {
		if d == date {
			return true
		}
	}
	return false
}

func (s Settings) SlotMinutes(fulfillment string) int {
	if fulfillment == FulfillmentDelivery {
		return s.DeliverySlotMinutes
	}
	return s.PickupSlotMinutes
}

func (s Settings) SlotCap(fulfillment string) int32 {
	if fulfillment == FulfillmentDelivery {
		return s.DeliverySlotCap
	}
	return s.PickupSlotCap
}

func (s Settings) FulfillmentEnabled(fulfillment string) bool {
	switch fulfillment {
	case FulfillmentPickup:
		return s.PickupEnabled
	case FulfillmentDelivery:
		return s.DeliveryEnabled
	}
	return false
}

// HoursFor returns the opening hours for a weekday ("monday".."sunday");
// missing entries mean closed.
func (s Settings) HoursFor(weekday string) (DayHours, bool) {
	hours, ok := s.Hours[strings.ToLower(weekday)]
	if !ok || hours.Open == "" || hours.Close == "" {
		return DayHours{}, false
	}
	return hours, true
}

// defaultSettings applies until the tenant saves its own configuration.
func defaultSettings(timezone string) Settings {
	return Settings{
		PickupEnabled:       true,
		DeliveryEnabled:     true,
		LeadTimeMinutes:     120,
		MinOrderValue:       decimal.Zero,
		BlackoutDates:       []string{},
		Hours:               map[string]DayHours{},
		PickupSlotMinutes:   30,
		DeliverySlotMinutes: 120,
		PickupSlotCap:       4,
		DeliverySlotCap:     2,
		NotesMaxLength:      500,
		Timezone:            timezone,
	}
}

// LoadSettings reads business_settings joined with the tenant's timezone.
// Tenants without a saved row get the defaults.
func LoadSettings(ctx context.Context, db *pgxpool.Pool, tenantID int64) (Settings, error) {
	var (
		s             Settings
		minOrder      pgtype.Numeric
		blackoutRaw   []byte
		hoursRaw      []byte
		dailyOrderCap pgtype.Int4
	)
	err := db.QueryRow(ctx, `
		select bs.pickup_enabled, bs.delivery_enabled, bs.lead_time_minutes, bs.min_order_value,
		       bs.blackout_dates, bs.business_hours,
		       bs.pickup_slot_minutes, bs.delivery_slot_minutes,
		       bs.pickup_slot_cap, bs.delivery_slot_cap, bs.daily_order_cap,
		       bs.notes_max_length, t.timezone
		from business_settings bs
		join tenants t on t.id = bs.tenant_id
		where bs.tenant_id = $1
	`, tenantID).Scan(
		&s.PickupEnabled,
		&s.DeliveryEnabled,
		&s.LeadTimeMinutes,
		&minOrder,
		&blackoutRaw,
		&hoursRaw,
		&s.PickupSlotMinutes,
		&s.DeliverySlotMinutes,
		&s.PickupSlotCap,
		&s.DeliverySlotCap,
		&dailyOrderCap,
		&s.NotesMaxLength,
		&s.Timezone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		var timezone string
		if err := db.QueryRow(ctx, `select timezone from tenants where id = $1`, tenantID).Scan(&timezone); err != nil {
			return Settings{}, err
		}
		return defaultSettings(timezone), nil
	}
	if err != nil {
		return Settings{}, err
	}

	s.MinOrderValue = utils.NumericToDecimal(minOrder)
	if dailyOrderCap.Valid {
		s.DailyOrderCap = &dailyOrderCap.Int32
	}
	if len(blackoutRaw) > 0 {
		if err := json.Unmarshal(blackoutRaw, &s.BlackoutDates); err != nil {
			return Settings{}, err
		}
	}
	if len(hoursRaw) > 0 {
		if err := json.Unmarshal(hoursRaw, &s.Hours); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}
