package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tablewood-catering-services/internal/utils"
)

var (
	// ErrSlotFull is the capacity-conflict condition: the caller should ask
	// the customer to pick another slot, not treat it as a fault.
	ErrSlotFull     = errors.New("time slot is fully booked")
	ErrSlotNotFound = errors.New("time slot not found")
)

// EnsureSlots materializes slot rows for the visible horizon. Existing rows
// keep their booked counters, so capacity edits survive re-runs. Unbooked
// rows whose start no longer matches the generated grid (the admin changed a
// slot length) are pruned; booked rows from the old grid stay and their
// orders are honored.
func EnsureSlots(ctx context.Context, db *pgxpool.Pool, tenantID int64, s Settings, fulfillment string, now time.Time, horizonDays int) error {
	windows := Generate(s, fulfillment, now, horizonDays)
	if len(windows) == 0 {
		return nil
	}

	cap := s.SlotCap(fulfillment)
	loc := utils.LocationOrUTC(s.Timezone)
	starts := make([]time.Time, len(windows))
	for i, w := range windows {
		starts[i] = w.Start
		if _, err := db.Exec(ctx, `
			insert into time_slots (tenant_id, fulfillment_type, slot_date, start_at, end_at, max_orders)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (tenant_id, fulfillment_type, start_at) do nothing
		`, tenantID, fulfillment, w.Start.In(loc).Format("2006-01-02"), w.Start, w.End, cap); err != nil {
			return err
		}
	}

	_, err := db.Exec(ctx, `
		delete from time_slots
		where tenant_id = $1 and fulfillment_type = $2
		  and start_at >= $3 and current_orders = 0
		  and not (start_at = any($4))
	`, tenantID, fulfillment, now, starts)
	return err
}

// ListAvailable returns bookable slots grouped by date: lead time applied,
// blackout dates excluded, capacity state marked (full slots are returned
// flagged; hiding them is the caller's choice).
func ListAvailable(ctx context.Context, db *pgxpool.Pool, tenantID int64, s Settings, fulfillment string, now time.Time, horizonDays int) ([]DaySlots, error) {
	cutoff := now.Add(time.Duration(s.LeadTimeMinutes) * time.Minute)
	horizon := now.AddDate(0, 0, horizonDays)

	rows, err := db.Query(ctx, `
		select id, fulfillment_type, to_char(slot_date, 'YYYY-MM-DD'), start_at, end_at, max_orders, current_orders
		from time_slots
		where tenant_id = $1 and fulfillment_type = $2 and start_at >= $3 and start_at < $4
		order by start_at asc
	`, tenantID, fulfillment, cutoff, horizon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.ID, &slot.Fulfillment, &slot.Date, &slot.Start, &slot.End, &slot.MaxOrders, &slot.CurrentOrders); err != nil {
			return nil, err
		}
		if s.IsBlackout(slot.Date) {
			continue
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dayTotals := make(map[string]int32)
	if s.DailyOrderCap != nil {
		totalRows, err := db.Query(ctx, `
			select to_char(slot_date, 'YYYY-MM-DD'), coalesce(sum(current_orders), 0)
			from time_slots
			where tenant_id = $1 and start_at < $2
			group by slot_date
		`, tenantID, horizon)
		if err != nil {
			return nil, err
		}
		defer totalRows.Close()
		for totalRows.Next() {
			var date string
			var total int64
			if err := totalRows.Scan(&date, &total); err != nil {
				return nil, err
			}
			dayTotals[date] = int32(total)
		}
		if err := totalRows.Err(); err != nil {
			return nil, err
		}
	}

	return GroupByDate(ApplyCaps(slots, dayTotals, s.DailyOrderCap)), nil
}

// Book takes one seat in a slot with a single conditional increment, so two
// concurrent bookings can never both win the last seat. It must run in the
// same transaction as order creation.
func Book(ctx context.Context, tx pgx.Tx, tenantID, slotID int64) error {
	tag, err := tx.Exec(ctx, `
		update time_slots
		set current_orders = current_orders + 1
		where id = $1 and tenant_id = $2 and current_orders < max_orders
	`, slotID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
		select exists(select 1 from time_slots where id = $1 and tenant_id = $2)
	`, slotID, tenantID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrSlotNotFound
	}
	return ErrSlotFull
}

// Release frees a seat when an order is cancelled. Floored at zero; slots
// whose cap was lowered below the booked count simply stay full until enough
// orders drain (existing orders are grandfathered, never cancelled).
func Release(ctx context.Context, tx pgx.Tx, tenantID, slotID int64) error {
	_, err := tx.Exec(ctx, `
		update time_slots
		set current_orders = greatest(current_orders - 1, 0)
		where id = $1 and tenant_id = $2
	`, slotID, tenantID)
	return err
}

// SlotOpen reports whether a slot can still be booked; used by checkout
// validation before any payment-provider call. The authoritative check stays
// in Book.
func SlotOpen(ctx context.Context, db *pgxpool.Pool, tenantID, slotID int64, s Settings, fulfillment string, now time.Time) (Slot, error) {
	var slot Slot
	err := db.QueryRow(ctx, `
		select id, fulfillment_type, to_char(slot_date, 'YYYY-MM-DD'), start_at, end_at, max_orders, current_orders
		from time_slots
		where id = $1 and tenant_id = $2
	`, slotID, tenantID).Scan(&slot.ID, &slot.Fulfillment, &slot.Date, &slot.Start, &slot.End, &slot.MaxOrders, &slot.CurrentOrders)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Slot{}, ErrSlotNotFound
		}
		return Slot{}, err
	}

	if slot.Fulfillment != fulfillment {
		return Slot{}, ErrSlotNotFound
	}
	if slot.CurrentOrders >= slot.MaxOrders {
		return Slot{}, ErrSlotFull
	}
	if s.IsBlackout(slot.Date) {
		return Slot{}, ErrSlotNotFound
	}
	if !Bookable(slot.Start, now, s.LeadTimeMinutes) {
		return Slot{}, ErrSlotNotFound
	}

	// Day-cap check here is advisory like the rest of SlotOpen: Book only
	// guards the per-slot counter, so concurrent checkouts into different
	// slots of one day can still land slightly over the cap.
	if s.DailyOrderCap != nil {
		var total int64
		err := db.QueryRow(ctx, `
			select coalesce(sum(current_orders), 0)
			from time_slots
			where tenant_id = $1 and slot_date = $2
		`, tenantID, slot.Date).Scan(&total)
		if err != nil {
			return Slot{}, err
		}
		if DailyCapReached(int32(total), s.DailyOrderCap) {
			return Slot{}, ErrSlotFull
		}
	}
	return slot, nil
}
