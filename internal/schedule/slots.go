package schedule

import (
	"strings"
	"time"

	"tablewood-catering-services/internal/utils"
)

const (
	FulfillmentPickup   = "PICKUP"
	FulfillmentDelivery = "DELIVERY"
)

func ValidFulfillment(value string) bool {
	return value == FulfillmentPickup || value == FulfillmentDelivery
}

type Window struct {
	Start time.Time
	End   time.Time
}

type Slot struct {
	ID            int64     `json:"id"`
	Fulfillment   string    `json:"fulfillmentType"`
	Date          string    `json:"date"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	MaxOrders     int32     `json:"maxOrders"`
	CurrentOrders int32     `json:"currentOrders"`
	Full          bool      `json:"full"`
}

type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Generate enumerates candidate windows for the horizon from business hours.
// Blackout dates and closed weekdays yield nothing. Windows are slotMinutes
// long and step by their own length, so they never overlap.
func Generate(s Settings, fulfillment string, now time.Time, horizonDays int) []Window {
	length := s.SlotMinutes(fulfillment)
	if length <= 0 || horizonDays <= 0 || !s.FulfillmentEnabled(fulfillment) {
		return nil
	}

	loc := utils.LocationOrUTC(s.Timezone)
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	windows := make([]Window, 0)
	for d := 0; d < horizonDays; d++ {
		date := day.AddDate(0, 0, d)
		if s.IsBlackout(date.Format("2006-01-02")) {
			continue
		}
		hours, open := s.HoursFor(strings.ToLower(date.Weekday().String()))
		if !open {
			continue
		}
		openAt, ok1 := atClock(date, hours.Open, loc)
		closeAt, ok2 := atClock(date, hours.Close, loc)
		if !ok1 || !ok2 || !openAt.Before(closeAt) {
			continue
		}
		step := time.Duration(length) * time.Minute
		for start := openAt; !start.Add(step).After(closeAt); start = start.Add(step) {
			windows = append(windows, Window{Start: start, End: start.Add(step)})
		}
	}
	return windows
}

// Bookable reports whether a window start still clears the lead-time cutoff.
func Bookable(start, now time.Time, leadMinutes int) bool {
	return !start.Before(now.Add(time.Duration(leadMinutes) * time.Minute))
}

// DailyCapReached reports whether a day's booked total exhausts the optional
// daily order cap.
func DailyCapReached(total int32, dailyCap *int32) bool {
	return dailyCap != nil && total >= *dailyCap
}

// ApplyCaps marks slots full against their own cap and, when configured, the
// daily order cap; the tightest limit wins. dayTotals counts booked orders
// per date across all fulfillment types.
func ApplyCaps(slots []Slot, dayTotals map[string]int32, dailyCap *int32) []Slot {
	out := make([]Slot, len(slots))
	for i, slot := range slots {
		slot.Full = slot.CurrentOrders >= slot.MaxOrders
		if !slot.Full && DailyCapReached(dayTotals[slot.Date], dailyCap) {
			slot.Full = true
		}
		out[i] = slot
	}
	return out
}

// GroupByDate groups chronologically sorted slots into per-date buckets.
func GroupByDate(slots []Slot) []DaySlots {
	days := make([]DaySlots, 0)
	for _, slot := range slots {
		if n := len(days); n > 0 && days[n-1].Date == slot.Date {
			days[n-1].Slots = append(days[n-1].Slots, slot)
			continue
		}
		days = append(days, DaySlots{Date: slot.Date, Slots: []Slot{slot}})
	}
	return days
}

func atClock(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), true
}
