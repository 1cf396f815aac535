package schedule

import (
	"testing"
	"time"
)

func testSettings() Settings {
	return Settings{
		PickupEnabled:       true,
		DeliveryEnabled:     true,
		LeadTimeMinutes:     120,
		PickupSlotMinutes:   30,
		DeliverySlotMinutes: 120,
		PickupSlotCap:       4,
		DeliverySlotCap:     2,
		Timezone:            "UTC",
		Hours: map[string]DayHours{
			"monday":  {Open: "10:00", Close: "18:00"},
			"tuesday": {Open: "10:00", Close: "18:00"},
		},
	}
}

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func TestGeneratePickupWindows(t *testing.T) {
	windows := Generate(testSettings(), FulfillmentPickup, monday, 1)

	// 10:00-18:00 in 30 minute steps: 16 windows.
	if len(windows) != 16 {
		t.Fatalf("expected 16 pickup windows, got %d", len(windows))
	}
	first := windows[0]
	if got := first.Start.Format("15:04"); got != "10:00" {
		t.Fatalf("expected first window at 10:00, got %s", got)
	}
	if got := first.End.Sub(first.Start); got != 30*time.Minute {
		t.Fatalf("expected 30m windows, got %s", got)
	}
	last := windows[len(windows)-1]
	if got := last.End.Format("15:04"); got != "18:00" {
		t.Fatalf("expected last window to end at close, got %s", got)
	}
}

func TestGenerateDeliveryWindowsAreWider(t *testing.T) {
	windows := Generate(testSettings(), FulfillmentDelivery, monday, 1)
	if len(windows) != 4 {
		t.Fatalf("expected 4 delivery windows, got %d", len(windows))
	}
	if got := windows[0].End.Sub(windows[0].Start); got != 2*time.Hour {
		t.Fatalf("expected 2h delivery windows, got %s", got)
	}
}

func TestGenerateSkipsBlackoutDates(t *testing.T) {
	s := testSettings()
	s.BlackoutDates = []string{"2026-01-05"}

	windows := Generate(s, FulfillmentPickup, monday, 2)
	for _, w := range windows {
		if w.Start.Format("2006-01-02") == "2026-01-05" {
			t.Fatalf("blackout date produced a window at %s", w.Start)
		}
	}
	// Tuesday is still open.
	if len(windows) != 16 {
		t.Fatalf("expected 16 windows on the remaining day, got %d", len(windows))
	}
}

func TestGenerateSkipsClosedWeekdays(t *testing.T) {
	// Wednesday has no hours configured.
	wednesday := time.Date(2026, 1, 7, 8, 0, 0, 0, time.UTC)
	if windows := Generate(testSettings(), FulfillmentPickup, wednesday, 1); len(windows) != 0 {
		t.Fatalf("expected no windows on a closed day, got %d", len(windows))
	}
}

func TestGenerateDisabledFulfillment(t *testing.T) {
	s := testSettings()
	s.DeliveryEnabled = false
	if windows := Generate(s, FulfillmentDelivery, monday, 1); len(windows) != 0 {
		t.Fatalf("expected no windows for a disabled fulfillment type, got %d", len(windows))
	}
}

func TestBookable(t *testing.T) {
	windows := Generate(testSettings(), FulfillmentPickup, monday, 1)

	// At 08:00 with a 120 minute lead time, the 10:00 window is still allowed.
	for _, w := range windows {
		if !Bookable(w.Start, monday, 120) {
			t.Fatalf("window at %s must be bookable at 08:00", w.Start)
		}
	}

	// At 09:30 the 10:00 and 11:00 windows are too imminent.
	later := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	kept := 0
	first := ""
	for _, w := range windows {
		if Bookable(w.Start, later, 120) {
			if kept == 0 {
				first = w.Start.Format("15:04")
			}
			kept++
		}
	}
	if kept != 13 {
		t.Fatalf("expected 13 bookable windows at 09:30, got %d", kept)
	}
	if first != "11:30" {
		t.Fatalf("expected first bookable window at 11:30, got %s", first)
	}

	// A window starting exactly at the cutoff is still bookable.
	if !Bookable(later.Add(120*time.Minute), later, 120) {
		t.Fatal("window at the cutoff boundary must be bookable")
	}
}

func TestGenerateGridChangeLeavesStaleStarts(t *testing.T) {
	s := testSettings()
	before := Generate(s, FulfillmentPickup, monday, 1)
	s.PickupSlotMinutes = 45
	after := Generate(s, FulfillmentPickup, monday, 1)

	starts := make(map[time.Time]bool)
	for _, w := range after {
		starts[w.Start] = true
	}
	stale := 0
	for _, w := range before {
		if !starts[w.Start] {
			stale++
		}
	}
	// Old-grid rows no longer matching any generated start are what the
	// store prunes when unbooked.
	if stale == 0 {
		t.Fatal("changing the slot length must strand old-grid starts")
	}
}

func TestApplyCapsSlotCap(t *testing.T) {
	slots := []Slot{
		{ID: 1, Date: "2026-01-05", MaxOrders: 2, CurrentOrders: 1},
		{ID: 2, Date: "2026-01-05", MaxOrders: 2, CurrentOrders: 2},
		{ID: 3, Date: "2026-01-05", MaxOrders: 1, CurrentOrders: 3},
	}
	marked := ApplyCaps(slots, nil, nil)
	if marked[0].Full {
		t.Fatal("slot under its cap must not be full")
	}
	if !marked[1].Full || !marked[2].Full {
		t.Fatal("slots at or above their cap must be full")
	}
}

func TestApplyCapsDailyCapIsTightest(t *testing.T) {
	dailyCap := int32(5)
	slots := []Slot{
		{ID: 1, Date: "2026-01-05", MaxOrders: 4, CurrentOrders: 0},
		{ID: 2, Date: "2026-01-06", MaxOrders: 4, CurrentOrders: 0},
	}
	totals := map[string]int32{"2026-01-05": 5, "2026-01-06": 2}

	marked := ApplyCaps(slots, totals, &dailyCap)
	if !marked[0].Full {
		t.Fatal("day at the daily cap must mark its slots full")
	}
	if marked[1].Full {
		t.Fatal("day under the daily cap must stay open")
	}
}

func TestDailyCapReached(t *testing.T) {
	cap := int32(5)
	cases := []struct {
		total   int32
		cap     *int32
		reached bool
	}{
		{0, &cap, false},
		{4, &cap, false},
		{5, &cap, true},
		{9, &cap, true},
		{100, nil, false},
	}
	for _, tc := range cases {
		if got := DailyCapReached(tc.total, tc.cap); got != tc.reached {
			t.Fatalf("DailyCapReached(%d, %v) = %v, expected %v", tc.total, tc.cap, got, tc.reached)
		}
	}
}

func TestGroupByDate(t *testing.T) {
	slots := []Slot{
		{ID: 1, Date: "2026-01-05"},
		{ID: 2, Date: "2026-01-05"},
		{ID: 3, Date: "2026-01-06"},
	}
	days := GroupByDate(slots)
	if len(days) != 2 {
		t.Fatalf("expected 2 day groups, got %d", len(days))
	}
	if days[0].Date != "2026-01-05" || len(days[0].Slots) != 2 {
		t.Fatalf("unexpected first group: %+v", days[0])
	}
	if days[1].Date != "2026-01-06" || len(days[1].Slots) != 1 {
		t.Fatalf("unexpected second group: %+v", days[1])
	}
}
