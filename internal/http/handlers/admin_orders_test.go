package handlers

import "testing"

func TestAdminOrderStatusTargets(t *testing.T) {
	// The back office may set any state, including corrections that skip a
	// step or rewind the flow.
	targets := []struct{ from, to string }{
		{OrderStatusConfirmed, OrderStatusReady},
		{OrderStatusCompleted, OrderStatusPreparing},
		{OrderStatusReady, OrderStatusConfirmed},
		{OrderStatusCancelled, OrderStatusConfirmed},
		{OrderStatusConfirmed, OrderStatusCancelled},
	}
	for _, tc := range targets {
		if !ValidOrderStatus(tc.to) {
			t.Fatalf("expected %s -> %s to be a settable target", tc.from, tc.to)
		}
	}

	for _, status := range []string{"REFUNDED", "confirmed", "DONE", ""} {
		if ValidOrderStatus(status) {
			t.Fatalf("expected %q to be rejected", status)
		}
	}
}

func TestSlotSeatDelta(t *testing.T) {
	cases := []struct {
		from, to string
		delta    int
	}{
		{OrderStatusConfirmed, OrderStatusCancelled, -1},
		{OrderStatusReady, OrderStatusCancelled, -1},
		{OrderStatusCancelled, OrderStatusConfirmed, 1},
		{OrderStatusCancelled, OrderStatusPreparing, 1},
		{OrderStatusConfirmed, OrderStatusReady, 0},
		{OrderStatusCompleted, OrderStatusPreparing, 0},
		{OrderStatusReady, OrderStatusCompleted, 0},
	}
	for _, tc := range cases {
		if got := SlotSeatDelta(tc.from, tc.to); got != tc.delta {
			t.Fatalf("SlotSeatDelta(%s, %s) = %d, expected %d", tc.from, tc.to, got, tc.delta)
		}
	}
}
