package handlers

import "testing"

func TestBulkMenuActionUpdate(t *testing.T) {
	cases := []struct {
		action string
		column string
		value  bool
		ok     bool
	}{
		{"AVAILABLE", "is_available", true, true},
		{"UNAVAILABLE", "is_available", false, true},
		{"PUBLISH", "is_published", true, true},
		{"UNPUBLISH", "is_published", false, true},
		{"publish", "is_published", true, true},
		{" available ", "is_available", true, true},
		{"DELETE", "", false, false},
		{"", "", false, false},
		{"is_available = true; drop table menu_items", "", false, false},
	}
	for _, tc := range cases {
		column, value, ok := BulkMenuActionUpdate(tc.action)
		if column != tc.column || value != tc.value || ok != tc.ok {
			t.Fatalf("BulkMenuActionUpdate(%q) = (%q, %v, %v), expected (%q, %v, %v)",
				tc.action, column, value, ok, tc.column, tc.value, tc.ok)
		}
	}
}
