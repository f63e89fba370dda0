package pack

import "testing"

func TestPackTripRoundTrip(t *testing.T) {
	cases := []struct{ routeID, serviceID string }{
		{"49", "180"},
		{"150", "1"},
		{"", ""},
		{"123456789012", "1234"}, // exactly field width
		{"Busée", "1"},      // non-ASCII
	}

	for _, c := range cases {
		p, err := PackTrip(c.routeID, c.serviceID)
		if err != nil {
			t.Fatalf("PackTrip(%q, %q): %v", c.routeID, c.serviceID, err)
		}
		gotRoute, gotService := UnpackTrip(p)
		if gotRoute != c.routeID || gotService != c.serviceID {
			t.Errorf("round trip mismatch: got (%q, %q), want (%q, %q)", gotRoute, gotService, c.routeID, c.serviceID)
		}
	}
}

func TestPackTripTooLong(t *testing.T) {
	if _, err := PackTrip("1234567890123", "1"); err == nil {
		t.Error("expected error for route_id exceeding field width")
	}
	if _, err := PackTrip("1", "12345"); err == nil {
		t.Error("expected error for service_id exceeding field width")
	}
}

func TestPackStopTimeRoundTrip(t *testing.T) {
	cases := []struct {
		tripID                          string
		arrivalH, arrivalM, arrivalS, seq int8
	}{
		{"3582_11643", 9, 15, 50, 12},
		{"3582_6405", 25, 10, 0, 78}, // post-midnight, pre-mod hour preserved
		{"", 0, 0, 0, 0},
		{"123456789012", 23, 59, 59, 127},
	}

	for _, c := range cases {
		p, err := PackStopTime(c.tripID, c.arrivalH, c.arrivalM, c.arrivalS, c.seq)
		if err != nil {
			t.Fatalf("PackStopTime(%q): %v", c.tripID, err)
		}
		tripID, h, m, s, seq := UnpackStopTime(p)
		if tripID != c.tripID || h != c.arrivalH || m != c.arrivalM || s != c.arrivalS || seq != c.seq {
			t.Errorf("round trip mismatch for %q: got (%q,%d,%d,%d,%d)", c.tripID, tripID, h, m, s, seq)
		}
	}
}

func TestPackStopTimeTooLong(t *testing.T) {
	if _, err := PackStopTime("1234567890123", 0, 0, 0, 0); err == nil {
		t.Error("expected error for trip_id exceeding field width")
	}
}

func TestUTF8RoundTrip(t *testing.T) {
	// Field-width exercised with multi-byte runes, confirming getFixed never
	// slices a PackedTrip/PackedStopTime field mid-rune.
	strs := []string{"", "a", "Busée", "日本"}
	for _, s := range strs {
		dst := make([]byte, 12)
		if err := putFixed(dst, s); err != nil {
			continue // longer than field width, not a round-trip candidate
		}
		if got := getFixed(dst); got != s {
			t.Errorf("UTF-8 round trip: putFixed/getFixed(%q) = %q", s, got)
		}
	}
}
