package bitmask

import (
	"testing"
)

func TestSetDayAndHas(t *testing.T) {
	cases := []struct {
		days []int
		day  int
		want bool
	}{
		{[]int{1}, 1, true},
		{[]int{1}, 2, false},
		{[]int{31}, 31, true},
		{[]int{1, 15, 31}, 15, true},
		{[]int{}, 1, false},
	}
	for _, c := range cases {
		var m Mask
		for _, d := range c.days {
			m = m.SetDay(d)
		}
		if got := m.Has(c.day); got != c.want {
			t.Errorf("Has(%d) after setting %v = %v, want %v", c.day, c.days, got, c.want)
		}
	}
}

func TestSetDayIdempotent(t *testing.T) {
	var m Mask
	once := m.SetDay(12)
	twice := once.SetDay(12)
	if once != twice {
		t.Errorf("SetDay(12) twice = %b, want %b", twice, once)
	}
	if got, want := len(twice.Days()), 1; got != want {
		t.Errorf("len(Days()) = %d, want %d", got, want)
	}
}

func TestSetDayOutOfRange(t *testing.T) {
	var m Mask
	for _, d := range []int{0, -1, 32, 100} {
		if got := m.SetDay(d); got != m {
			t.Errorf("SetDay(%d) = %b, want unchanged mask", d, got)
		}
		if m.Has(d) {
			t.Errorf("Has(%d) = true, want false", d)
		}
	}
}

func TestCount(t *testing.T) {
	var m Mask
	for _, d := range []int{1, 2, 3, 5} {
		m = m.SetDay(d)
	}
	if got := m.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}

func TestDays(t *testing.T) {
	var m Mask
	for _, d := range []int{5, 1, 3, 2} {
		m = m.SetDay(d)
	}
	got := m.Days()
	want := []int{1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("Days() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Days() = %v, want %v", got, want)
		}
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	var m Mask
	for _, d := range []int{1, 2, 3, 5, 31} {
		m = m.SetDay(d)
	}
	encoded := m.Encode()
	if len(encoded) != Width {
		t.Fatalf("len(Encode()) = %d, want %d", len(encoded), Width)
	}
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", encoded, err)
	}
	if parsed != m {
		t.Errorf("Parse(Encode()) = %b, want %b", parsed, m)
	}
}

func TestEncodeFixedWidth(t *testing.T) {
	m := Mask(0).SetDay(1)
	want := "1000000000000000000000000000000"
	if got := m.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestParseShortString(t *testing.T) {
	// Legacy rows may hold truncated masks; the right side pads with zeros.
	m, err := Parse("101")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !m.Has(1) || m.Has(2) || !m.Has(3) || m.Has(4) {
		t.Errorf("Parse(\"101\") decoded wrong days: %v", m.Days())
	}
}

func TestParseInvalid(t *testing.T) {
	invalid := []string{"10a", "2", "1111111111111111111111111111111100"}
	for _, s := range invalid {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) = nil error, want error", s)
		}
	}
}
