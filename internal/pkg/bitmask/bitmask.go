// Package bitmask implements the month presence mask: a fixed 31-bit set
// where bit d-1 records attendance on day d of the month.
package bitmask

import (
	"fmt"
	"math/bits"
)

// Width is the number of days a mask can hold. Months shorter than 31 days
// simply never set the trailing bits; the codec does not know month lengths.
const Width = 31

// Mask is a 31-day presence set. The zero value is an empty month.
type Mask uint32

// SetDay marks day (1-31) as present. Setting an already-set day is a no-op.
// Days outside [1, Width] are a caller bug and are ignored.
func (m Mask) SetDay(day int) Mask {
	if day < 1 || day > Width {
		return m
	}
	return m | 1<<(day-1)
}

// Has reports whether day is marked present.
func (m Mask) Has(day int) bool {
	if day < 1 || day > Width {
		return false
	}
	return m&(1<<(day-1)) != 0
}

// Count returns the number of present days.
func (m Mask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Days decodes the mask into ascending day numbers.
func (m Mask) Days() []int {
	days := make([]int, 0, m.Count())
	for day := 1; day <= Width; day++ {
		if m.Has(day) {
			days = append(days, day)
		}
	}
	return days
}

// Encode renders the mask as a fixed 31-character binary string, day 1
// first. The width is fixed so trailing zeros are never truncated away.
func (m Mask) Encode() string {
	buf := make([]byte, Width)
	for day := 1; day <= Width; day++ {
		if m.Has(day) {
			buf[day-1] = '1'
		} else {
			buf[day-1] = '0'
		}
	}
	return string(buf)
}

// Parse decodes a string produced by Encode. Strings shorter than Width are
// treated as zero-padded on the right, so masks stored before a day was
// marked still round-trip.
func Parse(s string) (Mask, error) {
	if len(s) > Width {
		return 0, fmt.Errorf("bitmask: string too long: %d characters", len(s))
	}
	var m Mask
	for i, c := range s {
		switch c {
		case '1':
			m = m.SetDay(i + 1)
		case '0':
		default:
			return 0, fmt.Errorf("bitmask: invalid character %q at position %d", c, i)
		}
	}
	return m, nil
}
