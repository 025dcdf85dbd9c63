// Package date holds the calendar day a bank transaction is booked on.
package date

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the text form of a Date.
const Layout = time.DateOnly

// lenient also reads single-digit months and days, like "2025-7-1".
const lenient = "2006-1-2"

// Date is a day without time zone. The zero value is no day at all.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns the Date of year, month and day, normalized like time.Date
// does: New(2024, 2, 30) is March 1st.
func New(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y, m, d}
}

// Parse reads a date in Layout, leniently.
func Parse(s string) (Date, error) { return ParseLayout(lenient, s) }

// ParseLayout reads a date in a time layout, as bank exports rarely agree on one.
func ParseLayout(layout, s string) (Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q for layout %q", s, layout)
	}
	return New(t.Date()), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Midnight returns the start of d in UTC.
func (d Date) Midnight() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) String() string { return d.Midnight().Format(Layout) }

// MarshalText implements encoding.TextMarshaler, for JSON and YAML alike.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("cannot marshal the zero date")
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
