package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room is immutable during rate resolution; the engine never writes rooms.
type Room struct {
	ID           int64           `json:"id"`
	HotelID      int64           `json:"hotel_id"`
	Category     string          `json:"category"`
	BasePrice    decimal.Decimal `json:"base_price"`
	Active       bool            `json:"is_active"`
	MaxOccupancy int             `json:"max_occupancy"`
}

// Date normalizes t to midnight UTC. All engine dates are day-granular;
// comparing normalized dates with Equal/Before/After is safe.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DatesBetween expands an inclusive [start, end] day range.
// Returns nil when end precedes start.
func DatesBetween(start, end time.Time) []time.Time {
	start, end = Date(start), Date(end)
	if end.Before(start) {
		return nil
	}
	out := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// BookingContext carries the stay-shaped inputs rule matching needs
// beyond the bare calendar date.
type BookingContext struct {
	Nights       int          `json:"nights"`
	Weekday      time.Weekday `json:"weekday"`
	LeadTimeDays int          `json:"lead_time_days"`
}

// NewBookingContext derives the weekday and the booking lead time for a
// stay of the given length on date, as seen from now.
func NewBookingContext(now, date time.Time, nights int) BookingContext {
	lead := int(Date(date).Sub(Date(now)).Hours() / 24)
	if lead < 0 {
		lead = 0
	}
	return BookingContext{Nights: nights, Weekday: Date(date).Weekday(), LeadTimeDays: lead}
}
