package engine

import (
	"time"

	"hotel_rates/internal/domain"
)

// Matches reports whether rule applies to (room, date) under ctx.
// Side-effect free; every check is conjunctive.
func Matches(rule domain.PricingRule, room domain.Room, date time.Time, ctx domain.BookingContext) bool {
	if !rule.Active {
		return false
	}
	d := domain.Date(date)
	if d.Before(domain.Date(rule.StartDate)) || d.After(domain.Date(rule.EndDate)) {
		return false
	}
	if rule.HotelID != nil && *rule.HotelID != room.HotelID {
		return false
	}
	if rule.Category != nil && *rule.Category != room.Category {
		return false
	}
	if rule.MinNights != nil && ctx.Nights < *rule.MinNights {
		return false
	}
	if rule.MaxNights != nil && ctx.Nights > *rule.MaxNights {
		return false
	}
	switch rule.Type {
	case domain.RuleAdvanceBooking:
		if rule.MinLeadDays != nil && ctx.LeadTimeDays < *rule.MinLeadDays {
			return false
		}
		if rule.MaxLeadDays != nil && ctx.LeadTimeDays > *rule.MaxLeadDays {
			return false
		}
	case domain.RuleDayOfWeek:
		// Empty mask matches every day.
		if len(rule.Weekdays) > 0 && !weekdayIn(rule.Weekdays, d.Weekday()) {
			return false
		}
	}
	return true
}

func weekdayIn(mask []time.Weekday, wd time.Weekday) bool {
	for _, m := range mask {
		if m == wd {
			return true
		}
	}
	return false
}
