package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RuleSeasonal       RuleType = "seasonal"
	RuleAdvanceBooking RuleType = "advance_booking"
	RuleLengthOfStay   RuleType = "length_of_stay"
	RuleDayOfWeek      RuleType = "day_of_week"
	RuleOccupancy      RuleType = "occupancy"
	RulePromotional    RuleType = "promotional"
	RuleBlackout       RuleType = "blackout"
	RuleMinimumStay    RuleType = "minimum_stay"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleSeasonal, RuleAdvanceBooking, RuleLengthOfStay, RuleDayOfWeek,
		RuleOccupancy, RulePromotional, RuleBlackout, RuleMinimumStay:
		return true
	}
	return false
}

type AdjustmentType string

const (
	AdjustPercentage AdjustmentType = "percentage"
	AdjustFixed      AdjustmentType = "fixed"
	AdjustMultiply   AdjustmentType = "multiply"
)

func (t AdjustmentType) Valid() bool {
	return t == AdjustPercentage || t == AdjustFixed || t == AdjustMultiply
}

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Adjustment is a tagged variant: Type selects the arithmetic,
// Direction normalizes Value's sign for percentage and fixed.
// Direction is ignored for multiply.
type Adjustment struct {
	Type      AdjustmentType  `json:"adjustment_type"`
	Value     decimal.Decimal `json:"adjustment_value"`
	Direction Direction       `json:"direction"`
}

// PricingRule is a conditional, date-scoped price adjustment.
//
// Scope filters are pointers: nil means "all hotels" / "all categories".
// MinNights/MaxNights bound the stay length, MinLeadDays/MaxLeadDays bound
// the booking window for advance_booking rules, and Weekdays is the explicit
// day mask for day_of_week rules. A nil bound is unbounded; an empty
// Weekdays mask matches every day.
type PricingRule struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Type        RuleType       `json:"rule_type"`
	HotelID     *int64         `json:"hotel_id,omitempty"`
	Category    *string        `json:"room_category,omitempty"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Adjustment  Adjustment     `json:"adjustment"`
	Priority    int            `json:"priority"`
	MinNights   *int           `json:"min_nights,omitempty"`
	MaxNights   *int           `json:"max_nights,omitempty"`
	MinLeadDays *int           `json:"min_lead_days,omitempty"`
	MaxLeadDays *int           `json:"max_lead_days,omitempty"`
	Weekdays    []time.Weekday `json:"weekdays,omitempty"`
	Active      bool           `json:"is_active"`
}
