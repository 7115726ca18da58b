package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchTarget selects the (room × date) matrix a bulk operation covers.
// RoomIDs, when non-empty, is an explicit list; otherwise every room of
// HotelID is targeted, narrowed by Category when set.
type BatchTarget struct {
	HotelID   int64     `json:"hotel_id"`
	Category  *string   `json:"room_category,omitempty"`
	RoomIDs   []int64   `json:"room_ids,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type BatchOpKind string

const (
	OpSetPrice  BatchOpKind = "set_price"
	OpApplyRule BatchOpKind = "apply_rules"
)

type PriceMode string

const (
	PriceFixed       PriceMode = "fixed"        // cell price = Value
	PriceBaseAmount  PriceMode = "base_amount"  // cell price = base + Value
	PriceBasePercent PriceMode = "base_percent" // cell price = base * (1 + Value/100)
)

// BatchOperation is a tagged union over the two bulk operations.
//
// For OpSetPrice, Mode/Value define the price and OverrideExisting decides
// whether cells holding an individual override are rewritten or skipped.
// For OpApplyRule, ApplyToExisting decides whether resolved prices are
// snapshotted into group overrides (apply) or merely computed (preview).
// GroupKey tags every override the operation writes.
type BatchOperation struct {
	Kind             BatchOpKind     `json:"kind"`
	Mode             PriceMode       `json:"mode,omitempty"`
	Value            decimal.Decimal `json:"value"`
	OverrideExisting bool            `json:"override_existing"`
	ApplyToExisting  bool            `json:"apply_to_existing"`
	GroupKey         string          `json:"group_key,omitempty"`
	Note             *string         `json:"note,omitempty"`
	Nights           int             `json:"nights,omitempty"` // booking-context nights for rule matching; 1 when zero
}

type CellOutcome string

const (
	OutcomeCreated CellOutcome = "created"
	OutcomeUpdated CellOutcome = "updated"
	OutcomeSkipped CellOutcome = "skipped"
	OutcomeFailed  CellOutcome = "failed"
)

// CellResult is the terminal state of one (room, date) cell. Skips carry a
// Reason, failures an Error; both are reported, never hidden behind an
// aggregate failure.
type CellResult struct {
	RoomID  int64           `json:"room_id"`
	Date    time.Time       `json:"date"`
	Outcome CellOutcome     `json:"outcome"`
	Price   decimal.Decimal `json:"price"`
	Reason  string          `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BatchResult aggregates per-cell outcomes. The batch as a whole is not
// atomic: failed cells never roll back committed siblings.
type BatchResult struct {
	RoomsAffected int          `json:"rooms_affected"`
	RatesCreated  int          `json:"rates_created"`
	RatesUpdated  int          `json:"rates_updated"`
	RatesSkipped  int          `json:"rates_skipped"`
	RatesFailed   int          `json:"rates_failed"`
	Cells         []CellResult `json:"cells"`
}
