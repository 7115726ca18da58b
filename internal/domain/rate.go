package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OverrideSource string

const (
	SourceIndividual OverrideSource = "individual"
	SourceGroup      OverrideSource = "group"
)

// RateOverride pins the price of one room on one date, superseding any
// rule-based computation. At most one override is active per (room, date);
// a later write replaces the prior one. GroupKey identifies which bulk
// operation produced a group override so it can be cleared later.
type RateOverride struct {
	RoomID    int64           `json:"room_id"`
	Date      time.Time       `json:"date"`
	Price     decimal.Decimal `json:"price"`
	Note      *string         `json:"note,omitempty"`
	Source    OverrideSource  `json:"source"`
	GroupKey  *string         `json:"group_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Chain markers recorded in ResolvedRate.Chain alongside rule ids.
const (
	ChainOverride = "override"
	ChainBase     = "base"
)

// ResolvedRate is the single authoritative answer for (room, date).
// It is never stored; it is recomputed on demand from the current
// overrides and rules.
type ResolvedRate struct {
	RoomID     int64           `json:"room_id"`
	Date       time.Time       `json:"date"`
	Price      decimal.Decimal `json:"price"`
	Chain      []string        `json:"chain"`
	IsBlackout bool            `json:"is_blackout"`
}
