package domain

import (
	"context"
	"time"
)

// Repositories are external collaborators. The engine treats their reads as
// an immutable snapshot for the duration of one batch and relies on the
// storage layer's (room_id, date) uniqueness for cell-level write atomicity.

type RoomRepository interface {
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context, target BatchTarget) ([]Room, error)
}

type RuleRepository interface {
	ListActiveRules(ctx context.Context, hotelID int64, category *string) ([]PricingRule, error)

	// Rule lifecycle, used by the provider-facing command service.
	GetRule(ctx context.Context, id int64) (PricingRule, error)
	CreateRule(ctx context.Context, r PricingRule) (int64, error)
	UpdateRule(ctx context.Context, r PricingRule) error
	SetRuleActive(ctx context.Context, id int64, active bool) error
	DeleteRule(ctx context.Context, id int64) error
}

type OverrideRepository interface {
	GetOverride(ctx context.Context, roomID int64, date time.Time) (*RateOverride, error)
	ListOverrides(ctx context.Context, roomIDs []int64, start, end time.Time) ([]RateOverride, error)

	// Upsert replaces the active override for (room, date); created reports
	// whether a new cell was written rather than an existing one rewritten.
	Upsert(ctx context.Context, o RateOverride) (created bool, err error)

	// ClearGroup removes every override a bulk operation tagged with key.
	ClearGroup(ctx context.Context, key string, roomIDs []int64) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// RateDistributor pushes applied rate changes to an external distribution
// channel (OTA/channel-manager). Best effort: failures are logged, never
// reflected in a BatchResult.
type RateDistributor interface {
	PushRates(ctx context.Context, updates []RateUpdate) error
}

// RateUpdate is the outbound wire shape for one changed cell.
type RateUpdate struct {
	RoomID     int64     `json:"room_id"`
	Date       time.Time `json:"date"`
	Price      string    `json:"price"`
	IsBlackout bool      `json:"is_blackout"`
}
