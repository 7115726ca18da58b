package engine

import (
	"time"

	"hotel_rates/internal/domain"
)

// Resolve applies the precedence chain for one (room, date):
//
//  1. most recent individual override (authoritative, rules skipped)
//  2. most recent group override (rules skipped)
//  3. rule composite over room.BasePrice
//  4. room.BasePrice untouched
//
// A manual rate is never silently recomputed away by rules; rules only fill
// cells where no explicit rate was set. A matching blackout rule marks the
// date unbookable in every branch, override or not.
func Resolve(room domain.Room, date time.Time, overrides []domain.RateOverride, rules []domain.PricingRule, ctx domain.BookingContext) domain.ResolvedRate {
	rr := domain.ResolvedRate{RoomID: room.ID, Date: domain.Date(date)}

	if o := latestOverride(overrides, room.ID, date, domain.SourceIndividual); o != nil {
		rr.Price = o.Price
		rr.Chain = []string{domain.ChainOverride}
		rr.IsBlackout = anyBlackout(rules, room, date, ctx)
		return rr
	}
	if o := latestOverride(overrides, room.ID, date, domain.SourceGroup); o != nil {
		rr.Price = o.Price
		rr.Chain = []string{domain.ChainOverride}
		rr.IsBlackout = anyBlackout(rules, room, date, ctx)
		return rr
	}

	price, chain, blackout := Composite(rules, room, date, room.BasePrice, ctx)
	if blackout {
		rr.Price = room.BasePrice
		rr.Chain = []string{domain.ChainBase}
		rr.IsBlackout = true
		return rr
	}
	rr.Price = price
	rr.Chain = append([]string{domain.ChainBase}, chain...)
	return rr
}

// latestOverride picks the most recent non-superseded override for
// (room, date) with the given source. UpdatedAt decides recency,
// CreatedAt breaks ties.
func latestOverride(overrides []domain.RateOverride, roomID int64, date time.Time, src domain.OverrideSource) *domain.RateOverride {
	d := domain.Date(date)
	var best *domain.RateOverride
	for i := range overrides {
		o := &overrides[i]
		if o.RoomID != roomID || o.Source != src || !domain.Date(o.Date).Equal(d) {
			continue
		}
		if best == nil ||
			o.UpdatedAt.After(best.UpdatedAt) ||
			(o.UpdatedAt.Equal(best.UpdatedAt) && o.CreatedAt.After(best.CreatedAt)) {
			best = o
		}
	}
	return best
}

func anyBlackout(rules []domain.PricingRule, room domain.Room, date time.Time, ctx domain.BookingContext) bool {
	for _, r := range rules {
		if r.Type == domain.RuleBlackout && Matches(r, room, date, ctx) {
			return true
		}
	}
	return false
}
