package engine

import (
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_rates/internal/domain"
)

// Composite stacks every matching rule onto basePrice.
//
// Matched rules are folded in ascending priority order (ties broken by rule
// id), so higher-priority rules are applied last and have the final say on
// the compounding chain. A matching blackout rule short-circuits: the date
// is unbookable and no stacking happens. Rules with a malformed adjustment
// are skipped with a data-integrity warning rather than poisoning the fold.
func Composite(rules []domain.PricingRule, room domain.Room, date time.Time, basePrice decimal.Decimal, ctx domain.BookingContext) (price decimal.Decimal, chain []string, isBlackout bool) {
	matched := make([]domain.PricingRule, 0, len(rules))
	for _, r := range rules {
		if !Matches(r, room, date, ctx) {
			continue
		}
		if r.Type == domain.RuleBlackout {
			return basePrice, nil, true
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	price = basePrice
	for _, r := range matched {
		if !r.Adjustment.Type.Valid() {
			log.Warn().
				Int64("rule_id", r.ID).
				Str("adjustment_type", string(r.Adjustment.Type)).
				Msg("skipping rule with malformed adjustment")
			continue
		}
		price = ApplyAdjustment(r.Adjustment, price)
		chain = append(chain, strconv.FormatInt(r.ID, 10))
	}
	return price, chain, false
}
