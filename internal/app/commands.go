package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	redisad "hotel_rates/internal/adapters/redis"
	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
)

// CommandService owns every write path: rule lifecycle, individual rate
// edits, bulk preview/apply and group clearing. It invalidates the rate
// cache behind each write and forwards applied changes to the distribution
// channel when one is configured.
type CommandService struct {
	eng         *engine.Engine
	rules       domain.RuleRepository
	overrides   domain.OverrideRepository
	cache       domain.Cache
	distributor domain.RateDistributor // nil disables channel sync
}

func NewCommandService(eng *engine.Engine, rules domain.RuleRepository, overrides domain.OverrideRepository, cache domain.Cache, dist domain.RateDistributor) *CommandService {
	return &CommandService{eng: eng, rules: rules, overrides: overrides, cache: cache, distributor: dist}
}

// ---- rule lifecycle ----

// ValidateRule rejects malformed rules at the door, so the resolution
// engine only ever sees well-formed ones.
func ValidateRule(r domain.PricingRule) error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidRule)
	case !r.Type.Valid():
		return fmt.Errorf("%w: unknown rule_type %q", domain.ErrInvalidRule, r.Type)
	case !r.Adjustment.Type.Valid():
		return fmt.Errorf("%w: unknown adjustment_type %q", domain.ErrInvalidRule, r.Adjustment.Type)
	case r.Adjustment.Type != domain.AdjustMultiply &&
		r.Adjustment.Direction != domain.Increase && r.Adjustment.Direction != domain.Decrease:
		return fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidRule, r.Adjustment.Direction)
	case r.Adjustment.Type == domain.AdjustMultiply && r.Adjustment.Value.IsNegative():
		return fmt.Errorf("%w: multiply factor must be >= 0", domain.ErrInvalidRule)
	case r.Priority < 1 || r.Priority > 10:
		return fmt.Errorf("%w: priority must be within 1..10", domain.ErrInvalidRule)
	case domain.Date(r.EndDate).Before(domain.Date(r.StartDate)):
		return fmt.Errorf("%w: end_date precedes start_date", domain.ErrInvalidRule)
	case r.MinNights != nil && r.MaxNights != nil && *r.MinNights > *r.MaxNights:
		return fmt.Errorf("%w: min_nights exceeds max_nights", domain.ErrInvalidRule)
	case r.MinLeadDays != nil && r.MaxLeadDays != nil && *r.MinLeadDays > *r.MaxLeadDays:
		return fmt.Errorf("%w: min_lead_days exceeds max_lead_days", domain.ErrInvalidRule)
	}
	return nil
}

func (s *CommandService) CreateRule(ctx context.Context, r domain.PricingRule) (int64, error) {
	if err := ValidateRule(r); err != nil {
		return 0, err
	}
	id, err := s.rules.CreateRule(ctx, r)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("rule_id", id).Str("rule_type", string(r.Type)).Msg("pricing rule created")
	return id, nil
}

func (s *CommandService) UpdateRule(ctx context.Context, r domain.PricingRule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}
	return s.rules.UpdateRule(ctx, r)
}

func (s *CommandService) SetRuleActive(ctx context.Context, id int64, active bool) error {
	return s.rules.SetRuleActive(ctx, id, active)
}

func (s *CommandService) DeleteRule(ctx context.Context, id int64) error {
	return s.rules.DeleteRule(ctx, id)
}

// ---- rate writes ----

// SetIndividualRate pins one room's price for one date. Individual rates
// outrank everything else during resolution.
func (s *CommandService) SetIndividualRate(ctx context.Context, roomID int64, date time.Time, price decimal.Decimal, note *string) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", domain.ErrInvalidRule)
	}
	o := domain.RateOverride{
		RoomID: roomID,
		Date:   domain.Date(date),
		Price:  price,
		Note:   note,
		Source: domain.SourceIndividual,
	}
	if _, err := s.overrides.Upsert(ctx, o); err != nil {
		return err
	}
	s.invalidateCell(ctx, roomID, o.Date)
	return nil
}

func (s *CommandService) PreviewBatch(ctx context.Context, target domain.BatchTarget, op domain.BatchOperation) (domain.BatchResult, error) {
	return s.eng.PreviewBatch(ctx, target, op)
}

func (s *CommandService) ApplyBatch(ctx context.Context, target domain.BatchTarget, op domain.BatchOperation) (domain.BatchResult, error) {
	res, err := s.eng.ApplyBatch(ctx, target, op)
	if op.Kind == domain.OpApplyRule && !op.ApplyToExisting {
		// Report-only run; nothing was persisted, so nothing to evict or push.
		return res, err
	}

	var updates []domain.RateUpdate
	for _, c := range res.Cells {
		if c.Outcome != domain.OutcomeCreated && c.Outcome != domain.OutcomeUpdated {
			continue
		}
		s.invalidateCell(ctx, c.RoomID, c.Date)
		updates = append(updates, domain.RateUpdate{RoomID: c.RoomID, Date: c.Date, Price: c.Price.String()})
	}
	s.pushUpdates(ctx, updates)
	return res, err
}

func (s *CommandService) ClearGroup(ctx context.Context, key string, roomIDs []int64) (int64, error) {
	n, err := s.overrides.ClearGroup(ctx, key, roomIDs)
	if err != nil {
		return 0, err
	}
	log.Info().Str("group_key", key).Int64("cleared", n).Msg("group overrides cleared")
	return n, nil
}

// invalidateCell evicts the common nights variants of one cell. Calendar
// keys are left to expire by TTL.
func (s *CommandService) invalidateCell(ctx context.Context, roomID int64, date time.Time) {
	if s.cache == nil {
		return
	}
	for _, nights := range []int{1, 2, 3, 7} {
		_ = s.cache.Del(ctx, redisad.RateKey(roomID, date, nights))
	}
}

// pushUpdates is best effort: a channel-sync failure is logged and never
// surfaces into a batch outcome.
func (s *CommandService) pushUpdates(ctx context.Context, updates []domain.RateUpdate) {
	if s.distributor == nil || len(updates) == 0 {
		return
	}
	if err := s.distributor.PushRates(ctx, updates); err != nil {
		log.Warn().Err(err).Int("updates", len(updates)).Msg("channel sync push failed")
	}
}
