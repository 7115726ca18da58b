package app

import (
	"context"
	"encoding/json"
	"time"

	redisad "hotel_rates/internal/adapters/redis"
	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
)

// QueryService serves rate-display surfaces (single-cell lookups and
// calendar spans) with a read-through cache in front of the engine.
type QueryService struct {
	eng      *engine.Engine
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(eng *engine.Engine, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{eng: eng, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetRate(ctx context.Context, roomID int64, date time.Time, nights int) (domain.ResolvedRate, error) {
	key := redisad.RateKey(roomID, domain.Date(date), nights)
	var rr domain.ResolvedRate
	if ok, _ := s.cache.Get(ctx, key, &rr); ok {
		return rr, nil
	}
	rr, err := s.eng.ResolveRate(ctx, roomID, date, nights)
	if err != nil {
		return domain.ResolvedRate{}, err
	}
	_ = s.cache.Set(ctx, key, rr, int(s.cacheTTL.Seconds()))
	return rr, nil
}

func (s *QueryService) GetCalendar(ctx context.Context, roomID int64, start, end time.Time, nights int) ([]domain.ResolvedRate, error) {
	key := redisad.CalendarKey(roomID, domain.Date(start), domain.Date(end), nights)
	var out []domain.ResolvedRate
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	out, err := s.eng.ResolveCalendar(ctx, roomID, start, end, nights)
	if err != nil {
		return nil, err
	}

	// size guard: unbounded spans should not blow up redis values
	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}
