package app_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hotel_rates/internal/app"
	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
)

// ---- fakes ----

type fakeRoomRepo struct{ room domain.Room }

func (f *fakeRoomRepo) GetRoom(context.Context, int64) (domain.Room, error) { return f.room, nil }
func (f *fakeRoomRepo) ListRooms(context.Context, domain.BatchTarget) ([]domain.Room, error) {
	return []domain.Room{f.room}, nil
}

type fakeRuleRepo struct {
	rules   []domain.PricingRule
	created []domain.PricingRule
}

func (f *fakeRuleRepo) ListActiveRules(context.Context, int64, *string) ([]domain.PricingRule, error) {
	return f.rules, nil
}
func (f *fakeRuleRepo) GetRule(context.Context, int64) (domain.PricingRule, error) {
	return domain.PricingRule{}, domain.ErrNotFound
}
func (f *fakeRuleRepo) CreateRule(_ context.Context, r domain.PricingRule) (int64, error) {
	f.created = append(f.created, r)
	return int64(len(f.created)), nil
}
func (f *fakeRuleRepo) UpdateRule(context.Context, domain.PricingRule) error { return nil }
func (f *fakeRuleRepo) SetRuleActive(context.Context, int64, bool) error     { return nil }
func (f *fakeRuleRepo) DeleteRule(context.Context, int64) error              { return nil }

type fakeOverrideRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.RateOverride
	cleared []string
}

func overrideKey(roomID int64, date time.Time) string {
	return strconv.FormatInt(roomID, 10) + ":" + domain.Date(date).Format(time.DateOnly)
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{rows: map[string]domain.RateOverride{}}
}

func (f *fakeOverrideRepo) GetOverride(_ context.Context, roomID int64, date time.Time) (*domain.RateOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.rows[overrideKey(roomID, date)]; ok {
		return &o, nil
	}
	return nil, nil
}

func (f *fakeOverrideRepo) ListOverrides(context.Context, []int64, time.Time, time.Time) ([]domain.RateOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RateOverride
	for _, o := range f.rows {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOverrideRepo) Upsert(_ context.Context, o domain.RateOverride) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := overrideKey(o.RoomID, o.Date)
	_, existed := f.rows[key]
	f.rows[key] = o
	return !existed, nil
}

func (f *fakeOverrideRepo) ClearGroup(_ context.Context, key string, _ []int64) (int64, error) {
	f.cleared = append(f.cleared, key)
	return 1, nil
}

type fakeCache struct {
	store   map[string]any
	deleted []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.ResolvedRate:
		*d = v.(domain.ResolvedRate)
	case *[]domain.ResolvedRate:
		*d = v.([]domain.ResolvedRate)
	}
	return true, nil
}
func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(_ context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.store, key)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newQueryFixture(base string) (*app.QueryService, *fakeRoomRepo) {
	rooms := &fakeRoomRepo{room: domain.Room{ID: 1, HotelID: 10, Category: "standard", BasePrice: dec(base), Active: true}}
	eng := engine.New(rooms, &fakeRuleRepo{}, newFakeOverrideRepo(), 2)
	return app.NewQueryService(eng, &fakeCache{}, 10*time.Minute), rooms
}

// ---- tests ----

func TestGetRate_CacheMissThenHit(t *testing.T) {
	q, rooms := newQueryFixture("100")
	date := day(2026, 7, 15)

	// Miss (first time, populates cache)
	rr, err := q.GetRate(context.Background(), 1, date, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !rr.Price.Equal(dec("100")) {
		t.Fatalf("price = %s, want base 100", rr.Price)
	}

	// Mutate repo to ensure second read indeed comes from cache
	rooms.room.BasePrice = dec("999")

	rr2, err := q.GetRate(context.Background(), 1, date, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !rr2.Price.Equal(dec("100")) {
		t.Fatalf("expected cached 100, got %s", rr2.Price)
	}
}

func TestGetRate_NightsIsPartOfTheKey(t *testing.T) {
	q, rooms := newQueryFixture("100")
	date := day(2026, 7, 15)

	if _, err := q.GetRate(context.Background(), 1, date, 1); err != nil {
		t.Fatalf("err: %v", err)
	}
	rooms.room.BasePrice = dec("200")

	rr, err := q.GetRate(context.Background(), 1, date, 3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !rr.Price.Equal(dec("200")) {
		t.Fatalf("nights=3 must not hit the nights=1 entry, got %s", rr.Price)
	}
}

func TestGetCalendar_ResolvesSpan(t *testing.T) {
	q, _ := newQueryFixture("100")
	out, err := q.GetCalendar(context.Background(), 1, day(2026, 7, 1), day(2026, 7, 7), 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("expected 7 days, got %d", len(out))
	}
	for _, rr := range out {
		if !rr.Price.Equal(dec("100")) {
			t.Fatalf("unexpected price in calendar: %+v", rr)
		}
	}
}
