package engine_test

import (
	"reflect"
	"testing"
	"time"

	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
)

func override(roomID int64, date time.Time, price string, src domain.OverrideSource, updated time.Time) domain.RateOverride {
	return domain.RateOverride{
		RoomID:    roomID,
		Date:      date,
		Price:     dec(price),
		Source:    src,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestResolve_BasePriceWhenNothingMatches(t *testing.T) {
	room := testRoom()
	rr := engine.Resolve(room, day(2026, 7, 15), nil, nil, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("100")) {
		t.Fatalf("price = %s, want base 100", rr.Price)
	}
	if !reflect.DeepEqual(rr.Chain, []string{"base"}) {
		t.Fatalf("chain = %v, want [base]", rr.Chain)
	}
	if rr.IsBlackout {
		t.Fatal("unexpected blackout")
	}
}

func TestResolve_IndividualOverrideIgnoresAllRules(t *testing.T) {
	room := testRoom()
	date := day(2026, 7, 15)
	rules := []domain.PricingRule{seasonalRule(), promoRule()}
	ovs := []domain.RateOverride{override(room.ID, date, "75", domain.SourceIndividual, day(2026, 5, 1))}

	rr := engine.Resolve(room, date, ovs, rules, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("75")) {
		t.Fatalf("price = %s, want 75 verbatim", rr.Price)
	}
	if !reflect.DeepEqual(rr.Chain, []string{"override"}) {
		t.Fatalf("chain = %v, want [override]", rr.Chain)
	}
}

func TestResolve_IndividualBeatsGroup(t *testing.T) {
	room := testRoom()
	date := day(2026, 7, 15)
	ovs := []domain.RateOverride{
		override(room.ID, date, "80", domain.SourceGroup, day(2026, 6, 2)),
		override(room.ID, date, "95", domain.SourceIndividual, day(2026, 6, 1)),
	}
	rr := engine.Resolve(room, date, ovs, nil, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("95")) {
		t.Fatalf("price = %s, want individual 95 even though group is newer", rr.Price)
	}
}

func TestResolve_GroupOverrideWhenNoIndividual(t *testing.T) {
	room := testRoom()
	date := day(2026, 7, 15)
	ovs := []domain.RateOverride{override(room.ID, date, "85", domain.SourceGroup, day(2026, 6, 1))}

	rr := engine.Resolve(room, date, ovs, []domain.PricingRule{seasonalRule()}, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("85")) {
		t.Fatalf("price = %s, want group 85 with rules skipped", rr.Price)
	}
}

func TestResolve_MostRecentOverrideWins(t *testing.T) {
	room := testRoom()
	date := day(2026, 7, 15)
	ovs := []domain.RateOverride{
		override(room.ID, date, "70", domain.SourceIndividual, day(2026, 6, 1)),
		override(room.ID, date, "72", domain.SourceIndividual, day(2026, 6, 5)),
	}
	rr := engine.Resolve(room, date, ovs, nil, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("72")) {
		t.Fatalf("price = %s, want latest write 72", rr.Price)
	}
}

func TestResolve_RuleCompositeOverBase(t *testing.T) {
	room := testRoom()
	rules := []domain.PricingRule{seasonalRule(), promoRule()}
	rr := engine.Resolve(room, day(2026, 7, 15), nil, rules, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("110")) {
		t.Fatalf("price = %s, want 110", rr.Price)
	}
	if !reflect.DeepEqual(rr.Chain, []string{"base", "1", "2"}) {
		t.Fatalf("chain = %v, want [base 1 2]", rr.Chain)
	}
}

func TestResolve_BlackoutAlwaysMarked(t *testing.T) {
	room := testRoom()
	date := day(2026, 7, 15)
	blackout := domain.PricingRule{
		ID: 9, Name: "closed", Type: domain.RuleBlackout,
		StartDate: day(2026, 7, 1), EndDate: day(2026, 7, 31),
		Priority: 1, Active: true,
	}

	rr := engine.Resolve(room, date, nil, []domain.PricingRule{blackout, seasonalRule()}, domain.BookingContext{Nights: 1})
	if !rr.IsBlackout {
		t.Fatal("expected blackout")
	}
	if !rr.Price.Equal(dec("100")) {
		t.Fatalf("blackout must not stack adjustments, price = %s", rr.Price)
	}

	// an override pins the price but the date stays unbookable
	ovs := []domain.RateOverride{override(room.ID, date, "75", domain.SourceIndividual, day(2026, 6, 1))}
	rr = engine.Resolve(room, date, ovs, []domain.PricingRule{blackout}, domain.BookingContext{Nights: 1})
	if !rr.IsBlackout || !rr.Price.Equal(dec("75")) {
		t.Fatalf("want blackout with override price 75, got %+v", rr)
	}
}

func TestResolve_OverrideForOtherDateIgnored(t *testing.T) {
	room := testRoom()
	ovs := []domain.RateOverride{override(room.ID, day(2026, 7, 16), "75", domain.SourceIndividual, day(2026, 6, 1))}
	rr := engine.Resolve(room, day(2026, 7, 15), ovs, nil, domain.BookingContext{Nights: 1})
	if !rr.Price.Equal(dec("100")) {
		t.Fatalf("price = %s, want base; override is for a different date", rr.Price)
	}
}
