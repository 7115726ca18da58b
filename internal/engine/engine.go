package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"hotel_rates/internal/adapters/observability"
	"hotel_rates/internal/domain"
)

// Engine is the rate resolution and bulk application facade. It holds no
// mutable state of its own; every call is a function of its inputs plus the
// repository snapshot taken at batch start.
type Engine struct {
	rooms     domain.RoomRepository
	rules     domain.RuleRepository
	overrides domain.OverrideRepository
	workers   int
	now       func() time.Time
}

func New(rooms domain.RoomRepository, rules domain.RuleRepository, overrides domain.OverrideRepository, workers int) *Engine {
	if workers <= 0 {
		workers = 8
	}
	return &Engine{rooms: rooms, rules: rules, overrides: overrides, workers: workers, now: time.Now}
}

// WithClock overrides the engine's clock; lead-time computation depends on it.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ResolveRate answers the single authoritative nightly price for one
// (room, date) at the given stay length.
func (e *Engine) ResolveRate(ctx context.Context, roomID int64, date time.Time, nights int) (domain.ResolvedRate, error) {
	room, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.ResolvedRate{}, fmt.Errorf("get room %d: %w", roomID, err)
	}
	rules, err := e.rules.ListActiveRules(ctx, room.HotelID, &room.Category)
	if err != nil {
		return domain.ResolvedRate{}, fmt.Errorf("list rules: %w", err)
	}
	var overrides []domain.RateOverride
	if o, err := e.overrides.GetOverride(ctx, roomID, domain.Date(date)); err != nil {
		return domain.ResolvedRate{}, fmt.Errorf("get override: %w", err)
	} else if o != nil {
		overrides = append(overrides, *o)
	}
	bctx := domain.NewBookingContext(e.now(), date, normNights(nights))
	rr := Resolve(room, date, overrides, rules, bctx)
	observability.ObserveResolution(rr.IsBlackout)
	return rr, nil
}

// ResolveCalendar resolves every date of [start, end] for one room from a
// single repository snapshot.
func (e *Engine) ResolveCalendar(ctx context.Context, roomID int64, start, end time.Time, nights int) ([]domain.ResolvedRate, error) {
	room, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}
	rules, err := e.rules.ListActiveRules(ctx, room.HotelID, &room.Category)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	overrides, err := e.overrides.ListOverrides(ctx, []int64{roomID}, domain.Date(start), domain.Date(end))
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	now := e.now()
	var out []domain.ResolvedRate
	for _, d := range domain.DatesBetween(start, end) {
		bctx := domain.NewBookingContext(now, d, normNights(nights))
		rr := Resolve(room, d, overrides, rules, bctx)
		observability.ObserveResolution(rr.IsBlackout)
		out = append(out, rr)
	}
	return out, nil
}

// PreviewBatch computes the full batch without issuing a single write. Its
// summary matches what ApplyBatch would produce against the same state.
func (e *Engine) PreviewBatch(ctx context.Context, target domain.BatchTarget, op domain.BatchOperation) (domain.BatchResult, error) {
	return e.run(ctx, target, op, true)
}

// ApplyBatch computes the batch on the identical path and persists eligible
// cells. The aggregate is not atomic: failed cells are reported per-cell
// and never roll back committed siblings.
func (e *Engine) ApplyBatch(ctx context.Context, target domain.BatchTarget, op domain.BatchOperation) (domain.BatchResult, error) {
	return e.run(ctx, target, op, false)
}

// snapshot is the immutable read-side state for one batch. Rules or
// overrides edited concurrently by another actor do not affect a batch in
// flight.
type snapshot struct {
	rules     []domain.PricingRule
	overrides map[cellKey][]domain.RateOverride
	now       time.Time
}

type cellKey struct {
	roomID int64
	day    string
}

func keyOf(roomID int64, date time.Time) cellKey {
	return cellKey{roomID: roomID, day: domain.Date(date).Format(time.DateOnly)}
}

func (e *Engine) run(ctx context.Context, target domain.BatchTarget, op domain.BatchOperation, dryRun bool) (domain.BatchResult, error) {
	started := time.Now()

	rooms, err := e.rooms.ListRooms(ctx, target)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("list rooms: %w", err)
	}
	dates := domain.DatesBetween(target.StartDate, target.EndDate)
	if len(rooms) == 0 || len(dates) == 0 {
		return domain.BatchResult{}, nil
	}

	rules, err := e.rules.ListActiveRules(ctx, target.HotelID, target.Category)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("list rules: %w", err)
	}
	roomIDs := make([]int64, len(rooms))
	for i, r := range rooms {
		roomIDs[i] = r.ID
	}
	existing, err := e.overrides.ListOverrides(ctx, roomIDs, dates[0], dates[len(dates)-1])
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("list overrides: %w", err)
	}

	snap := &snapshot{rules: rules, overrides: make(map[cellKey][]domain.RateOverride), now: e.now()}
	for _, o := range existing {
		k := keyOf(o.RoomID, o.Date)
		snap.overrides[k] = append(snap.overrides[k], o)
	}

	// Cells are independent: each goroutine owns exactly one result slot,
	// so no mutex is needed. Cancellation is honored between cells; cells
	// never scheduled are reported as failed without side effects.
	cells := make([]domain.CellResult, len(rooms)*len(dates))
	sem := semaphore.NewWeighted(int64(e.workers))
	var wg sync.WaitGroup

	idx := 0
	cancelled := false
	for _, room := range rooms {
		for _, date := range dates {
			if cancelled || sem.Acquire(ctx, 1) != nil {
				cancelled = true
				cells[idx] = domain.CellResult{
					RoomID: room.ID, Date: date,
					Outcome: domain.OutcomeFailed, Error: context.Cause(ctx).Error(),
				}
				idx++
				continue
			}
			wg.Add(1)
			go func(slot int, room domain.Room, date time.Time) {
				defer wg.Done()
				defer sem.Release(1)
				cells[slot] = e.processCell(ctx, room, date, snap, op, dryRun)
			}(idx, room, date)
			idx++
		}
	}
	wg.Wait()

	res := summarize(cells)
	for _, c := range cells {
		observability.ObserveBatchCell(string(c.Outcome), dryRun)
	}
	observability.ObserveBatchDuration(time.Since(started), dryRun)

	if cancelled {
		return res, context.Cause(ctx)
	}
	return res, nil
}

func (e *Engine) processCell(ctx context.Context, room domain.Room, date time.Time, snap *snapshot, op domain.BatchOperation, dryRun bool) domain.CellResult {
	cr := domain.CellResult{RoomID: room.ID, Date: domain.Date(date)}
	if err := ctx.Err(); err != nil {
		cr.Outcome = domain.OutcomeFailed
		cr.Error = err.Error()
		return cr
	}

	cellOverrides := snap.overrides[keyOf(room.ID, date)]
	hasExisting := len(cellOverrides) > 0
	individual := latestOverride(cellOverrides, room.ID, date, domain.SourceIndividual)

	switch op.Kind {
	case domain.OpApplyRule:
		bctx := domain.NewBookingContext(snap.now, date, normNights(op.Nights))
		resolved := Resolve(room, date, cellOverrides, snap.rules, bctx)
		cr.Price = resolved.Price
		if individual != nil {
			// Persisting would demote a manual rate to a group row.
			cr.Outcome = domain.OutcomeSkipped
			cr.Reason = "individual override present"
			return cr
		}
		if resolved.IsBlackout {
			cr.Outcome = domain.OutcomeSkipped
			cr.Reason = "blackout"
			return cr
		}
		// apply_to_existing=false means the operation itself is preview-only.
		return e.finishCell(ctx, cr, room, date, resolved.Price, op, hasExisting, dryRun || !op.ApplyToExisting)

	case domain.OpSetPrice:
		if individual != nil && !op.OverrideExisting {
			cr.Outcome = domain.OutcomeSkipped
			cr.Reason = "individual override present"
			cr.Price = individual.Price
			return cr
		}
		price := setPriceFor(op, room.BasePrice)
		cr.Price = price
		return e.finishCell(ctx, cr, room, date, price, op, hasExisting, dryRun)

	default:
		cr.Outcome = domain.OutcomeFailed
		cr.Error = fmt.Sprintf("unknown batch operation %q", op.Kind)
		return cr
	}
}

// finishCell classifies created/updated and, outside dry runs, commits the
// one-row upsert that is this cell's atomic unit.
func (e *Engine) finishCell(ctx context.Context, cr domain.CellResult, room domain.Room, date time.Time, price decimal.Decimal, op domain.BatchOperation, hasExisting, dryRun bool) domain.CellResult {
	if dryRun {
		if hasExisting {
			cr.Outcome = domain.OutcomeUpdated
		} else {
			cr.Outcome = domain.OutcomeCreated
		}
		return cr
	}

	o := domain.RateOverride{
		RoomID: room.ID,
		Date:   domain.Date(date),
		Price:  price,
		Note:   op.Note,
		Source: domain.SourceGroup,
	}
	if op.GroupKey != "" {
		k := op.GroupKey
		o.GroupKey = &k
	}
	created, err := e.overrides.Upsert(ctx, o)
	if err != nil {
		cr.Outcome = domain.OutcomeFailed
		cr.Error = err.Error()
		return cr
	}
	if created {
		cr.Outcome = domain.OutcomeCreated
	} else {
		cr.Outcome = domain.OutcomeUpdated
	}
	return cr
}

func setPriceFor(op domain.BatchOperation, base decimal.Decimal) decimal.Decimal {
	var p decimal.Decimal
	switch op.Mode {
	case domain.PriceBaseAmount:
		p = base.Add(op.Value)
	case domain.PriceBasePercent:
		p = base.Mul(decimal.NewFromInt(1).Add(op.Value.Div(hundred)))
	default: // PriceFixed
		p = op.Value
	}
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

func summarize(cells []domain.CellResult) domain.BatchResult {
	res := domain.BatchResult{Cells: cells}
	touched := map[int64]struct{}{}
	for _, c := range cells {
		switch c.Outcome {
		case domain.OutcomeCreated:
			res.RatesCreated++
			touched[c.RoomID] = struct{}{}
		case domain.OutcomeUpdated:
			res.RatesUpdated++
			touched[c.RoomID] = struct{}{}
		case domain.OutcomeSkipped:
			res.RatesSkipped++
		case domain.OutcomeFailed:
			res.RatesFailed++
		}
	}
	res.RoomsAffected = len(touched)
	return res
}

func normNights(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
