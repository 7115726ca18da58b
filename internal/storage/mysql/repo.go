package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_rates/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// weekdays are stored as a CSV of time.Weekday ints ("5,6" = Fri,Sat).
func encodeWeekdays(ws []time.Weekday) any {
	if len(ws) == 0 {
		return nil
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = strconv.Itoa(int(w))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	var out []time.Weekday
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && n >= 0 && n <= 6 {
			out = append(out, time.Weekday(n))
		}
	}
	return out
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- rooms ----

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRowContext(ctx, getRoomSQL, id).Scan(
		&rm.ID, &rm.HotelID, &rm.Category, &rm.BasePrice, &rm.Active, &rm.MaxOccupancy,
	)
	if err == sql.ErrNoRows {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) ListRooms(ctx context.Context, target domain.BatchTarget) ([]domain.Room, error) {
	q := listRoomsSQL
	args := []any{target.HotelID}
	if target.Category != nil {
		q += " AND category = ?"
		args = append(args, *target.Category)
	}
	if len(target.RoomIDs) > 0 {
		q += " AND id IN " + placeholders(len(target.RoomIDs))
		for _, id := range target.RoomIDs {
			args = append(args, id)
		}
	}
	q += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.HotelID, &rm.Category, &rm.BasePrice, &rm.Active, &rm.MaxOccupancy); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// ---- pricing rules ----

func (r *Repo) ListActiveRules(ctx context.Context, hotelID int64, category *string) ([]domain.PricingRule, error) {
	q := listActiveRulesSQL
	args := []any{hotelID}
	if category != nil {
		q += listActiveRulesCategoryFilter
		args = append(args, *category)
	}
	q += " ORDER BY priority, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PricingRule
	for rows.Next() {
		pr, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *Repo) GetRule(ctx context.Context, id int64) (domain.PricingRule, error) {
	row := r.db.QueryRowContext(ctx, getRuleSQL, id)
	pr, err := scanRule(row)
	if err == sql.ErrNoRows {
		return domain.PricingRule{}, domain.ErrNotFound
	}
	return pr, err
}

func (r *Repo) CreateRule(ctx context.Context, pr domain.PricingRule) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertRuleSQL, ruleArgs(pr)...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateRule(ctx context.Context, pr domain.PricingRule) error {
	args := append(ruleArgs(pr), pr.ID)
	res, err := r.db.ExecContext(ctx, updateRuleSQL, args...)
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

func (r *Repo) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, setRuleActiveSQL, active, id)
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

func (r *Repo) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteRuleSQL, id)
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

func noRowsAsNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func ruleArgs(pr domain.PricingRule) []any {
	return []any{
		pr.Name, string(pr.Type), valInt64(pr.HotelID), valStr(pr.Category),
		domain.Date(pr.StartDate), domain.Date(pr.EndDate),
		string(pr.Adjustment.Type), pr.Adjustment.Value, string(pr.Adjustment.Direction),
		pr.Priority, valInt(pr.MinNights), valInt(pr.MaxNights),
		valInt(pr.MinLeadDays), valInt(pr.MaxLeadDays),
		encodeWeekdays(pr.Weekdays), pr.Active,
	}
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRule(row rowScanner) (domain.PricingRule, error) {
	var (
		pr                       domain.PricingRule
		hotelID                  sql.NullInt64
		category, weekdays       sql.NullString
		ruleType, adjType, dir   string
		minN, maxN, minLd, maxLd sql.NullInt64
	)
	err := row.Scan(
		&pr.ID, &pr.Name, &ruleType, &hotelID, &category,
		&pr.StartDate, &pr.EndDate,
		&adjType, &pr.Adjustment.Value, &dir,
		&pr.Priority, &minN, &maxN, &minLd, &maxLd,
		&weekdays, &pr.Active,
	)
	if err != nil {
		return domain.PricingRule{}, err
	}
	pr.Type = domain.RuleType(ruleType)
	pr.Adjustment.Type = domain.AdjustmentType(adjType)
	pr.Adjustment.Direction = domain.Direction(dir)
	if hotelID.Valid {
		h := hotelID.Int64
		pr.HotelID = &h
	}
	if category.Valid {
		c := category.String
		pr.Category = &c
	}
	pr.MinNights = nullableInt(minN)
	pr.MaxNights = nullableInt(maxN)
	pr.MinLeadDays = nullableInt(minLd)
	pr.MaxLeadDays = nullableInt(maxLd)
	if weekdays.Valid {
		pr.Weekdays = decodeWeekdays(weekdays.String)
	}
	return pr, nil
}

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// ---- rate overrides ----

func (r *Repo) GetOverride(ctx context.Context, roomID int64, date time.Time) (*domain.RateOverride, error) {
	row := r.db.QueryRowContext(ctx, getOverrideSQL, roomID, domain.Date(date))
	o, err := scanOverride(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOverrides(ctx context.Context, roomIDs []int64, start, end time.Time) ([]domain.RateOverride, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	args := []any{domain.Date(start), domain.Date(end)}
	for _, id := range roomIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, listOverridesPrefix+placeholders(len(roomIDs)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Upsert replaces the active override row for (room, date). MySQL reports
// 1 affected row for an insert and 2 for an update of an existing key.
func (r *Repo) Upsert(ctx context.Context, o domain.RateOverride) (bool, error) {
	args := []any{o.RoomID, domain.Date(o.Date), o.Price, valStr(o.Note), string(o.Source), valStr(o.GroupKey)}
	res, err := r.db.ExecContext(ctx, upsertOverrideSQL, args...)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()

	// Audit rows are append-only and best-effort; a history miss never
	// fails the cell whose active row already committed.
	if _, herr := r.db.ExecContext(ctx, insertOverrideHistorySQL, args...); herr != nil {
		log.Warn().Err(herr).Int64("room_id", o.RoomID).Msg("override history insert failed")
	}
	return n == 1, nil
}

func (r *Repo) ClearGroup(ctx context.Context, key string, roomIDs []int64) (int64, error) {
	q := clearGroupSQL
	args := []any{key}
	if len(roomIDs) > 0 {
		q += clearGroupRoomFilter + placeholders(len(roomIDs))
		for _, id := range roomIDs {
			args = append(args, id)
		}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOverride(row rowScanner) (domain.RateOverride, error) {
	var (
		o        domain.RateOverride
		note     sql.NullString
		groupKey sql.NullString
		price    decimal.Decimal
	)
	err := row.Scan(&o.RoomID, &o.Date, &price, &note, &o.Source, &groupKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.RateOverride{}, err
	}
	o.Price = price
	if note.Valid {
		s := note.String
		o.Note = &s
	}
	if groupKey.Valid {
		s := groupKey.String
		o.GroupKey = &s
	}
	return o, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return "(NULL)"
	}
	return "(?" + strings.Repeat(",?", n-1) + ")"
}
