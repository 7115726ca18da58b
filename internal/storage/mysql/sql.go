package mysql

const getRoomSQL = `
SELECT id, hotel_id, category, base_price, is_active, max_occupancy
FROM rooms
WHERE id = ?
`

// listRoomsSQL is the static prefix; the repo appends category / id-list
// filters derived from the batch target.
const listRoomsSQL = `
SELECT id, hotel_id, category, base_price, is_active, max_occupancy
FROM rooms
WHERE hotel_id = ? AND is_active = 1
`

const ruleColumns = `
  id, name, rule_type, hotel_id, category,
  start_date, end_date,
  adjustment_type, adjustment_value, direction,
  priority, min_nights, max_nights, min_lead_days, max_lead_days,
  weekdays, is_active
`

const getRuleSQL = `SELECT ` + ruleColumns + ` FROM pricing_rules WHERE id = ?`

// Rules scoped to no hotel (NULL) apply everywhere; same for category.
const listActiveRulesSQL = `
SELECT ` + ruleColumns + `
FROM pricing_rules
WHERE is_active = 1 AND (hotel_id IS NULL OR hotel_id = ?)
`

const listActiveRulesCategoryFilter = ` AND (category IS NULL OR category = ?)`

const insertRuleSQL = `
INSERT INTO pricing_rules
  (name, rule_type, hotel_id, category, start_date, end_date,
   adjustment_type, adjustment_value, direction,
   priority, min_nights, max_nights, min_lead_days, max_lead_days,
   weekdays, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateRuleSQL = `
UPDATE pricing_rules SET
  name = ?, rule_type = ?, hotel_id = ?, category = ?,
  start_date = ?, end_date = ?,
  adjustment_type = ?, adjustment_value = ?, direction = ?,
  priority = ?, min_nights = ?, max_nights = ?,
  min_lead_days = ?, max_lead_days = ?,
  weekdays = ?, is_active = ?,
  updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

const setRuleActiveSQL = `
UPDATE pricing_rules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

const deleteRuleSQL = `DELETE FROM pricing_rules WHERE id = ?`

const getOverrideSQL = `
SELECT room_id, rate_date, price, note, source, group_key, created_at, updated_at
FROM rate_overrides
WHERE room_id = ? AND rate_date = ?
`

// listOverridesPrefix gets an IN (...) placeholder list appended per call.
const listOverridesPrefix = `
SELECT room_id, rate_date, price, note, source, group_key, created_at, updated_at
FROM rate_overrides
WHERE rate_date BETWEEN ? AND ? AND room_id IN `

// The UNIQUE (room_id, rate_date) key makes this upsert the cell-level
// atomic unit; concurrent batches over the same cell serialize here.
const upsertOverrideSQL = `
INSERT INTO rate_overrides (room_id, rate_date, price, note, source, group_key)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  price      = VALUES(price),
  note       = VALUES(note),
  source     = VALUES(source),
  group_key  = VALUES(group_key),
  updated_at = CURRENT_TIMESTAMP
`

// Audit trail is append-only; resolution reads only rate_overrides.
const insertOverrideHistorySQL = `
INSERT INTO rate_override_history (room_id, rate_date, price, note, source, group_key)
VALUES (?, ?, ?, ?, ?, ?)
`

const clearGroupSQL = `DELETE FROM rate_overrides WHERE group_key = ?`

const clearGroupRoomFilter = ` AND room_id IN `
