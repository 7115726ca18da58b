//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "hotel_rates/internal/adapters/http_server"
	redisad "hotel_rates/internal/adapters/redis"
	"hotel_rates/internal/app"
	"hotel_rates/internal/engine"
	mysqlrepo "hotel_rates/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, into any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(into); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// ---------- the test ----------
func TestHTTP_EndToEnd_RateLifecycle(t *testing.T) {
	// Isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=rates",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "rates")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	for id := int64(1); id <= 3; id++ {
		if _, err := db.Exec(
			`INSERT INTO rooms (id, hotel_id, category, base_price, is_active, max_occupancy) VALUES (?,?,?,?,1,2)`,
			id, 10, "standard", "100.00",
		); err != nil {
			t.Fatalf("seed room %d: %v", id, err)
		}
	}

	// Full wiring: repo for all ports, engine with a pinned clock so lead
	// windows never depend on the wall clock, miniredis behind the cache.
	repo := mysqlrepo.New(db)
	eng := engine.New(repo, repo, repo, 4).WithClock(func() time.Time {
		return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	q := app.NewQueryService(eng, cache, 5*time.Minute)
	c := app.NewCommandService(eng, repo, repo, cache, nil)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, C: c})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// Create a seasonal markup rule over July
	res := postJSON(t, ts.URL+"/v1/rules", map[string]any{
		"name":             "summer season",
		"rule_type":        "seasonal",
		"hotel_id":         10,
		"start_date":       "2026-07-01",
		"end_date":         "2026-07-31",
		"adjustment_type":  "percentage",
		"adjustment_value": "20",
		"direction":        "increase",
		"priority":         3,
	})
	var created struct {
		ID int64 `json:"id"`
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create rule: status %d", res.StatusCode)
	}
	decodeBody(t, res, &created)
	if created.ID == 0 {
		t.Fatal("rule id missing")
	}

	// Resolution picks up the rule
	res, err = http.Get(ts.URL + "/v1/rooms/1/rate?date=2026-07-15")
	if err != nil {
		t.Fatalf("GET rate: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get rate: status %d", res.StatusCode)
	}
	var rate struct {
		Price string   `json:"price"`
		Chain []string `json:"chain"`
	}
	decodeBody(t, res, &rate)
	if rate.Price != "120" {
		t.Fatalf("resolved price = %s, want 120", rate.Price)
	}
	if len(rate.Chain) != 2 || rate.Chain[0] != "base" {
		t.Fatalf("chain = %v", rate.Chain)
	}

	// A manual rate wins over the rule, and the write evicts the cache
	res = putJSON(t, ts.URL+"/v1/rooms/1/rate", map[string]any{
		"date":  "2026-07-15",
		"price": "95.00",
	})
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("put rate: status %d", res.StatusCode)
	}
	res.Body.Close()

	res, err = http.Get(ts.URL + "/v1/rooms/1/rate?date=2026-07-15")
	if err != nil {
		t.Fatalf("GET rate: %v", err)
	}
	decodeBody(t, res, &rate)
	if rate.Price != "95" {
		t.Fatalf("price after manual rate = %s, want 95", rate.Price)
	}
	if len(rate.Chain) != 1 || rate.Chain[0] != "override" {
		t.Fatalf("chain after manual rate = %v", rate.Chain)
	}

	// Preview a group batch; nothing is written yet
	batchBody := map[string]any{
		"target": map[string]any{
			"hotel_id":   10,
			"start_date": "2026-07-14",
			"end_date":   "2026-07-16",
		},
		"operation": map[string]any{
			"kind":      "set_price",
			"mode":      "fixed",
			"value":     "80",
			"group_key": "summer-sale",
		},
	}
	var batch struct {
		RoomsAffected int `json:"rooms_affected"`
		RatesCreated  int `json:"rates_created"`
		RatesUpdated  int `json:"rates_updated"`
		RatesSkipped  int `json:"rates_skipped"`
		RatesFailed   int `json:"rates_failed"`
	}
	res = postJSON(t, ts.URL+"/v1/rates/batch/preview", batchBody)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("preview: status %d", res.StatusCode)
	}
	decodeBody(t, res, &batch)
	// 3 rooms x 3 dates, one cell held by the manual rate
	if batch.RatesCreated != 8 || batch.RatesSkipped != 1 {
		t.Fatalf("preview summary: %+v", batch)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM rate_overrides`).Scan(&n); err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	if n != 1 {
		t.Fatalf("preview must not write; overrides = %d", n)
	}

	// Apply writes the same cells the preview reported
	res = postJSON(t, ts.URL+"/v1/rates/batch/apply", batchBody)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("apply: status %d", res.StatusCode)
	}
	decodeBody(t, res, &batch)
	if batch.RatesCreated != 8 || batch.RatesSkipped != 1 || batch.RatesFailed != 0 {
		t.Fatalf("apply summary: %+v", batch)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM rate_overrides`).Scan(&n); err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	if n != 9 {
		t.Fatalf("overrides after apply = %d, want 9", n)
	}

	// Group rollback removes only the batch rows
	res = postJSON(t, ts.URL+"/v1/rates/groups/summer-sale/clear", map[string]any{})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("clear: status %d", res.StatusCode)
	}
	var cleared struct {
		Cleared int64 `json:"cleared"`
	}
	decodeBody(t, res, &cleared)
	if cleared.Cleared != 8 {
		t.Fatalf("cleared = %d, want 8", cleared.Cleared)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM rate_overrides`).Scan(&n); err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	if n != 1 {
		t.Fatalf("manual rate must survive the clear; overrides = %d", n)
	}
}
