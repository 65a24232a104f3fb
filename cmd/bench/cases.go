// README: Scenario cases; environment checks, seeded booking scenarios, a booking race and a quote load run.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"ridebook/internal/types"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	today time.Time
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		today: time.Now().UTC(),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		start := time.Now()
		res := tc.Run(ctx, r)
		if res.Latency == 0 {
			res.Latency = time.Since(start)
		}
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s (%s)", res.Status, tc.Name, res.Latency.Round(time.Millisecond))
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

type seedRider struct {
	id       string
	balance  types.Money
	birthday bool
}

var seedRiders = []seedRider{
	{id: "bench-a", balance: types.Units(50)},
	{id: "bench-c", balance: types.Units(50)},
	{id: "bench-d", balance: types.Units(50), birthday: true},
	{id: "bench-poor", balance: types.Units(1)},
	{id: "bench-race", balance: types.Units(100)},
}

const benchDriver = "bench-driver"

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return fail("db not configured")
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return fail(err.Error())
			}
			return pass("")
		}},
		{Name: "Env: Redis connect (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return skip("redis not configured")
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return fail(err.Error())
			}
			return pass("")
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return skip("apply-migration=false")
			}
			if r.db == nil {
				return fail("db not configured")
			}
			sql, err := os.ReadFile(r.cfg.MigrationPath)
			if err != nil {
				return fail(err.Error())
			}
			for _, s := range splitSQL(string(sql)) {
				if _, err := r.db.Exec(ctx, s); err != nil {
					return fail(err.Error())
				}
			}
			return pass("")
		}},
		{Name: "Migration: tables exist", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return fail("db not configured")
			}
			tables, err := extractTables(r.cfg.MigrationPath)
			if err != nil {
				return fail(err.Error())
			}
			for _, t := range tables {
				var exists bool
				err := r.db.QueryRow(ctx,
					"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
					t,
				).Scan(&exists)
				if err != nil {
					return fail(err.Error())
				}
				if !exists {
					return fail("missing table: " + t)
				}
			}
			return pass("")
		}},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			status, _, err := r.do(ctx, http.MethodGet, "/health", nil)
			if err != nil {
				return fail(err.Error())
			}
			return expectStatus(status, http.StatusOK)
		}},
		{Name: "Seed: riders and driver", Run: func(ctx context.Context, r *Runner) Result {
			if err := r.seed(ctx); err != nil {
				return fail(err.Error())
			}
			return pass(fmt.Sprintf("riders=%d", len(seedRiders)))
		}},

		{Name: "Scenario A: book Paris->Paris 10km", Run: func(ctx context.Context, r *Runner) Result {
			if r.today.Month() == time.December && r.today.Day() == 25 {
				return skip("holiday surge active today")
			}
			return r.bookAndCheck(ctx, "bench-a", "Paris", "Paris", types.Units(7), types.Units(43))
		}},
		{Name: "Scenario B: holiday surge doubles the fare", Run: func(ctx context.Context, r *Runner) Result {
			if r.today.Month() != time.December || r.today.Day() != 25 {
				return skip("only runs on Dec 25 against the server clock")
			}
			return r.bookAndCheck(ctx, "bench-a", "Paris", "Paris", types.Units(14), types.Units(36))
		}},
		{Name: "Book: second active booking -> 409", Run: func(ctx context.Context, r *Runner) Result {
			status, _, err := r.book(ctx, "bench-a", "Paris", "Lyon", false)
			if err != nil {
				return fail(err.Error())
			}
			return expectStatus(status, http.StatusConflict)
		}},
		{Name: "Book: insufficient funds -> 402", Run: func(ctx context.Context, r *Runner) Result {
			status, _, err := r.book(ctx, "bench-poor", "Paris", "Lyon", false)
			if err != nil {
				return fail(err.Error())
			}
			return expectStatus(status, http.StatusPaymentRequired)
		}},
		{Name: "Book: missing fields -> 400", Run: func(ctx context.Context, r *Runner) Result {
			status, _, err := r.do(ctx, http.MethodPost, "/book", map[string]any{})
			if err != nil {
				return fail(err.Error())
			}
			return expectStatus(status, http.StatusBadRequest)
		}},
		{Name: "Scenario C: cancel accepted ride keeps the fee", Run: func(ctx context.Context, r *Runner) Result {
			return r.acceptAndCancel(ctx, "bench-c", types.Units(45))
		}},
		{Name: "Scenario D: cancel on birthday refunds in full", Run: func(ctx context.Context, r *Runner) Result {
			return r.acceptAndCancel(ctx, "bench-d", types.Units(50))
		}},
		{Name: "Cancel: nothing to cancel -> 409", Run: func(ctx context.Context, r *Runner) Result {
			status, _, err := r.do(ctx, http.MethodPost, "/cancel", map[string]any{"rider_id": "bench-c"})
			if err != nil {
				return fail(err.Error())
			}
			return expectStatus(status, http.StatusConflict)
		}},
		{Name: "History: driver name resolved", Run: func(ctx context.Context, r *Runner) Result {
			status, body, err := r.do(ctx, http.MethodGet, "/history/bench-c", nil)
			if err != nil {
				return fail(err.Error())
			}
			if status != http.StatusOK {
				return fail(fmt.Sprintf("status=%d", status))
			}
			var out struct {
				Rides []struct {
					DriverName *string `json:"driver_name"`
				} `json:"rides"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return fail(err.Error())
			}
			if len(out.Rides) != 1 || out.Rides[0].DriverName == nil {
				return fail(fmt.Sprintf("rides=%d", len(out.Rides)))
			}
			return pass(*out.Rides[0].DriverName)
		}},
		{Name: "Race: concurrent bookings for one rider", Run: func(ctx context.Context, r *Runner) Result {
			return concurrentBook(ctx, r, "bench-race")
		}},
		{Name: "Load: quote", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, r.cfg.BaseURL+"/quote", map[string]any{
				"rider_id": "bench-a", "from": "Paris", "to": "Lyon", "distance_km": 12.5,
			})
		}},
	}
}

func (r *Runner) seed(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("db not configured")
	}
	if _, err := r.db.Exec(ctx, `UPDATE drivers SET current_booking_id = NULL WHERE id = $1`, benchDriver); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE rider_id LIKE 'bench-%'`); err != nil {
		return err
	}
	for _, sr := range seedRiders {
		var birthday *time.Time
		if sr.birthday {
			b := time.Date(1990, r.today.Month(), r.today.Day(), 0, 0, 0, 0, time.UTC)
			birthday = &b
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO riders (id, balance, birthday) VALUES ($1, $2::bigint / 100.0, $3)
			ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, birthday = EXCLUDED.birthday, updated_at = NOW()`,
			sr.id, int64(sr.balance), birthday)
		if err != nil {
			return fmt.Errorf("seed rider %s: %w", sr.id, err)
		}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO drivers (id, name) VALUES ($1, 'Bench Driver')
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, current_booking_id = NULL, updated_at = NOW()`,
		benchDriver)
	return err
}

func (r *Runner) balance(ctx context.Context, riderID string) (types.Money, error) {
	var cents int64
	err := r.db.QueryRow(ctx, `SELECT (balance * 100)::bigint FROM riders WHERE id = $1`, riderID).Scan(&cents)
	return types.Money(cents), err
}

type bookingBody struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Amount types.Money `json:"amount"`
}

func (r *Runner) book(ctx context.Context, riderID, from, to string, premium bool) (int, bookingBody, error) {
	var out bookingBody
	status, body, err := r.do(ctx, http.MethodPost, "/book", map[string]any{
		"rider_id": riderID, "from": from, "to": to, "distance_km": 10, "premium": premium,
	})
	if err != nil {
		return 0, out, err
	}
	if status == http.StatusCreated {
		err = json.Unmarshal(body, &out)
	}
	return status, out, err
}

func (r *Runner) bookAndCheck(ctx context.Context, riderID, from, to string, wantAmount, wantBalance types.Money) Result {
	status, b, err := r.book(ctx, riderID, from, to, false)
	if err != nil {
		return fail(err.Error())
	}
	if status != http.StatusCreated {
		return fail(fmt.Sprintf("status=%d", status))
	}
	if b.Amount != wantAmount || b.Status != "pending" {
		return fail(fmt.Sprintf("amount=%s status=%s", b.Amount, b.Status))
	}
	bal, err := r.balance(ctx, riderID)
	if err != nil {
		return fail(err.Error())
	}
	if bal != wantBalance {
		return fail(fmt.Sprintf("balance=%s want %s", bal, wantBalance))
	}
	return pass(fmt.Sprintf("amount=%s balance=%s", b.Amount, bal))
}

// acceptAndCancel books Paris->Lyon for 10km (15.00), has the bench driver
// accept it and cancels.
func (r *Runner) acceptAndCancel(ctx context.Context, riderID string, wantBalance types.Money) Result {
	if r.today.Month() == time.December && r.today.Day() == 25 {
		return skip("holiday surge active today")
	}
	status, b, err := r.book(ctx, riderID, "Paris", "Lyon", false)
	if err != nil {
		return fail(err.Error())
	}
	if status != http.StatusCreated || b.Amount != types.Units(15) {
		return fail(fmt.Sprintf("book status=%d amount=%s", status, b.Amount))
	}
	status, _, err = r.do(ctx, http.MethodPost, "/bookings/"+b.ID+"/accept", map[string]any{"driver_id": benchDriver})
	if err != nil {
		return fail(err.Error())
	}
	if status != http.StatusOK {
		return fail(fmt.Sprintf("accept status=%d", status))
	}
	status, body, err := r.do(ctx, http.MethodPost, "/cancel", map[string]any{"rider_id": riderID})
	if err != nil {
		return fail(err.Error())
	}
	var canceled bookingBody
	_ = json.Unmarshal(body, &canceled)
	if status != http.StatusOK || canceled.Status != "canceled" {
		return fail(fmt.Sprintf("cancel status=%d booking=%s", status, canceled.Status))
	}
	bal, err := r.balance(ctx, riderID)
	if err != nil {
		return fail(err.Error())
	}
	if bal != wantBalance {
		return fail(fmt.Sprintf("balance=%s want %s", bal, wantBalance))
	}
	return pass(fmt.Sprintf("balance=%s", bal))
}

func (r *Runner) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func concurrentBook(ctx context.Context, r *Runner, riderID string) Result {
	wg := sync.WaitGroup{}
	succ, conflicts := 0, 0
	mu := sync.Mutex{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.book(ctx, riderID, "Paris", "Lyon", false)
			if err != nil {
				return
			}
			mu.Lock()
			switch status {
			case http.StatusCreated:
				succ++
			case http.StatusConflict:
				conflicts++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicts)
	if succ != 1 {
		return fail(note)
	}
	return pass(note)
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return fail("no requests completed")
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Latency: r.cfg.Duration, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func pass(note string) Result { return Result{Status: StatusPass, Note: note} }
func fail(note string) Result { return Result{Status: StatusFail, Note: note} }
func skip(note string) Result { return Result{Status: StatusSkip, Note: note} }

func expectStatus(got, want int) Result {
	note := fmt.Sprintf("status=%d", got)
	if got != want {
		return fail(note)
	}
	return pass(note)
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
