package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ridebook/internal/calendar"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/ride"
	"ridebook/internal/modules/rider"
	"ridebook/internal/types"
)

func TestPostgresStoresRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	stores := StoresFor(pool)

	birthday := time.Date(1990, 7, 14, 0, 0, 0, 0, time.UTC)
	if err := stores.Riders.Save(ctx, rider.Rider{ID: "r1", Balance: 4310, Birthday: birthday}); err != nil {
		t.Fatalf("save rider: %v", err)
	}
	name := "Ada"
	if err := stores.Drivers.Save(ctx, driver.Driver{ID: "d1", Name: &name}); err != nil {
		t.Fatalf("save driver: %v", err)
	}

	dist := types.Km(12.345)
	b := booking.Booking{
		ID: "b1", RiderID: "r1", From: "Paris", To: "Lyon",
		Status: booking.StatusPending, Amount: 1617, Distance: &dist,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := stores.Bookings.Save(ctx, b); err != nil {
		t.Fatalf("save booking: %v", err)
	}

	got, err := stores.Bookings.FindByID(ctx, "b1")
	if err != nil {
		t.Fatalf("find booking: %v", err)
	}
	if got.Amount != 1617 || got.Distance == nil || *got.Distance != dist || got.DriverID != nil {
		t.Fatalf("unexpected booking %+v", got)
	}

	d1 := types.ID("d1")
	got.Status = booking.StatusAccepted
	got.DriverID = &d1
	if err := stores.Bookings.Save(ctx, got); err != nil {
		t.Fatalf("upsert booking: %v", err)
	}

	r, err := stores.Riders.FindByID(ctx, "r1")
	if err != nil {
		t.Fatalf("find rider: %v", err)
	}
	if r.Balance != 4310 || !calendar.SameMonthDay(r.Birthday, birthday) {
		t.Fatalf("unexpected rider %+v", r)
	}
	if len(r.Bookings) != 1 || r.Bookings[0].Status != booking.StatusAccepted {
		t.Fatalf("rider bookings = %+v", r.Bookings)
	}

	// current booking falls back to the latest booking carrying the driver
	d, err := stores.Drivers.FindByID(ctx, "d1")
	if err != nil {
		t.Fatalf("find driver: %v", err)
	}
	if d.Name == nil || *d.Name != "Ada" || d.CurrentBookingID == nil || *d.CurrentBookingID != "b1" {
		t.Fatalf("unexpected driver %+v", d)
	}

	if _, err := stores.Riders.FindByID(ctx, "missing"); !errors.Is(err, rider.ErrNotFound) {
		t.Fatalf("expected rider.ErrNotFound, got %v", err)
	}
	if _, err := stores.Drivers.FindByID(ctx, "missing"); !errors.Is(err, driver.ErrNotFound) {
		t.Fatalf("expected driver.ErrNotFound, got %v", err)
	}
	if _, err := stores.Bookings.FindByID(ctx, "missing"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected booking.ErrNotFound, got %v", err)
	}
}

func TestPostgresRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	pg := NewPostgres(pool)

	if err := StoresFor(pool).Riders.Save(ctx, rider.Rider{ID: "r1", Balance: types.Units(50)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boom := errors.New("boom")
	err := pg.InTx(ctx, func(ctx context.Context, s ride.Stores) error {
		if err := s.Riders.Save(ctx, rider.Rider{ID: "r1", Balance: 0}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	r, err := StoresFor(pool).Riders.FindByID(ctx, "r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if r.Balance != types.Units(50) {
		t.Fatalf("rollback did not restore balance: %s", r.Balance)
	}
}

func TestPostgresBookRideSameTime(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	if err := StoresFor(pool).Riders.Save(ctx, rider.Rider{ID: "r_race", Balance: types.Units(100)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := ride.NewService(NewPostgres(pool), pricing.NewService(pricing.DefaultRate),
		calendar.Fixed(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)), nil)

	const attempts = 5
	km := 10.0
	errs := make(chan error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.BookRide(ctx, ride.BookCommand{RiderID: "r_race", From: "Paris", To: "Lyon", DistanceKm: &km})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ride.ErrExistingActiveBooking) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	r, err := StoresFor(pool).Riders.FindByID(ctx, "r_race")
	if err != nil {
		t.Fatalf("find rider: %v", err)
	}
	if r.Balance != types.Units(85) || len(r.Bookings) != 1 {
		t.Fatalf("rider after race: balance %s, %d bookings", r.Balance, len(r.Bookings))
	}
}

func seedPendingBooking(t *testing.T, pool *pgxpool.Pool, riderID types.ID, drivers ...types.ID) (*ride.Service, booking.Booking) {
	t.Helper()
	ctx := context.Background()
	stores := StoresFor(pool)
	if err := stores.Riders.Save(ctx, rider.Rider{ID: riderID, Balance: types.Units(100)}); err != nil {
		t.Fatalf("seed rider: %v", err)
	}
	for _, id := range drivers {
		name := "Driver " + string(id)
		if err := stores.Drivers.Save(ctx, driver.Driver{ID: id, Name: &name}); err != nil {
			t.Fatalf("seed driver: %v", err)
		}
	}
	svc := ride.NewService(NewPostgres(pool), pricing.NewService(pricing.DefaultRate),
		calendar.Fixed(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)), nil)
	km := 10.0
	b, err := svc.BookRide(ctx, ride.BookCommand{RiderID: riderID, From: "Paris", To: "Lyon", DistanceKm: &km})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return svc, b
}

func TestPostgresConcurrentAcceptSameBooking(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	const attempts = 8
	drivers := make([]types.ID, attempts)
	for i := range drivers {
		drivers[i] = types.ID(fmt.Sprintf("d%d", i))
	}
	svc, b := seedPendingBooking(t, pool, "r_multi_accept", drivers...)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for _, did := range drivers {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			_, err := svc.AcceptBooking(ctx, ride.AcceptCommand{DriverID: did, BookingID: b.ID})
			errs <- err
		}(did)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ride.ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
}

func TestPostgresConcurrentAcceptVsCancel(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc, b := seedPendingBooking(t, pool, "r_accept_cancel", "d1")

	var wg sync.WaitGroup
	var acceptErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = svc.AcceptBooking(ctx, ride.AcceptCommand{DriverID: "d1", BookingID: b.ID})
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = svc.CancelBooking(ctx, "r_accept_cancel")
	}()
	wg.Wait()

	if cancelErr != nil {
		t.Fatalf("cancel: %v", cancelErr)
	}
	if acceptErr != nil && !errors.Is(acceptErr, ride.ErrInvalidState) {
		t.Fatalf("accept: %v", acceptErr)
	}

	r, err := StoresFor(pool).Riders.FindByID(ctx, "r_accept_cancel")
	if err != nil {
		t.Fatalf("find rider: %v", err)
	}
	got, ok := r.Booking(b.ID)
	if !ok || got.Status != booking.StatusCanceled {
		t.Fatalf("expected canceled booking, got %+v", got)
	}
	// 100 - 15, then a full refund if cancel won, or 10 back if accept won.
	want := types.Units(100)
	if acceptErr == nil {
		want = types.Units(95)
	}
	if r.Balance != want {
		t.Fatalf("balance: got %s, want %s", r.Balance, want)
	}
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("RIDEBOOK_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDEBOOK_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE bookings, drivers, riders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	paths, err := filepath.Glob(filepath.Join(root, "migrations", "*.sql"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(stripSQLComments(string(content))) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
