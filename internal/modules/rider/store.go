// README: Rider store backed by PostgreSQL; bookings are loaded through the booking store.
package rider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ridebook/internal/infra"
	"ridebook/internal/modules/booking"
	"ridebook/internal/types"
)

type BookingLister interface {
	FindByRiderID(ctx context.Context, riderID types.ID) ([]booking.Booking, error)
}

type Store struct {
	db       infra.DBTX
	bookings BookingLister
}

func NewStore(db infra.DBTX, bookings BookingLister) *Store {
	return &Store{db: db, bookings: bookings}
}

// FindByID locks the rider row for the rest of the surrounding transaction.
func (s *Store) FindByID(ctx context.Context, id types.ID) (Rider, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, (balance * 100)::bigint, birthday
		FROM riders
		WHERE id = $1
		FOR UPDATE`, string(id),
	)
	var r Rider
	var balance int64
	var birthday *time.Time
	err := row.Scan(&r.ID, &balance, &birthday)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rider{}, ErrNotFound
	}
	if err != nil {
		return Rider{}, fmt.Errorf("find rider %s: %w", id, err)
	}
	r.Balance = types.Money(balance)
	if birthday != nil {
		r.Birthday = *birthday
	}
	r.Bookings, err = s.bookings.FindByRiderID(ctx, id)
	if err != nil {
		return Rider{}, err
	}
	return r, nil
}

// Save persists balance and birthday. Bookings are saved by the booking store.
func (s *Store) Save(ctx context.Context, r Rider) error {
	var birthday *time.Time
	if !r.Birthday.IsZero() {
		birthday = &r.Birthday
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO riders (id, balance, birthday, updated_at)
		VALUES ($1, $2::bigint / 100.0, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			birthday = EXCLUDED.birthday,
			updated_at = NOW()`,
		string(r.ID), int64(r.Balance), birthday,
	)
	if err != nil {
		return fmt.Errorf("save rider %s: %w", r.ID, err)
	}
	return nil
}
