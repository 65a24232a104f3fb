// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ridebook/internal/infra"
	"ridebook/internal/types"
)

type Store struct {
	db infra.DBTX
}

func NewStore(db infra.DBTX) *Store {
	return &Store{db: db}
}

// FindByID falls back to the driver's latest accepted booking when the
// current_booking_id column has not been set.
func (s *Store) FindByID(ctx context.Context, id types.ID) (Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT d.id, d.name,
		       COALESCE(d.current_booking_id, (
		           SELECT b.id FROM bookings b
		           WHERE b.driver_id = d.id
		           ORDER BY b.created_at DESC
		           LIMIT 1
		       ))
		FROM drivers d
		WHERE d.id = $1`, string(id),
	)
	var d Driver
	var name, current sql.NullString
	err := row.Scan(&d.ID, &name, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrNotFound
	}
	if err != nil {
		return Driver{}, fmt.Errorf("find driver %s: %w", id, err)
	}
	if name.Valid {
		d.Name = &name.String
	}
	if current.Valid {
		c := types.ID(current.String)
		d.CurrentBookingID = &c
	}
	return d, nil
}

func (s *Store) Save(ctx context.Context, d Driver) error {
	var current *string
	if d.CurrentBookingID != nil {
		v := string(*d.CurrentBookingID)
		current = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, current_booking_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			current_booking_id = EXCLUDED.current_booking_id,
			updated_at = NOW()`,
		string(d.ID), d.Name, current,
	)
	if err != nil {
		return fmt.Errorf("save driver %s: %w", d.ID, err)
	}
	return nil
}
