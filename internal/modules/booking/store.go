// README: Booking store backed by PostgreSQL. Amounts are numeric(10,2) in the
// database and cents in Go.
package booking

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

const selectBooking = `
	SELECT id, rider_id, driver_id, origin, destination, status,
	       (amount * 100)::bigint, distance_m, created_at
	FROM bookings`

func (s *Store) FindByID(ctx context.Context, id types.ID) (Booking, error) {
	row := s.db.QueryRow(ctx, selectBooking+` WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("find booking %s: %w", id, err)
	}
	return b, nil
}

// FindByRiderID returns the rider's bookings oldest first.
func (s *Store) FindByRiderID(ctx context.Context, riderID types.ID) ([]Booking, error) {
	rows, err := s.db.Query(ctx, selectBooking+` WHERE rider_id = $1 ORDER BY created_at ASC, id ASC`, string(riderID))
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", riderID, err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Save inserts or updates the booking keyed by id.
func (s *Store) Save(ctx context.Context, b Booking) error {
	var dist *int64
	if b.Distance != nil {
		v := int64(*b.Distance)
		dist = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, rider_id, driver_id, origin, destination, status,
			amount, distance_m, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::bigint / 100.0, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			driver_id = EXCLUDED.driver_id,
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			distance_m = EXCLUDED.distance_m,
			updated_at = NOW()`,
		string(b.ID),
		string(b.RiderID),
		toStringPtr(b.DriverID),
		b.From,
		b.To,
		string(b.Status),
		int64(b.Amount),
		dist,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}
	return nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var driverID sql.NullString
	var amount int64
	var dist sql.NullInt64
	if err := row.Scan(
		&b.ID, &b.RiderID, &driverID, &b.From, &b.To, &b.Status,
		&amount, &dist, &b.CreatedAt,
	); err != nil {
		return Booking{}, err
	}
	b.Amount = types.Money(amount)
	if driverID.Valid {
		d := types.ID(driverID.String)
		b.DriverID = &d
	}
	if dist.Valid {
		d := types.Distance(dist.Int64)
		b.Distance = &d
	}
	return b, nil
}

func toStringPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}
