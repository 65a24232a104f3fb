// README: Postgres unit of work; every workflow operation runs in one pgx transaction.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridebook/internal/infra"
	"ridebook/internal/modules/booking"
	"ridebook/internal/modules/driver"
	"ridebook/internal/modules/ride"
	"ridebook/internal/modules/rider"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, s ride.Stores) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, StoresFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// StoresFor binds the pgx stores to db, which may be a pool or a transaction.
func StoresFor(db infra.DBTX) ride.Stores {
	bookings := booking.NewStore(db)
	return ride.Stores{
		Riders:   rider.NewStore(db, bookings),
		Bookings: bookings,
		Drivers:  driver.NewStore(db),
	}
}
