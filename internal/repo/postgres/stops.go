package postgres

import (
	"context"

	"github.com/devonwhite/dbmaint/internal/domain/stop"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StopsRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewStopsRepo(pool *pgxpool.Pool, metrics *observability.Metrics) *StopsRepo {
	return &StopsRepo{pool: pool, metrics: metrics}
}

func (r *StopsRepo) Create(ctx context.Context, s stop.Stop) error {
	if !s.Type.IsValid() {
		return stop.ErrInvalidStopType
	}

	return r.metrics.ObserveDB("stops.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO stops (id, address, stop_type, description, created_at)
             VALUES ($1,$2,$3,$4,$5)`,
			s.ID, s.Address, s.Type, s.Description, s.CreatedAt,
		)

		return err
	})
}

func (r *StopsRepo) Count(ctx context.Context) (int, error) {
	var n int

	err := r.metrics.ObserveDB("stops.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stops`).Scan(&n)
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}
