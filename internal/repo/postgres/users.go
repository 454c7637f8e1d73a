package postgres

import (
	"context"
	"errors"

	"github.com/devonwhite/dbmaint/internal/domain/user"
	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

func NewUsersRepo(pool *pgxpool.Pool, metrics *observability.Metrics) *UsersRepo {
	return &UsersRepo{pool: pool, metrics: metrics}
}

// FetchAll returns every user record ordered by creation time descending.
// The resolver re-sorts anyway; the ORDER BY keeps ad-hoc inspection of the
// same query sane.
func (r *UsersRepo) FetchAll(ctx context.Context) ([]user.User, error) {
	var users []user.User

	err := r.metrics.ObserveDB("users.fetch_all", func() error {
		rows, err := r.pool.Query(
			ctx,
			`SELECT id, email, password_hash, name, role, created_at, updated_at
             FROM users
             ORDER BY created_at DESC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var u user.User

			err := rows.Scan(
				&u.ID,
				&u.Email,
				&u.PasswordHash,
				&u.Name,
				&u.Role,
				&u.CreatedAt,
				&u.UpdatedAt,
			)

			if err != nil {
				return err
			}

			users = append(users, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}

// DeleteByID removes a single record. A zero-row result maps to
// user.ErrNotFound, which callers treat as the record already being gone.
func (r *UsersRepo) DeleteByID(ctx context.Context, id string) error {
	return r.metrics.ObserveDB("users.delete_by_id", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

// GetByEmail matches on the normalized (lower-cased) email.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.get_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, email, password_hash, name, role, created_at, updated_at
             FROM users
             WHERE lower(email) = $1`,
			user.NormalizeEmail(email),
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.Name,
			&u.Role,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return r.metrics.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
             VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
		)

		return err
	})
}
