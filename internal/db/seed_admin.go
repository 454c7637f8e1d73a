package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devonwhite/dbmaint/internal/config"
	"github.com/devonwhite/dbmaint/internal/domain/user"
	"github.com/devonwhite/dbmaint/internal/security"
	"github.com/google/uuid"
)

// UserStore is the slice of the users repository that seeding needs. The
// store handle is passed in explicitly so the seeder can run against the
// in-memory store in tests.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

// EnsureAdminUser creates the configured admin account if no record with the
// same normalized email exists. Reruns are no-ops.
func EnsureAdminUser(ctx context.Context, store UserStore, cfg config.Config, log *slog.Logger) error {
	email := user.NormalizeEmail(cfg.AdminEmail)

	if email == "" || cfg.AdminPassword == "" {
		log.Info("admin seeding skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	existing, err := store.GetByEmail(ctx, email)

	if err == nil {
		log.Info("admin user already present", "id", existing.ID, "email", email)
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         cfg.AdminName,
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.Create(ctx, u); err != nil {
		return err
	}

	log.Info("admin user created", "id", u.ID, "email", u.Email)

	return nil
}
