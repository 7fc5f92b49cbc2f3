package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/captionhub/internal/domain/user"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

// EnsureAdminUser creates an elevated account from seed unless one with the
// same email already exists. An empty email or password disables seeding.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher PasswordHasher, seed AdminSeed, log *slog.Logger) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	_, err := store.GetByEmail(ctx, seed.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return err
	}

	u, err := store.Create(ctx, seed.Email, hash, seed.Name, user.RoleElevated)
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	if log != nil {
		log.Info("admin user created", "user_id", u.ID, "email", u.Email)
	}

	return nil
}
