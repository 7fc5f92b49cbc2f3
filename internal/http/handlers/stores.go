package handlers

import (
	"context"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
)

// Small consumer-side interfaces so tests can fake each dependency.

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type CaptionStore interface {
	Create(ctx context.Context, userID, text, imageURL string) (caption.Caption, error)
	ListOwned(ctx context.Context, userID string, limit int) ([]caption.Caption, error)
	GetOwned(ctx context.Context, id, userID string) (caption.Caption, error)
	DeleteOwned(ctx context.Context, id, userID string) (caption.Caption, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(hash, plain string) error
	BurnCheck(plain string)
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type ImageCaptioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

type ImageStore interface {
	Save(ctx context.Context, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}
