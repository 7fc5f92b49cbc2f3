package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/google/uuid"
)

// store is the state shared by one UsersRepo/CaptionsRepo pair so that
// deleting a user can cascade to its captions under one lock.
type store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      uint64
	users    map[string]user.User
	byEmail  map[string]string
	captions map[string]storedCaption
}

type storedCaption struct {
	caption.Caption
	seq uint64
}

type UsersRepo struct {
	s *store
}

type CaptionsRepo struct {
	s *store
}

// New returns an empty in-memory user and caption store pair.
func New() (*UsersRepo, *CaptionsRepo) {
	s := &store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]user.User),
		byEmail:  make(map[string]string),
		captions: make(map[string]storedCaption),
	}

	return &UsersRepo{s: s}, &CaptionsRepo{s: s}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	email = user.NormalizeEmail(email)
	now := r.s.now()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.byEmail[email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.s.users[u.ID] = u
	r.s.byEmail[email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.s.users[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	u.UpdatedAt = r.s.now()
	r.s.users[id] = u

	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if !role.IsValid() {
		return user.User{}, user.ErrInvalidRole
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.Role = role
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u

	return u, nil
}

// Delete removes the user and every caption it owns.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}

	delete(r.s.users, id)
	delete(r.s.byEmail, u.Email)

	for cid, c := range r.s.captions {
		if c.UserID == id {
			delete(r.s.captions, cid)
		}
	}

	return nil
}

func (r *CaptionsRepo) Create(ctx context.Context, userID, text, imageURL string) (caption.Caption, error) {
	if err := ctx.Err(); err != nil {
		return caption.Caption{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return caption.Caption{}, user.ErrNotFound
	}

	r.s.seq++
	c := caption.Caption{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		ImageURL:  imageURL,
		CreatedAt: r.s.now(),
	}
	r.s.captions[c.ID] = storedCaption{Caption: c, seq: r.s.seq}

	return c, nil
}

// ListOwned returns the owner's captions newest first.
func (r *CaptionsRepo) ListOwned(ctx context.Context, userID string, limit int) ([]caption.Caption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	owned := make([]storedCaption, 0)
	for _, c := range r.s.captions {
		if c.UserID == userID {
			owned = append(owned, c)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].seq > owned[j].seq
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}

	out := make([]caption.Caption, 0, len(owned))
	for _, c := range owned {
		out = append(out, c.Caption)
	}

	return out, nil
}

func (r *CaptionsRepo) GetOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	if err := ctx.Err(); err != nil {
		return caption.Caption{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.captions[id]
	if !ok || c.UserID != userID {
		return caption.Caption{}, caption.ErrNotFound
	}

	return c.Caption, nil
}

func (r *CaptionsRepo) DeleteOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	if err := ctx.Err(); err != nil {
		return caption.Caption{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.captions[id]
	if !ok || c.UserID != userID {
		return caption.Caption{}, caption.ErrNotFound
	}

	delete(r.s.captions, id)

	return c.Caption, nil
}
