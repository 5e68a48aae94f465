package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/models"
)

// MemoryRepository keeps users in a map. It is meant for local runs and
// tests; nothing survives a restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByEmail(user.Email) != nil {
		return nil, common.ErrAlreadyExists
	}

	c := *user
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Role == "" {
		c.Role = models.RoleCustomer
	}
	c.CreatedAt = r.now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.users[c.ID] = &c

	return public(&c), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return public(u), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findByEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return public(u), nil
}

func (r *MemoryRepository) GetCredentialsByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findByEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) bool {
		u.PasswordHash = passwordHash
		u.PasswordResetToken, u.PasswordResetExpiresAt = nil, nil
		return true
	})
}

func (r *MemoryRepository) SetPasswordReset(_ context.Context, id, tokenHash string, expires time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.PasswordResetToken, u.PasswordResetExpiresAt = &tokenHash, &expires
		return true
	})
}

func (r *MemoryRepository) ConsumePasswordReset(_ context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return r.update(id, func(u *models.User) bool {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tokenHash {
			return false
		}
		if u.PasswordResetExpiresAt == nil || !u.PasswordResetExpiresAt.After(now) {
			return false
		}
		u.PasswordHash = passwordHash
		u.PasswordResetToken, u.PasswordResetExpiresAt = nil, nil
		return true
	})
}

func (r *MemoryRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.LastLogin = &at
		return true
	})
}

func (r *MemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.update(id, func(u *models.User) bool {
		u.IsActive = active
		return true
	})
}

func (r *MemoryRepository) SetRole(_ context.Context, id string, role models.Role) error {
	return r.update(id, func(u *models.User) bool {
		u.Role = role
		return true
	})
}

// List orders by creation time, then id, like the SQL backend.
func (r *MemoryRepository) List(_ context.Context, offset, limit int) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, public(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Snapshot returns a deep copy of the stored records; Restore puts one back.
func (r *MemoryRepository) Snapshot() map[string]models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := make(map[string]models.User, len(r.users))
	for id, u := range r.users {
		s[id] = *u
	}
	return s
}

func (r *MemoryRepository) Restore(s map[string]models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*models.User, len(s))
	for id, u := range s {
		c := u
		r.users[id] = &c
	}
}

func (r *MemoryRepository) findByEmail(email string) *models.User {
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *MemoryRepository) update(id string, fn func(u *models.User) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	c := *u
	if !fn(&c) {
		return common.ErrorNotFound
	}
	c.UpdatedAt = r.now().UTC()
	r.users[id] = &c
	return nil
}

func public(u *models.User) *models.User {
	c := *u
	c.PasswordHash = ""
	return &c
}
