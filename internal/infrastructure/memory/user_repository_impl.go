package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
)

// UserRepository is an in-process credential store for local runs and tests.
// Users are copied on the way in and out so callers never share state.
type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*entity.User
	byID    map[string]*entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byEmail: make(map[string]*entity.User),
		byID:    make(map[string]*entity.User),
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return fmt.Errorf("insert user: %w", apperror.ErrAlreadyExists)
	}
	if _, ok := r.byID[u.ID]; ok {
		return fmt.Errorf("insert user: %w", apperror.ErrAlreadyExists)
	}
	cp := *u
	r.byEmail[cp.Email] = &cp
	r.byID[cp.ID] = &cp
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
