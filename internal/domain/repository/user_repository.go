package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
)

// UserRepository is the credential store.
//
// Implementations receive already-normalized emails. Create must return an
// error wrapping apperror.ErrAlreadyExists when the email is taken, and the
// lookups must wrap apperror.ErrNotFound on a miss.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}
