package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
)

// uniqueViolation is the SQLSTATE postgres reports for a duplicate key.
const uniqueViolation = "23505"

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, user_name, password_hash, first_name, last_name, is_active, created_at, updated_at`

// Create inserts u. The unique index on email is the authoritative duplicate check.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.UserName, u.PasswordHash, u.FirstName, u.LastName, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", apperror.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID looks up by primary key. Ids that are not UUIDs cannot exist in the
// uuid column and are reported as not found without a round trip.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if !isUUID(id) {
		return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
	}
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	if !isUUID(id) {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET is_active = $1, updated_at = $2
		WHERE id = $3
	`, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user active flag: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, arg string) (*entity.User, error) {
	u := &entity.User{}
	row := r.db.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "SQLSTATE "+uniqueViolation)
}

var _ repository.UserRepository = (*UserRepository)(nil)

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
