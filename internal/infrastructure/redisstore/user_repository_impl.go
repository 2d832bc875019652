package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// Key layout:
//
//	user:email:<normalized email>  JSON user record, written with SETNX
//	user:id:<id>                   normalized email, secondary index
const (
	emailKeyPrefix = "user:email:"
	idKeyPrefix    = "user:id:"
)

// record is the stored shape. It differs from entity.User because the hash
// must survive the round trip while entity.User never serialises it.
type record struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	UserName     string    `json:"userName"`
	PasswordHash string    `json:"passwordHash"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toRecord(u *entity.User) record {
	return record{
		ID: u.ID, Email: u.Email, UserName: u.UserName, PasswordHash: u.PasswordHash,
		FirstName: u.FirstName, LastName: u.LastName, IsActive: u.IsActive,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (r record) toEntity() *entity.User {
	return &entity.User{
		ID: r.ID, Email: r.Email, UserName: r.UserName, PasswordHash: r.PasswordHash,
		FirstName: r.FirstName, LastName: r.LastName, IsActive: r.IsActive,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// UserRepository keeps credentials in redis. SETNX on the email key gives
// create-if-absent semantics without a separate lock.
type UserRepository struct {
	rdb redis.Cmdable
}

func NewUserRepository(rdb redis.Cmdable) *UserRepository {
	return &UserRepository{rdb: rdb}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	ok, err := helpers.RedisSetNXJSON(ctx, r.rdb, emailKeyPrefix+u.Email, toRecord(u), 0)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if !ok {
		return fmt.Errorf("insert user: %w", apperror.ErrAlreadyExists)
	}
	if err := r.rdb.Set(ctx, idKeyPrefix+u.ID, u.Email, 0).Err(); err != nil {
		// Roll back so a failed create leaves nothing behind.
		_ = helpers.RedisDel(context.WithoutCancel(ctx), r.rdb, emailKeyPrefix+u.Email)
		return fmt.Errorf("index user id: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var rec record
	found, err := helpers.RedisGetJSON(ctx, r.rdb, emailKeyPrefix+email, &rec)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
	}
	return rec.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	email, err := r.rdb.Get(ctx, idKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("select user: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

// SetActive rewrites the record inside a WATCH transaction so a concurrent
// writer cannot be overwritten with stale data.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	client, ok := r.rdb.(*redis.Client)
	if !ok {
		u.IsActive = active
		u.UpdatedAt = time.Now().UTC()
		return helpers.RedisSetJSON(ctx, r.rdb, emailKeyPrefix+u.Email, toRecord(u), 0)
	}
	key := emailKeyPrefix + u.Email
	return client.Watch(ctx, func(tx *redis.Tx) error {
		var rec record
		found, err := helpers.RedisGetJSON(ctx, tx, key, &rec)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
		}
		rec.IsActive = active
		rec.UpdatedAt = time.Now().UTC()
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			return helpers.RedisSetJSON(ctx, p, key, rec, 0)
		})
		return err
	}, key)
}

var _ repository.UserRepository = (*UserRepository)(nil)
