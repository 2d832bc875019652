package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{ID: "id-1", Email: "a@b.com", UserName: "a", IsActive: true}

	require.NoError(t, repo.Create(ctx, u))
	err := repo.Create(ctx, &entity.User{ID: "id-2", Email: "a@b.com"})
	assert.True(t, errors.Is(err, apperror.ErrAlreadyExists))

	got, err := repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)

	got.UserName = "mutated"
	again, err := repo.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.UserName, "returned users are copies")

	require.NoError(t, repo.SetActive(ctx, "id-1", false))
	again, err = repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, again.IsActive)

	_, err = repo.GetByEmail(ctx, "missing@b.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.True(t, errors.Is(repo.SetActive(ctx, "missing", true), apperror.ErrNotFound))
}
