package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("A@B.com"))
	assert.Equal(t, "u@x.com", NormalizeEmail("  U@X.COM \t"))
	assert.Equal(t, NormalizeEmail("a@b.com"), NormalizeEmail("A@b.Com"))
}

func TestUser_JSONNeverContainsHash(t *testing.T) {
	u := User{ID: "1", Email: "u@x.com", UserName: "u", PasswordHash: "$2a$12$secret"}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "password")
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "ada", (&User{UserName: "ada"}).FullName())
}
