package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("abc123")
	require.NoError(t, err)
	assert.NotEqual(t, "abc123", hash)

	assert.NoError(t, h.Check(hash, "abc123"))
	assert.ErrorIs(t, h.Check(hash, "abc124"), ErrPasswordMismatch)
}

func TestHash_IsSalted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("abc123")
	require.NoError(t, err)
	b, err := h.Hash("abc123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewHasher_ClampsCost(t *testing.T) {
	h := NewHasher(99)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}

func TestCheck_MalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	err := h.Check("not-a-hash", "abc123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}
