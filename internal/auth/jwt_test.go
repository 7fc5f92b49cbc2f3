package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", DefaultTTL, opts...)
	require.NoError(t, err)
	return m
}

var ann = Identity{UserID: "u-1", Email: "ann@x.com", Name: "Ann", Role: user.RoleStandard}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	tok, err := m.Issue(ann)
	require.NoError(t, err)

	got, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, ann, got)
}

func TestIssue_ExpiresAfterSevenDays(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, WithClock(func() time.Time { return fixed }))

	tok, err := m.Issue(ann)
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)

	assert.Equal(t, fixed.Add(7*24*time.Hour), claims.ExpiresAt.Time.UTC())
	assert.Equal(t, ann.UserID, claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	past := time.Now().Add(-8 * 24 * time.Hour)
	issuer := newTestManager(t, WithClock(func() time.Time { return past }))

	tok, err := issuer.Issue(ann)
	require.NoError(t, err)

	_, err = newTestManager(t).Verify(tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	other, err := NewManager("other-secret", DefaultTTL)
	require.NoError(t, err)

	tok, err := other.Issue(ann)
	require.NoError(t, err)

	_, err = newTestManager(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID: ann.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ann.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestManager(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsMissingExpiry(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID:           ann.UserID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: ann.UserID},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestManager(t).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat("x", 64)} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestNewManager_RequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}
