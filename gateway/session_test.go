package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMintAndVerify(t *testing.T) {
	s := newSessions("secret", time.Hour)

	sessionID, cookie, err := s.mint()
	require.NoError(t, err)
	assert.Len(t, sessionID, 32, "16 random bytes, hex encoded")

	got, err := s.verify(cookie)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestSessionMintIsUnpredictable(t *testing.T) {
	s := newSessions("secret", time.Hour)

	a, _, err := s.mint()
	require.NoError(t, err)
	b, _, err := s.mint()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionVerifyRejectsTampering(t *testing.T) {
	s := newSessions("secret", time.Hour)
	other := newSessions("different-secret", time.Hour)

	_, cookie, err := s.mint()
	require.NoError(t, err)

	_, err = other.verify(cookie)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = s.verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionVerifyRejectsExpired(t *testing.T) {
	s := newSessions("secret", -time.Minute)

	_, cookie, err := s.mint()
	require.NoError(t, err)

	_, err = s.verify(cookie)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestTokenHash(t *testing.T) {
	sum := sha256.Sum256([]byte("session-id"))

	assert.Equal(t, hex.EncodeToString(sum[:]), TokenHash("session-id"))
	assert.Equal(t, TokenHash("session-id"), TokenHash("session-id"))
	assert.NotEqual(t, TokenHash("session-id"), TokenHash("other"))
}
