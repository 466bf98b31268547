package gateway

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the signed browser session cookie.
const SessionCookie = "slugpay_session"

// sessionIDBytes is the entropy of a freshly minted session id.
const sessionIDBytes = 16

// ErrInvalidSession means the session cookie failed signature or expiry
// checks and the caller should mint a fresh session.
var ErrInvalidSession = errors.New("gateway: invalid session cookie")

// sessions mints and verifies the signed session cookie. The cookie is an
// HS256 JWT carrying the per-session secret id; the payment token hash is the
// one-way hash of that id, so the server boundary only ever sees the hash in
// forgeable positions.
type sessions struct {
	secret   []byte
	lifetime time.Duration
}

func newSessions(secret string, lifetime time.Duration) *sessions {
	return &sessions{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// mint creates a fresh session id and the signed cookie value carrying it.
func (s *sessions) mint() (sessionID, cookie string, err error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("gateway: minting session id: %w", err)
	}
	sessionID = hex.EncodeToString(buf)

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	})

	cookie, err = token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return sessionID, cookie, nil
}

// verify extracts the session id from a cookie value.
func (s *sessions) verify(cookie string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(cookie, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.SessionID == "" {
		return "", ErrInvalidSession
	}
	return claims.SessionID, nil
}

// TokenHash derives the payment token from a session id. Only this one-way
// hash ever appears in payment metadata and websocket frames.
func TokenHash(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}
