// Package auth is the token collaborator: it issues and verifies the
// bearer tokens the REST and websocket layers authenticate with.
package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal carried by a token.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// TokenIssuer mints tokens for authenticated identities.
type TokenIssuer interface {
	IssueToken(ctx context.Context, identity Identity) (string, error)
}

// TokenVerifier validates a token and returns the identity it carries.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

type claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTManager implements both collaborator interfaces with HS256 tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager constructs a JWTManager.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// IssueToken mints a signed token for the identity.
func (m *JWTManager) IssueToken(_ context.Context, identity Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		IsAdmin: identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// VerifyToken parses and validates a token.
func (m *JWTManager) VerifyToken(_ context.Context, tokenString string) (Identity, error) {
	var parsed claims
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	subject, err := parsed.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, IsAdmin: parsed.IsAdmin}, nil
}

// HashPassword hashes a cleartext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword compares a candidate password against a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
