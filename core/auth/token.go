// Package auth issues and verifies the bearer tokens that guard the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer 签发者
const Issuer = "cuetrainer"

// DefaultTokenTTL is used when IssueToken gets a non-positive ttl.
const DefaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken covers every reason a token is rejected.
var ErrInvalidToken = errors.New("invalid token")

// Claims API 令牌声明
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens with one shared secret.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager returns nil for an empty secret, which disables auth.
func NewManager(secret string) *Manager {
	if secret == "" {
		return nil
	}
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether requests must carry a token.
func (m *Manager) Enabled() bool {
	return m != nil
}

// IssueToken signs a token for client valid for ttl.
func (m *Manager) IssueToken(client string, ttl time.Duration) (string, error) {
	if m == nil {
		return "", errors.New("auth is disabled: API_SECRET is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := m.now()
	claims := &Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, issuer and expiry.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
