package auth

import (
	"errors"
	"fmt"
	"time"

	"assetdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	UserID uuid.UUID
	Role   model.Role
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime given to new tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token carrying the user id and role.
func (m *TokenManager) Issue(id uuid.UUID, role model.Role) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the embedded identity.
// The role is taken from the token as-is; callers gate on it.
func (m *TokenManager) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	role, ok := claims["role"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("%w: role not found", ErrInvalidToken)
	}

	return Identity{UserID: id, Role: model.Role(role)}, nil
}
