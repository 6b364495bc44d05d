package auth

import (
	"errors"
	"fmt"
	"time"

	"warehouse-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "warehouse-backend"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims mirror Identity; a store manager token always names its store.
type Claims struct {
	UserID  uint            `json:"user_id"`
	Role    models.UserRole `json:"role"`
	StoreID *uint           `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, StoreID: c.StoreID}
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(user *models.User) (string, error) {
	if user.Role == models.RoleStoreManager && user.StoreID == nil {
		return "", fmt.Errorf("store manager %d has no store", user.ID)
	}
	now := t.now()
	claims := &Claims{
		UserID:  user.ID,
		Role:    user.Role,
		StoreID: user.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and returns its claims. Tokens that would let a store
// manager act without a store are rejected.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleStoreManager:
		if claims.StoreID == nil {
			return nil, fmt.Errorf("%w: store manager without store", ErrInvalidToken)
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
