package auth

import (
	"errors"
	"testing"
	"time"

	"warehouse-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func uintPtr(v uint) *uint { return &v }

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	raw, err := tokens.Issue(&models.User{ID: 7, Role: models.RoleStoreManager, StoreID: uintPtr(3)})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id := claims.Identity()
	if id.UserID != 7 || id.Role != models.RoleStoreManager || id.StoreID == nil || *id.StoreID != 3 {
		t.Errorf("unexpected identity %+v", id)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("expected a one hour lifetime, got %s", got)
	}
}

func TestTokens_DefaultTTL(t *testing.T) {
	if got := NewTokens(testSecret, 0).ttl; got != DefaultTokenTTL {
		t.Errorf("expected %s, got %s", DefaultTokenTTL, got)
	}
}

func TestTokens_IssueRejectsStoreManagerWithoutStore(t *testing.T) {
	if _, err := NewTokens(testSecret, time.Hour).Issue(&models.User{ID: 1, Role: models.RoleStoreManager}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTokens_ParseRejects(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	admin := &models.User{ID: 1, Role: models.RoleAdmin}

	expired := NewTokens(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredRaw, err := expired.Issue(admin)
	if err != nil {
		t.Fatal(err)
	}

	otherSecret, err := NewTokens("another-secret-another-secret-0000", time.Hour).Issue(admin)
	if err != nil {
		t.Fatal(err)
	}

	sign := func(method jwt.SigningMethod, claims *Claims) string {
		t.Helper()
		raw, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}
	valid := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredRaw},
		{"wrong secret", otherSecret},
		{"other algorithm", sign(jwt.SigningMethodHS512, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: valid})},
		{"foreign issuer", sign(jwt.SigningMethodHS256, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "someone-else", ExpiresAt: valid.ExpiresAt,
		}})},
		{"no expiry", sign(jwt.SigningMethodHS256, &Claims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer}})},
		{"store manager without store", sign(jwt.SigningMethodHS256, &Claims{UserID: 2, Role: models.RoleStoreManager, RegisteredClaims: valid})},
		{"unknown role", sign(jwt.SigningMethodHS256, &Claims{UserID: 2, Role: "owner", RegisteredClaims: valid})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
