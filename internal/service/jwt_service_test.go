package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"match-engine/internal/domain"
)

func TestJWTService_IssueParseAccess(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute)
	user := domain.User{ID: "u1", Email: "user@example.com", PlanTier: domain.PlanTierPremium}

	token, expiresIn, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" || expiresIn != int64((15*time.Minute).Seconds()) {
		t.Fatalf("unexpected token=%q expires_in=%d", token, expiresIn)
	}

	claims, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "user@example.com" || claims.PlanTier != "premium" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", 15*time.Minute)

	if _, _, err := svc.IssueAccessToken(domain.User{ID: "u1"}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
	if _, err := svc.ParseAccessToken("anything"); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_ReportsExpired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	token, _, err := svc.IssueAccessToken(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := svc.ParseAccessToken(token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService("secret", 15*time.Minute)
	now := time.Now().UTC()

	sign := func(claims Claims, secret string) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return signed
	}
	registered := func(issuer, subject string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		}
	}

	cases := map[string]string{
		"wrong issuer":     sign(Claims{UserID: "u1", TokenType: "access", RegisteredClaims: registered("other-issuer", "u1")}, "secret"),
		"wrong type":       sign(Claims{UserID: "u1", TokenType: "refresh", RegisteredClaims: registered(tokenIssuer, "u1")}, "secret"),
		"subject mismatch": sign(Claims{UserID: "u1", TokenType: "access", RegisteredClaims: registered(tokenIssuer, "u2")}, "secret"),
		"wrong secret":     sign(Claims{UserID: "u1", TokenType: "access", RegisteredClaims: registered(tokenIssuer, "u1")}, "other"),
		"garbage":          "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseAccessToken(token); !errors.Is(err, ErrJWTInvalid) {
				t.Fatalf("expected ErrJWTInvalid, got %v", err)
			}
		})
	}
}
