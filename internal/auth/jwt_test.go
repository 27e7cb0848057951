package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testService() *JWTService {
	return NewJWTService(JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.flyerdeck.jp",
		Audience:   "flyerdeck-api",
	})
}

func TestValidateSessionToken(t *testing.T) {
	svc := testService()

	token, expiresAt, err := svc.GenerateSessionToken("usr_123")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if time.Until(expiresAt) > SessionTokenExpiry {
		t.Errorf("expiry %v further out than %v", expiresAt, SessionTokenExpiry)
	}

	userID, err := svc.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if userID != "usr_123" {
		t.Errorf("userID = %s, want usr_123", userID)
	}
}

func TestValidateSessionTokenWrongKey(t *testing.T) {
	token, _, err := testService().GenerateSessionToken("usr_123")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	other := NewJWTService(JWTConfig{
		SigningKey: "different-key",
		Issuer:     "https://api.flyerdeck.jp",
		Audience:   "flyerdeck-api",
	})

	if _, err := other.ValidateSessionToken(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("error = %v, want ErrInvalidSessionToken", err)
	}
}

func TestValidateSessionTokenExpired(t *testing.T) {
	svc := testService()

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://api.flyerdeck.jp",
			Subject:   "usr_123",
			Audience:  jwt.ClaimStrings{"flyerdeck-api"},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: "usr_123",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := svc.ValidateSessionToken(token); !errors.Is(err, ErrSessionTokenExpired) {
		t.Errorf("error = %v, want ErrSessionTokenExpired", err)
	}
}

func TestValidateSessionTokenWrongAudience(t *testing.T) {
	issuer := NewJWTService(JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.flyerdeck.jp",
		Audience:   "some-other-service",
	})
	token, _, err := issuer.GenerateSessionToken("usr_123")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	if _, err := testService().ValidateSessionToken(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("error = %v, want ErrInvalidSessionToken", err)
	}
}

func TestValidateSessionTokenGarbage(t *testing.T) {
	if _, err := testService().ValidateSessionToken("not.a.jwt"); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("error = %v, want ErrInvalidSessionToken", err)
	}
}
