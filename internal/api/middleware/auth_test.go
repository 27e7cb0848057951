package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flyerdeck/flyerdeck/internal/auth"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "https://api.flyerdeck.jp",
		Audience:   "flyerdeck-api",
	})
}

func authHandler(t *testing.T, captured *string) http.Handler {
	t.Helper()
	return Auth(testJWTService())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthValidToken(t *testing.T) {
	token, _, err := testJWTService().GenerateSessionToken("usr_42")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	var userID string
	req := httptest.NewRequest(http.MethodPost, "/v1/decks:generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	authHandler(t, &userID).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if userID != "usr_42" {
		t.Errorf("userID = %q, want usr_42", userID)
	}
}

func TestAuthRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var userID string
			req := httptest.NewRequest(http.MethodPost, "/v1/decks:generate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			authHandler(t, &userID).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
				t.Errorf("Content-Type = %s, want application/problem+json", got)
			}
			if userID != "" {
				t.Error("handler ran despite rejection")
			}
		})
	}
}
