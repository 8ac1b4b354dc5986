package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSessionSigningSecret = "secret"
	testSessionCookieName    = "app_session"
	testSessionUserID        = "user-123"
	testSessionUserEmail     = "user@example.com"
)

var testClockNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testClockNow
}

func newTestValidator(t *testing.T) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock:         fixedClock,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	return validator
}

func signClaims(t *testing.T, claims SessionClaims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() SessionClaims {
	return SessionClaims{
		UserID:    testSessionUserID,
		UserEmail: testSessionUserEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   testSessionUserID,
			IssuedAt:  jwt.NewNumericDate(testClockNow.Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(testClockNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(testClockNow.Add(time.Hour)),
		},
	}
}

func TestSessionValidatorValidateToken(t *testing.T) {
	validator := newTestValidator(t)
	claims, err := validator.ValidateToken(signClaims(t, validClaims(), testSessionSigningSecret))
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if claims.UserID != testSessionUserID || claims.UserEmail != testSessionUserEmail {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestSessionValidatorRefusesBadTokens(t *testing.T) {
	validator := newTestValidator(t)

	expired := validClaims()
	expired.IssuedAt = jwt.NewNumericDate(testClockNow.Add(-2 * time.Hour))
	expired.NotBefore = nil
	expired.ExpiresAt = jwt.NewNumericDate(testClockNow.Add(-time.Hour))
	if _, err := validator.ValidateToken(signClaims(t, expired, testSessionSigningSecret)); !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}

	foreign := validClaims()
	foreign.Issuer = "someone-else"
	if _, err := validator.ValidateToken(signClaims(t, foreign, testSessionSigningSecret)); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token for foreign issuer, got %v", err)
	}

	if _, err := validator.ValidateToken(signClaims(t, validClaims(), "other-secret")); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	anonymous := validClaims()
	anonymous.UserID = ""
	if _, err := validator.ValidateToken(signClaims(t, anonymous, testSessionSigningSecret)); !errors.Is(err, ErrMissingSessionSubject) {
		t.Fatalf("expected missing subject, got %v", err)
	}

	if _, err := validator.ValidateToken("  "); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestSessionValidatorValidateRequestUsesCookie(t *testing.T) {
	validator := newTestValidator(t)
	request := httptest.NewRequest(http.MethodGet, "/contracts", http.NoBody)
	request.AddCookie(&http.Cookie{Name: testSessionCookieName, Value: signClaims(t, validClaims(), testSessionSigningSecret)})

	claims, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
}

func TestSessionValidatorValidateRequestPrefersBearer(t *testing.T) {
	validator := newTestValidator(t)
	request := httptest.NewRequest(http.MethodGet, "/contracts", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+signClaims(t, validClaims(), testSessionSigningSecret))
	request.AddCookie(&http.Cookie{Name: testSessionCookieName, Value: "garbage"})

	if _, err := validator.ValidateRequest(request); err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	malformed := httptest.NewRequest(http.MethodGet, "/contracts", http.NoBody)
	malformed.Header.Set("Authorization", "Basic abc")
	if _, err := validator.ValidateRequest(malformed); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token for non-bearer header, got %v", err)
	}

	missing := httptest.NewRequest(http.MethodGet, "/contracts", http.NoBody)
	if _, err := validator.ValidateRequest(missing); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		TokenTTL:      15 * time.Minute,
		Clock:         fixedClock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	token, expiresAt, err := issuer.Issue(Identity{UserID: "u1", Email: "carlos@exemplo.com", DisplayName: "Carlos Mendes"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(testClockNow.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	claims, err := newTestValidator(t).ValidateToken(token)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.UserID != "u1" || claims.UserDisplayName != "Carlos Mendes" || claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected claims %#v", claims)
	}

	if _, _, err := issuer.Issue(Identity{}); err == nil {
		t.Fatalf("expected error for missing participant id")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(TokenIssuerConfig{}); err == nil {
		t.Fatalf("expected constructor error for missing secret")
	}
}
