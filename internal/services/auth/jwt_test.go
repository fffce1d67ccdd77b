package auth_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	authsvc "github.com/gadsdencode/vybechex-sub000/internal/services/auth"
)

// signAccessToken mints a token the way the auth collaborator does.
func signAccessToken(t *testing.T, secret string, userID int64, sid string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"sid":  sid,
		"role": "user",
		"iat":  time.Now().Unix(),
	}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyReturnsClaims(t *testing.T) {
	verifier := authsvc.NewTokenVerifier("test-secret", 0)
	expiresAt := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	claims, err := verifier.Verify(signAccessToken(t, "test-secret", 31, "sid-31", expiresAt))
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != 31 || claims.SID != "sid-31" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("unexpected expiry: got %s want %s", claims.ExpiresAt, expiresAt)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	verifier := authsvc.NewTokenVerifier("test-secret", 0)
	future := time.Now().Add(time.Hour)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "31",
		"sid": "sid-31",
		"exp": future.Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned token: %v", err)
	}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"other secret": signAccessToken(t, "other-secret", 31, "sid-31", future),
		"expired":      signAccessToken(t, "test-secret", 31, "sid-31", time.Now().Add(-time.Minute)),
		"no expiry":    signAccessToken(t, "test-secret", 31, "sid-31", time.Time{}),
		"no session":   signAccessToken(t, "test-secret", 31, "", future),
		"bad subject":  signAccessToken(t, "test-secret", 0, "sid-31", future),
		"alg none":     none,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := verifier.Verify(raw); !errors.Is(err, authsvc.ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestVerifyAllowsClockSkewWithinLeeway(t *testing.T) {
	raw := signAccessToken(t, "test-secret", 31, "sid-31", time.Now().Add(-10*time.Second))

	if _, err := authsvc.NewTokenVerifier("test-secret", time.Minute).Verify(raw); err != nil {
		t.Fatalf("token expired within leeway should verify: %v", err)
	}
	if _, err := authsvc.NewTokenVerifier("test-secret", 0).Verify(raw); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("token expired without leeway should be unauthorized, got %v", err)
	}
}

func TestVerifyWithoutSecretRejectsEverything(t *testing.T) {
	raw := signAccessToken(t, "test-secret", 31, "sid-31", time.Now().Add(time.Hour))

	if _, err := authsvc.NewTokenVerifier("", 0).Verify(raw); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected unauthorized with empty secret, got %v", err)
	}
}
