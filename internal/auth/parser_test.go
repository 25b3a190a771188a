package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"maintenance-service/internal/model"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestParsePrincipal(t *testing.T) {
	parser := NewParser("secret")
	token := sign(t, "secret", jwt.MapClaims{
		"sub":  "7",
		"role": "technician",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := parser.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	principal, err := claims.Principal()
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if principal.UserID != 7 || principal.Role != model.RoleTechnician {
		t.Errorf("principal = %+v", principal)
	}
}

func TestParseRejects(t *testing.T) {
	parser := NewParser("secret")
	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.MapClaims{"sub": "1", "role": "admin"}),
		"expired":      sign(t, "secret", jwt.MapClaims{"sub": "1", "role": "admin", "exp": time.Now().Add(-time.Minute).Unix()}),
		"unknown role": sign(t, "secret", jwt.MapClaims{"sub": "1", "role": "root"}),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		if _, err := parser.Parse(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPrincipalRejectsBadSubject(t *testing.T) {
	claims := &Claims{Role: model.RoleAdmin}
	claims.Subject = "abc"
	if _, err := claims.Principal(); err == nil {
		t.Error("non-numeric subject must be rejected")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("password should match")
	}
	if CheckPassword(hash, "nope") {
		t.Error("wrong password matched")
	}
}
