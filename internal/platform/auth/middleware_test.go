package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims(subject string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		GivenName:  "Dana",
		FamilyName: "Whitfield",
		Roles:      []string{RoleSupervisor},
	}
}

func runJWT(t *testing.T, header string, next echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(next)(c)
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	assertUnauthorized(t, runJWT(t, "", okHandler))
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertUnauthorized(t, runJWT(t, tt.header, okHandler))
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, validClaims("42"), testSigningKey)

	var got Principal
	err := runJWT(t, "Bearer "+tokenStr, func(c echo.Context) error {
		p, ok := PrincipalFromContext(c.Request().Context())
		if !ok {
			t.Error("expected principal on context")
		}
		got = p
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StaffID != 42 {
		t.Errorf("expected staff id 42, got %d", got.StaffID)
	}
	if got.FirstName != "Dana" || got.LastName != "Whitfield" {
		t.Errorf("unexpected name %q %q", got.FirstName, got.LastName)
	}
	if len(got.Roles) != 1 || got.Roles[0] != RoleSupervisor {
		t.Errorf("unexpected roles %v", got.Roles)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	tokenStr := createTestToken(t, validClaims("42"), []byte("another-key"))
	assertUnauthorized(t, runJWT(t, "Bearer "+tokenStr, okHandler))
}

func TestJWTMiddleware_Expired(t *testing.T) {
	claims := validClaims("42")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	tokenStr := createTestToken(t, claims, testSigningKey)
	assertUnauthorized(t, runJWT(t, "Bearer "+tokenStr, okHandler))
}

func TestJWTMiddleware_NonNumericSubject(t *testing.T) {
	tokenStr := createTestToken(t, validClaims("user-abc"), testSigningKey)
	assertUnauthorized(t, runJWT(t, "Bearer "+tokenStr, okHandler))
}

func TestDevAuthMiddleware_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := DevAuthMiddleware()(func(c echo.Context) error {
		p, ok := PrincipalFromContext(c.Request().Context())
		if !ok {
			t.Fatal("expected principal")
		}
		if p.StaffID != DevStaffID {
			t.Errorf("expected dev staff id, got %d", p.StaffID)
		}
		if !HasRole(p.Roles, RoleSupervisor) {
			t.Error("expected admin to satisfy supervisor")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDevAuthMiddleware_Overrides(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Dev-Staff-ID", "7")
	req.Header.Set("X-Dev-Roles", "staff")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := DevAuthMiddleware()(func(c echo.Context) error {
		p, _ := PrincipalFromContext(c.Request().Context())
		if p.StaffID != 7 {
			t.Errorf("expected staff id 7, got %d", p.StaffID)
		}
		if HasRole(p.Roles, RoleSupervisor) {
			t.Error("staff should not satisfy supervisor")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPrincipalFromContext_Missing(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Error("expected no principal on empty context")
	}
	if roles := RolesFromContext(context.Background()); roles != nil {
		t.Errorf("expected nil roles, got %v", roles)
	}
}
