package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	handler := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
	}
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	return rec
}

func TestJWTAuthRejectsMissingAndGarbageTokens(t *testing.T) {
	if rec := runProtected(t, "", JWTAuth(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d, want 401", rec.Code)
	}
	if rec := runProtected(t, "Bearer not-a-jwt", JWTAuth(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, "OWNER", 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if rec := runProtected(t, "Bearer "+tok.Token, JWTAuth(testSecret)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthAcceptsValidTokenAndInjectsClaims(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "OWNER", 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := runProtected(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestRequireRoleEnforcesAllowedSet(t *testing.T) {
	owner, err := utils.NewAccessToken(testSecret, 1, "OWNER", 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	staff, err := utils.NewAccessToken(testSecret, 2, "STAFF", 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if rec := runProtected(t, "Bearer "+owner.Token, JWTAuth(testSecret), RequireRole("OWNER", "STAFF")); rec.Code != http.StatusOK {
		t.Fatalf("owner on owner+staff route: status = %d, want 200", rec.Code)
	}
	if rec := runProtected(t, "Bearer "+staff.Token, JWTAuth(testSecret), RequireRole("OWNER")); rec.Code != http.StatusForbidden {
		t.Fatalf("staff on owner-only route: status = %d, want 403", rec.Code)
	}
}

func TestRequireRoleWithoutRoleInContext(t *testing.T) {
	if rec := runProtected(t, "", RequireRole("OWNER")); rec.Code != http.StatusForbidden {
		t.Fatalf("no role in context: status = %d, want 403", rec.Code)
	}
}
