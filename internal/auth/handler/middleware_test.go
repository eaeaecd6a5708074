package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylanc316/essayhuzz/internal/auth/domain"
	"github.com/dylanc316/essayhuzz/internal/auth/handler"
	"github.com/dylanc316/essayhuzz/internal/auth/service"
	"github.com/dylanc316/essayhuzz/pkg/constant"
)

func newMiddlewareApp(t *testing.T) (*fiber.App, *service.TokenService) {
	t.Helper()

	tokens := service.NewTokenService("test-secret", 168*time.Hour)
	session := handler.NewSessionMiddleware(tokens, false)

	app := fiber.New()
	app.Use(session.Handle)
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/dashboard", ok)
	app.Get("/dashboard/documents", ok)
	app.Get("/login", ok)
	app.Get("/about", ok)

	return app, tokens
}

func validSession(t *testing.T, tokens *service.TokenService) string {
	t.Helper()
	token, err := tokens.IssueSessionToken(&domain.User{
		ID: "user-123", Email: "alice@example.com", Name: "Alice", EmailVerified: true,
	})
	require.NoError(t, err)
	return token
}

func TestSessionMiddleware_AnonymousOnProtectedPath(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/dashboard/documents", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "/login?callbackUrl=")
	assert.Contains(t, loc, url.QueryEscape("/dashboard/documents"))
}

func TestSessionMiddleware_AuthenticatedOnProtectedPath(t *testing.T) {
	app, tokens := newMiddlewareApp(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: validSession(t, tokens)})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionMiddleware_AuthenticatedOnAuthPath(t *testing.T) {
	app, tokens := newMiddlewareApp(t)

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: validSession(t, tokens)})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestSessionMiddleware_AnonymousOnAuthPath(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

// A bad token on a protected path behaves like no token at all, and
// the cookie gets cleared.
func TestSessionMiddleware_InvalidTokenOnProtectedPath(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: "tampered-token"})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login?callbackUrl=")

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == constant.SessionCookieName && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected the session cookie to be cleared")
}

func TestSessionMiddleware_UnmatchedPathPassesThrough(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/about", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
