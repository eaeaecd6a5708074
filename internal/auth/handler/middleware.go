package handler

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dylanc316/essayhuzz/internal/auth/service"
	"github.com/dylanc316/essayhuzz/pkg/constant"
)

// Default path lists for the session middleware. Protected paths
// require a session; auth paths bounce authenticated users back to the
// dashboard.
var (
	DefaultProtectedPaths = []string{
		"/dashboard",
		"/analyze",
		"/profile",
		"/api/documents",
		"/api/analyze",
	}
	DefaultAuthPaths = []string{
		"/login",
		"/signup",
		"/verifyemail",
		"/reset-password",
	}
)

// SessionMiddleware gates page routes on the session cookie. It only
// checks the token signature and expiry locally; it never touches the
// database, so it is cheap enough to run on every matched request.
type SessionMiddleware struct {
	tokens         service.TokenGenerator
	protectedPaths []string
	authPaths      []string
	secureCookies  bool
}

func NewSessionMiddleware(tokens service.TokenGenerator, secureCookies bool) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:         tokens,
		protectedPaths: DefaultProtectedPaths,
		authPaths:      DefaultAuthPaths,
		secureCookies:  secureCookies,
	}
}

func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	path := c.Path()
	isProtected := matchesAny(path, m.protectedPaths)
	isAuthPath := matchesAny(path, m.authPaths)

	if !isProtected && !isAuthPath {
		return c.Next()
	}

	var claims *service.SessionClaims
	if cookie := c.Cookies(constant.SessionCookieName); cookie != "" {
		parsed, err := m.tokens.VerifySessionToken(cookie)
		if err != nil {
			// A bad token on a protected path is treated as anonymous
			// and the cookie is dropped.
			m.clearCookie(c)
		} else {
			claims = parsed
		}
	}

	if isProtected && claims == nil {
		return c.Redirect("/login?callbackUrl="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}

	if isAuthPath && claims != nil {
		return c.Redirect("/dashboard", fiber.StatusFound)
	}

	if claims != nil {
		c.Locals("user", claims)
	}

	return c.Next()
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (m *SessionMiddleware) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
