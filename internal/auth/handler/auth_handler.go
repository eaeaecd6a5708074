package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dylanc316/essayhuzz/config"
	"github.com/dylanc316/essayhuzz/internal/auth/dto"
	"github.com/dylanc316/essayhuzz/internal/auth/service"
	autherror "github.com/dylanc316/essayhuzz/internal/errors"
	"github.com/dylanc316/essayhuzz/pkg/constant"
)

type AuthHandler struct {
	userService   *service.UserService
	tokenService  service.TokenGenerator
	secureCookies bool
}

func NewAuthHandler(userService *service.UserService, tokenService service.TokenGenerator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		tokenService:  tokenService,
		secureCookies: cfg.IsProduction(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"user":              dto.NewUserOutput(user),
		"needsVerification": true,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()

	result, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return h.fail(c, err)
	}

	if result.NeedsVerification {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":           false,
			"needsVerification": true,
			"email":             result.User.Email,
		})
	}

	h.setSessionCookie(c, result.Token, result.ExpiresIn)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    result.User,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearSessionCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Verify consumes the emailed token. When the request already carries
// a valid session for the user being verified, the session cookie is
// re-issued so its embedded verification flag is no longer stale.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	user, err := h.userService.VerifyEmail(c.UserContext(), token)
	if err != nil {
		return h.fail(c, err)
	}

	if cookie := c.Cookies(constant.SessionCookieName); cookie != "" {
		if claims, err := h.tokenService.VerifySessionToken(cookie); err == nil && claims.UserID == user.ID {
			if fresh, maxAge, err := h.userService.IssueSession(user); err == nil {
				h.setSessionCookie(c, fresh, maxAge)
			}
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully",
	})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var input dto.ResendVerificationInput
	if err := c.BodyParser(&input); err != nil || input.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is required",
		})
	}

	if err := h.userService.ResendVerification(c.UserContext(), input.Email); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Verification email sent",
	})
}

// Me reports the identity embedded in the session cookie. It is a
// purely local check; no database access.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	cookie := c.Cookies(constant.SessionCookieName)
	if cookie == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	claims, err := h.tokenService.VerifySessionToken(cookie)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"authenticated": true,
		"user": fiber.Map{
			"id":            claims.UserID,
			"name":          claims.Name,
			"email":         claims.Email,
			"emailVerified": claims.EmailVerified,
		},
	})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil || input.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is required",
		})
	}

	if err := h.userService.ForgotPassword(c.UserContext(), input.Email); err != nil {
		return h.fail(c, err)
	}

	// Same response whether or not the email exists.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil || input.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	if err := h.userService.ResetPassword(c.UserContext(), input.Token, input.Password); err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password updated successfully",
	})
}

// fail maps service errors onto the HTTP surface. Anything outside the
// taxonomy is a dependency failure and stays a generic 500.
func (h *AuthHandler) fail(c *fiber.Ctx, err error) error {
	var validationErr *autherror.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Msg})
	}

	switch {
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "User with this email already exists"})
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	case errors.Is(err, autherror.ErrTooManyLoginAttempts):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many failed login attempts, try again later"})
	case errors.Is(err, autherror.ErrInvalidToken), errors.Is(err, autherror.ErrExpiredToken):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid or expired token"})
	case errors.Is(err, autherror.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, autherror.ErrAlreadyVerified):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is already verified"})
	case errors.Is(err, autherror.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, try again later"})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
