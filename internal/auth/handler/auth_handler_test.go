package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dylanc316/essayhuzz/config"
	"github.com/dylanc316/essayhuzz/internal/auth/domain"
	"github.com/dylanc316/essayhuzz/internal/auth/dto"
	"github.com/dylanc316/essayhuzz/internal/auth/handler"
	"github.com/dylanc316/essayhuzz/internal/auth/service"
	"github.com/dylanc316/essayhuzz/internal/logging"
	"github.com/dylanc316/essayhuzz/internal/mocks"
	"github.com/dylanc316/essayhuzz/pkg/constant"
)

type testApp struct {
	app    *fiber.App
	repo   *mocks.MockUserRepository
	mailer *mocks.MockMailer
	tokens *service.TokenService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	cfg := &config.Config{
		Env:                  "test",
		PasswordMinLength:    8,
		MaxLoginAttempts:     5,
		LoginAttemptWindow:   15 * time.Minute,
		SessionTTL:           168 * time.Hour,
		VerificationTokenTTL: 24 * time.Hour,
		ResetTokenTTL:        time.Hour,
	}

	mockRepo := mocks.NewMockUserRepository(ctrl)
	mockMailer := mocks.NewMockMailer(ctrl)
	tokenService := service.NewTokenService("test-secret", cfg.SessionTTL)
	userService := service.NewUserService(mockRepo, tokenService, mockMailer, cfg, logging.NewNopLogger())
	authHandler := handler.NewAuthHandler(userService, tokenService, cfg)
	session := handler.NewSessionMiddleware(tokenService, false)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, session)

	return &testApp{app: app, repo: mockRepo, mailer: mockMailer, tokens: tokenService}
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == constant.SessionCookieName {
			return c
		}
	}
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").Return(nil, nil)
		ta.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		ta.repo.EXPECT().ReplaceVerificationToken(gomock.Any(), gomock.Any()).Return(nil)
		ta.mailer.EXPECT().SendVerificationEmail(gomock.Any(), "alice@example.com", "Alice Smith", gomock.Any()).Return(nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/register", dto.RegisterInput{
			FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Password: "Password1",
		}))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["needsVerification"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, false, user["emailVerified"])
		assert.NotContains(t, user, "passwordHash")
	})

	t.Run("bad request", func(t *testing.T) {
		ta := newTestApp(t)

		req := httptest.NewRequest("POST", "/auth/register", bytes.NewReader([]byte("")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").
			Return(&domain.User{ID: "existing", Email: "alice@example.com"}, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/register", dto.RegisterInput{
			FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Password: "Password1",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("short password", func(t *testing.T) {
		ta := newTestApp(t)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/register", dto.RegisterInput{
			FirstName: "Alice", LastName: "Smith", Email: "alice@example.com", Password: "short",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	verifiedUser := func(t *testing.T) *domain.User {
		return &domain.User{
			ID:            "user-123",
			Email:         "alice@example.com",
			Name:          "Alice Smith",
			PasswordHash:  hashPassword(t, "Password1"),
			EmailVerified: true,
		}
	}

	t.Run("success sets session cookie", func(t *testing.T) {
		ta := newTestApp(t)
		user := verifiedUser(t)

		ta.repo.EXPECT().CountRecentFailures(gomock.Any(), user.Email, gomock.Any()).Return(0, nil)
		ta.repo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		ta.repo.EXPECT().RecordLoginAttempt(gomock.Any(), user.Email, gomock.Any(), true).Return(nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/login", dto.LoginInput{
			Email: "alice@example.com", Password: "Password1",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		cookie := sessionCookie(resp)
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, int((168 * time.Hour).Seconds()), cookie.MaxAge)

		claims, err := ta.tokens.VerifySessionToken(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.True(t, claims.EmailVerified)
	})

	t.Run("wrong password and unknown user are identical", func(t *testing.T) {
		ta := newTestApp(t)
		user := verifiedUser(t)

		ta.repo.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).Times(2)
		ta.repo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		ta.repo.EXPECT().GetByEmail(gomock.Any(), "nonexistent@example.com").Return(nil, nil)
		ta.repo.EXPECT().RecordLoginAttempt(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(nil).Times(2)

		respWrong, err := ta.app.Test(jsonRequest("POST", "/auth/login", dto.LoginInput{
			Email: "alice@example.com", Password: "wrongpass",
		}))
		require.NoError(t, err)
		respMissing, err := ta.app.Test(jsonRequest("POST", "/auth/login", dto.LoginInput{
			Email: "nonexistent@example.com", Password: "anything",
		}))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, respWrong.StatusCode)
		assert.Equal(t, fiber.StatusUnauthorized, respMissing.StatusCode)
		assert.Equal(t, decodeBody(t, respWrong)["error"], decodeBody(t, respMissing)["error"])
		assert.Nil(t, sessionCookie(respWrong))
	})

	t.Run("unverified user gets needsVerification, no cookie", func(t *testing.T) {
		ta := newTestApp(t)
		user := verifiedUser(t)
		user.EmailVerified = false

		ta.repo.EXPECT().CountRecentFailures(gomock.Any(), user.Email, gomock.Any()).Return(0, nil)
		ta.repo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		ta.repo.EXPECT().RecordLoginAttempt(gomock.Any(), user.Email, gomock.Any(), true).Return(nil)
		ta.repo.EXPECT().ReplaceVerificationToken(gomock.Any(), gomock.Any()).Return(nil)
		ta.mailer.EXPECT().SendVerificationEmail(gomock.Any(), user.Email, user.Name, gomock.Any()).Return(nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/login", dto.LoginInput{
			Email: "alice@example.com", Password: "Password1",
		}))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["needsVerification"])
		assert.Equal(t, "alice@example.com", body["email"])
		assert.Nil(t, sessionCookie(resp))
	})

	t.Run("lockout", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().CountRecentFailures(gomock.Any(), "alice@example.com", gomock.Any()).Return(5, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/login", dto.LoginInput{
			Email: "alice@example.com", Password: "Password1",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	})
}

func TestLogout(t *testing.T) {
	ta := newTestApp(t)

	resp, err := ta.app.Test(httptest.NewRequest("POST", "/auth/logout", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestVerify(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		ta := newTestApp(t)

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/auth/verify", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().ConsumeVerificationToken(gomock.Any(), "bogus", constant.PurposeEmailVerification).Return(nil, nil)

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/auth/verify?token=bogus", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)

		vt := &domain.VerificationToken{
			ID: "token-id", UserID: "user-123", Token: "good-token",
			Purpose: constant.PurposeEmailVerification, ExpiresAt: time.Now().Add(time.Hour),
		}
		verified := &domain.User{ID: "user-123", Email: "alice@example.com", Name: "Alice", EmailVerified: true}

		ta.repo.EXPECT().ConsumeVerificationToken(gomock.Any(), "good-token", constant.PurposeEmailVerification).Return(vt, nil)
		ta.repo.EXPECT().MarkVerified(gomock.Any(), "user-123").Return(nil)
		ta.repo.EXPECT().GetByID(gomock.Any(), "user-123").Return(verified, nil)

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/auth/verify?token=good-token", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	// Verifying while logged in refreshes the cookie so the embedded
	// flag is no longer stale.
	t.Run("re-issues session for the verified user", func(t *testing.T) {
		ta := newTestApp(t)

		unverified := &domain.User{ID: "user-123", Email: "alice@example.com", Name: "Alice", EmailVerified: false}
		stale, err := ta.tokens.IssueSessionToken(unverified)
		require.NoError(t, err)

		vt := &domain.VerificationToken{
			ID: "token-id", UserID: "user-123", Token: "good-token",
			Purpose: constant.PurposeEmailVerification, ExpiresAt: time.Now().Add(time.Hour),
		}
		verified := &domain.User{ID: "user-123", Email: "alice@example.com", Name: "Alice", EmailVerified: true}

		ta.repo.EXPECT().ConsumeVerificationToken(gomock.Any(), "good-token", constant.PurposeEmailVerification).Return(vt, nil)
		ta.repo.EXPECT().MarkVerified(gomock.Any(), "user-123").Return(nil)
		ta.repo.EXPECT().GetByID(gomock.Any(), "user-123").Return(verified, nil)

		req := httptest.NewRequest("GET", "/auth/verify?token=good-token", nil)
		req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: stale})

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		cookie := sessionCookie(resp)
		require.NotNil(t, cookie)
		claims, err := ta.tokens.VerifySessionToken(cookie.Value)
		require.NoError(t, err)
		assert.True(t, claims.EmailVerified)
	})
}

func TestResendVerification(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/resend-verification", dto.ResendVerificationInput{Email: "ghost@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("already verified", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().GetByEmail(gomock.Any(), "alice@example.com").
			Return(&domain.User{ID: "user-123", Email: "alice@example.com", EmailVerified: true}, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/resend-verification", dto.ResendVerificationInput{Email: "alice@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestMe(t *testing.T) {
	t.Run("no cookie", func(t *testing.T) {
		ta := newTestApp(t)

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/auth/me", nil))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, false, decodeBody(t, resp)["authenticated"])
	})

	t.Run("garbage cookie", func(t *testing.T) {
		ta := newTestApp(t)

		req := httptest.NewRequest("GET", "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: "garbage"})

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid session", func(t *testing.T) {
		ta := newTestApp(t)

		user := &domain.User{ID: "user-123", Email: "alice@example.com", Name: "Alice Smith", EmailVerified: true}
		token, err := ta.tokens.IssueSessionToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: constant.SessionCookieName, Value: token})

		resp, err := ta.app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, true, body["authenticated"])
		me := body["user"].(map[string]any)
		assert.Equal(t, "alice@example.com", me["email"])
		assert.Equal(t, true, me["emailVerified"])
	})
}

func TestForgotPassword(t *testing.T) {
	t.Run("unknown email still returns 200", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/forgot-password", dto.ForgotPasswordInput{Email: "ghost@example.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("known email gets a reset mail", func(t *testing.T) {
		ta := newTestApp(t)

		user := &domain.User{ID: "user-123", Email: "alice@example.com", Name: "Alice"}
		ta.repo.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		ta.repo.EXPECT().ReplaceVerificationToken(gomock.Any(), gomock.Any()).Return(nil)
		ta.mailer.EXPECT().SendPasswordResetEmail(gomock.Any(), user.Email, user.Name, gomock.Any()).Return(nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/forgot-password", dto.ForgotPasswordInput{Email: user.Email}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestResetPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)

		vt := &domain.VerificationToken{
			ID: "token-id", UserID: "user-123", Token: "reset-token",
			Purpose: constant.PurposePasswordReset, ExpiresAt: time.Now().Add(30 * time.Minute),
		}

		ta.repo.EXPECT().ConsumeVerificationToken(gomock.Any(), "reset-token", constant.PurposePasswordReset).Return(vt, nil)
		ta.repo.EXPECT().UpdatePassword(gomock.Any(), "user-123", gomock.Any()).Return(nil)
		ta.repo.EXPECT().MarkVerified(gomock.Any(), "user-123").Return(nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/reset-password", dto.ResetPasswordInput{
			Token: "reset-token", Password: "NewPassword1",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		ta := newTestApp(t)

		ta.repo.EXPECT().ConsumeVerificationToken(gomock.Any(), "bogus", constant.PurposePasswordReset).Return(nil, nil)

		resp, err := ta.app.Test(jsonRequest("POST", "/auth/reset-password", dto.ResetPasswordInput{
			Token: "bogus", Password: "NewPassword1",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
