package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// LoginHandler exposes the login endpoints and sets session cookies.
type LoginHandler struct {
	logins  *service.LoginService
	cookies *auth.CookieManager
}

// NewLoginHandler constructs handler.
func NewLoginHandler(logins *service.LoginService, cookies *auth.CookieManager) *LoginHandler {
	return &LoginHandler{logins: logins, cookies: cookies}
}

// Telegram handles POST /api/login/telegram.
func (h *LoginHandler) Telegram(c *fiber.Ctx) error {
	var data auth.TelegramLoginData
	if err := c.BodyParser(&data); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	profile, err := h.logins.TelegramLogin(c.UserContext(), data)
	if err != nil {
		return err
	}
	return h.establishSession(c, profile)
}

// Fake handles POST /api/fake-login/:id (internal only).
func (h *LoginHandler) Fake(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	profile, err := h.logins.FakeLogin(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return h.establishSession(c, profile)
}

func (h *LoginHandler) establishSession(c *fiber.Ctx, profile domain.UserProfile) error {
	cookie, err := h.cookies.IssueCookie(profile)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Cookie(cookie)
	return success(c, http.StatusOK, nil)
}
