package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UsersHandler exposes user endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Create handles PUT /api/users/:id (internal only).
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var cmd domain.CreateUser
	if err := c.BodyParser(&cmd); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	user, err := h.users.Create(c.UserContext(), userID, cmd)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, user)
}

// Update handles POST /api/users/:id (internal only).
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var update domain.UserUpdate
	if err := c.BodyParser(&update); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if update.AddIdentity == nil {
		return apperrors.NewValidationError("user update carries no command")
	}

	user, err := h.users.AddIdentity(c.UserContext(), userID, *update.AddIdentity)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, user)
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, user)
}

// Get handles GET /api/users/:id (internal only).
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, user)
}

// Identity handles GET /api/user-identities/:key (internal only). The key is
// the provider-qualified identity, e.g. "telegram-123456".
func (h *UsersHandler) Identity(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return apperrors.NewValidationError("missing identity key")
	}
	userID, err := h.users.LookupIdentity(c.UserContext(), key)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, userID)
}

// Profile handles GET /api/users/:id/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	profile, err := h.users.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile)
}

// Groups handles GET /api/users/:id/groups.
func (h *UsersHandler) Groups(c *fiber.Ctx) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	groups, err := h.users.Groups(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, groups)
}
