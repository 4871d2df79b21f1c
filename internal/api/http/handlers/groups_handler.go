package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// GroupsHandler exposes group endpoints.
type GroupsHandler struct {
	groups *service.GroupService
}

// NewGroupsHandler constructs handler.
func NewGroupsHandler(groups *service.GroupService) *GroupsHandler {
	return &GroupsHandler{groups: groups}
}

// Create handles PUT /api/groups/:id.
func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	groupID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var cmd domain.CreateGroup
	if err := c.BodyParser(&cmd); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	group, err := h.groups.Create(c.UserContext(), groupID, principal.UserID, cmd)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, group)
}

// Update handles POST /api/groups/:id.
func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	groupID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var update domain.GroupUpdate
	if err := c.BodyParser(&update); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	group, err := h.groups.Update(c.UserContext(), groupID, principal.UserID, update)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, group)
}

// Get handles GET /api/groups/:id.
func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	group, err := h.groups.Get(c.UserContext(), groupID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, group)
}

// Tickets handles GET /api/groups/:id/tickets.
func (h *GroupsHandler) Tickets(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	groupID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	tickets, err := h.groups.Tickets(c.UserContext(), groupID, principal.UserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, tickets)
}
