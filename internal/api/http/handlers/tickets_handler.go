package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketsHandler exposes ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles PUT /api/tickets/:id.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var cmd domain.CreateTicket
	if err := c.BodyParser(&cmd); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	ticket, err := h.tickets.Create(c.UserContext(), ticketID, principal.UserID, cmd)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, ticket)
}

// Update handles POST /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var update domain.TicketUpdate
	if err := c.BodyParser(&update); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	ticket, err := h.tickets.Update(c.UserContext(), ticketID, principal.UserID, update)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, ticket)
}

// Get handles GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticketID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, ticket)
}

// Owned handles GET /api/tickets/owned.
func (h *TicketsHandler) Owned(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.Owned(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, tickets)
}

// Assigned handles GET /api/tickets/assigned.
func (h *TicketsHandler) Assigned(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.Assigned(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, tickets)
}
