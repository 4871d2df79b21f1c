package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/id"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID id.ID
	Name   string
}

// Middleware validates session cookies and loads principals.
type Middleware struct {
	cookies *CookieManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(cookies *CookieManager) *Middleware {
	return &Middleware{cookies: cookies}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(CookieName)
	if token == "" {
		return apperrors.NewUnauthorized("missing session cookie")
	}

	claims, err := m.cookies.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid session")
	}

	c.Locals(principalKey, &Principal{UserID: claims.UserID, Name: claims.Name})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// MustPrincipal returns the caller or an unauthorized error for routes that
// are registered behind the middleware but got reached without it.
func MustPrincipal(c *fiber.Ctx) (*Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
