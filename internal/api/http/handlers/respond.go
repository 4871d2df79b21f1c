package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/id"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func success(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(dto.Success(payload))
}

func pathID(c *fiber.Ctx, name string) (id.ID, error) {
	// c.Params returns a zero-copy string backed by fiber's request buffer;
	// the parsed ID outlives the request, so it must own its bytes.
	parsed, err := id.Parse(utils.CopyString(c.Params(name)))
	if err != nil {
		return "", apperrors.NewValidationError("malformed id in path")
	}
	return parsed, nil
}
