package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as {"detail": "..."}. Only *fiber.Error
// messages reach the client; anything else becomes a bare 500. Logging is
// left to the request logger, which records the rendered status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	detail := http.StatusText(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		detail = fe.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"detail": detail,
	})
}
