package middleware

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// queryLocalsKey is where ValidateQuery stores the parsed query struct
const queryLocalsKey = "queryParams"

// MsgMalformedQuery is the detail returned when the query string cannot be parsed.
const MsgMalformedQuery = "Malformed query string."

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates the struct against its validate tags
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateQuery parses the query string into a fresh T for every request and
// validates it. A query string that cannot be parsed is a 400; validation
// failures are passed to onInvalid, which decides the response.
func ValidateQuery[T any](onInvalid func(c *fiber.Ctx, err error) error) fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		params := new(T)

		if err := c.QueryParser(params); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, MsgMalformedQuery)
		}

		if err := v.Validate(params); err != nil {
			return onInvalid(c, err)
		}

		c.Locals(queryLocalsKey, params)

		return c.Next()
	}
}

// Query returns the value stored by ValidateQuery, or nil.
func Query[T any](c *fiber.Ctx) *T {
	params, _ := c.Locals(queryLocalsKey).(*T)
	return params
}
