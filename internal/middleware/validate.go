package middleware

import (
    "errors"

    "github.com/bilgisen/newsfeed/internal/logger"
    "github.com/go-playground/validator/v10"
    "github.com/gofiber/fiber/v2"
)

// Locals keys under which validated input is stored.
const (
    LocalsBody  = "validated"
    LocalsQuery = "queryParams"
)

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates s against its struct tags
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateBody parses the JSON body into a fresh T per request and validates it.
// The result is stored as *T under LocalsBody.
func ValidateBody[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.BodyParser(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
				"msg":   err.Error(),
			})
		}

		if err := v.Validate(req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Validation failed",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(LocalsBody, req)
		return c.Next()
	}
}

// ValidateQuery parses query parameters into a fresh T per request and
// validates it. The result is stored as *T under LocalsQuery.
func ValidateQuery[T any]() fiber.Handler {
	v := NewValidator()

	return func(c *fiber.Ctx) error {
		params := new(T)
		if err := c.QueryParser(params); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
				"msg":   err.Error(),
			})
		}

		if err := v.Validate(params); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid query parameters",
				"fields": fieldErrors(err),
			})
		}

		c.Locals(LocalsQuery, params)
		return c.Next()
	}
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

// ErrorHandler renders errors returned from handlers as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
    code := fiber.StatusInternalServerError
    message := "Internal Server Error"

    var fe *fiber.Error
    if errors.As(err, &fe) {
        code = fe.Code
        message = fe.Message
    }

    if code >= fiber.StatusInternalServerError {
        logger.Get().Error().
            Err(err).
            Str("method", c.Method()).
            Str("path", c.Path()).
            Int("status", code).
            Msg("HTTP error")
    }

    return c.Status(code).JSON(fiber.Map{
        "error": message,
    })
}
