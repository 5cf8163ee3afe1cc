package middleware

import (
    "crypto/subtle"
    "errors"
    "strings"

    "github.com/bilgisen/newsfeed/internal/logger"
    "github.com/gofiber/fiber/v2"
)

var (
    errMissingKey = errors.New("missing API key")
    errInvalidKey = errors.New("invalid API key")
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator is a function to validate the API key.
	// Required.
	Validator func(key string) (bool, error)

	// ErrorHandler defines a function which is executed for an invalid API key.
	// Optional. Default: 401 for a missing key, 403 for a wrong one
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the API key in the context.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header is the header key where to get the API key from.
	// Optional. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		if errors.Is(err, errMissingKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin access required",
		})
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates a new API key middleware handler
func NewAuth(config ...AuthConfig) fiber.Handler {
	// Set default config
	cfg := ConfigDefault

	// Override config if provided
	if len(config) > 0 {
		cfg = config[0]

		// Set default values
		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}
	if cfg.Validator == nil {
		panic("middleware: auth validator is required")
	}

	return func(c *fiber.Ctx) error {
		// Don't execute middleware if Next returns true
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		authHeader := c.Get(cfg.Header)
		if authHeader == "" {
			return cfg.ErrorHandler(c, errMissingKey)
		}

		// For "Bearer " prefixed tokens
		token := strings.TrimPrefix(authHeader, "Bearer ")

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errInvalidKey)
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// AdminOnly guards mutating routes with the admin key. An empty key disables
// the check.
func AdminOnly(adminKey string) fiber.Handler {
	if adminKey == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return NewAuth(AuthConfig{
		Validator: func(key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
	})
}
