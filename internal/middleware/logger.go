package middleware

import (
    "errors"
    "time"

    "github.com/bilgisen/newsfeed/internal/logger"
    "github.com/gofiber/fiber/v2"
    "github.com/rs/zerolog"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
    // Skip defines a function to skip middleware.
    // Optional. Default: nil
    Next func(c *fiber.Ctx) bool

    // Logger is the zerolog logger instance to use.
    // If not provided, the "http" component logger is used.
    Logger *zerolog.Logger

    // Fields to include in the logs
    Fields []string
}

// DefaultLoggerConfig is the default config
var DefaultLoggerConfig = LoggerConfig{
    Next:   nil,
    Fields: []string{"latency", "status", "method", "path", "ip", "user_agent"},
}

// NewLogger creates a new request logging middleware
func NewLogger(config ...LoggerConfig) fiber.Handler {
    cfg := DefaultLoggerConfig

    if len(config) > 0 {
        cfg = config[0]
        if len(cfg.Fields) == 0 {
            cfg.Fields = DefaultLoggerConfig.Fields
        }
    }

    if cfg.Logger == nil {
        log := logger.Component("http")
        cfg.Logger = &log
    }

    fields := make(map[string]bool, len(cfg.Fields))
    for _, f := range cfg.Fields {
        fields[f] = true
    }

    return func(c *fiber.Ctx) error {
        if cfg.Next != nil && cfg.Next(c) {
            return c.Next()
        }

        start := time.Now()
        err := c.Next()
        latency := time.Since(start)

        // Errors are rendered by the app's ErrorHandler after this returns, so
        // take the status from the error when there is one.
        status := c.Response().StatusCode()
        var fe *fiber.Error
        if err != nil {
            status = fiber.StatusInternalServerError
            if errors.As(err, &fe) {
                status = fe.Code
            }
        }

        event := cfg.Logger.Info()
        if status >= fiber.StatusInternalServerError {
            event = cfg.Logger.Error()
        } else if status >= fiber.StatusBadRequest {
            event = cfg.Logger.Warn()
        }

        if fields["method"] {
            event = event.Str("method", c.Method())
        }
        if fields["path"] {
            event = event.Str("path", c.Path())
        }
        if fields["status"] {
            event = event.Int("status", status)
        }
        if fields["ip"] {
            event = event.Str("ip", c.IP())
        }
        if fields["user_agent"] {
            event = event.Str("user_agent", c.Get("User-Agent"))
        }
        if fields["latency"] {
            event = event.Dur("latency", latency)
        }
        if err != nil {
            event = event.Err(err)
        }

        event.Msg("request")
        return err
    }
}

// RequestLogger is a simpler version of the logger middleware
func RequestLogger() fiber.Handler {
    return NewLogger(LoggerConfig{
        Fields: []string{"latency", "status", "method", "path", "ip"},
    })
}
