package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/bilgisen/newsfeed/internal/api"
    "github.com/bilgisen/newsfeed/internal/app"
    "github.com/bilgisen/newsfeed/internal/config"
    "github.com/bilgisen/newsfeed/internal/logger"
    "github.com/bilgisen/newsfeed/internal/middleware"
    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
    // Load and validate configuration
    cfg := config.Load()

    output := cfg.LogFile
    if output == "" {
        output = "stdout"
    }
    if err := logger.Init(logger.Config{
        Level:  cfg.LogLevel,
        Output: output,
        Pretty: cfg.Env == "development",
    }); err != nil {
        panic(err)
    }

    log := logger.Get()
    log.Info().Msg("Starting headless newsfeed...")

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    application, err := app.New(ctx, cfg)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize application")
    }
    defer func() {
        log.Info().Msg("Closing article store...")
        if err := application.Close(); err != nil {
            log.Error().Err(err).Msg("Error closing article store")
        }
    }()

    runErr := make(chan error, 1)
    go func() {
        runErr <- application.Run(ctx)
    }()

    // Create Fiber app with custom config
    server := fiber.New(fiber.Config{
        ReadTimeout:  cfg.HTTPTimeout,
        WriteTimeout: cfg.HTTPTimeout,
        IdleTimeout:  120 * time.Second,
        ErrorHandler: middleware.ErrorHandler,
    })

    // Global middleware
    server.Use(recover.New())
    server.Use(middleware.RequestLogger())

    api.SetupRoutes(server, application.Controller, cfg)

    // Start server in a goroutine
    go func() {
        log.Info().Str("port", cfg.Port).Msg("Starting server")
        if err := server.Listen(":" + cfg.Port); err != nil {
            log.Error().Err(err).Msg("Server error")
            cancel()
        }
    }()

    // Wait for interrupt signal to gracefully shut down the server
    quit := make(chan os.Signal, 1)
    signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
    select {
    case <-quit:
    case <-ctx.Done():
    }

    log.Info().Msg("Shutting down server...")

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
    defer shutdownCancel()

    if err := server.ShutdownWithContext(shutdownCtx); err != nil {
        log.Error().Err(err).Msg("Server forced to shutdown")
    }

    cancel()
    if err := <-runErr; err != nil {
        log.Error().Err(err).Msg("Controller stopped with error")
    }

    log.Info().Msg("Server exited properly")
}
