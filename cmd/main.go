package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"

    "github.com/bilgisen/newsfeed/internal/app"
    "github.com/bilgisen/newsfeed/internal/config"
    "github.com/bilgisen/newsfeed/internal/logger"
    "github.com/bilgisen/newsfeed/internal/tui"
    tea "github.com/charmbracelet/bubbletea"
)

func main() {
    // Load and validate configuration
    cfg := config.Load()

    // The terminal belongs to the UI, so logs go to a file
    logFile := cfg.LogFile
    if logFile == "" {
        logFile = filepath.Join(cfg.PrefsPath, "newsfeed.log")
    }
    if err := logger.Init(logger.Config{
        Level:  cfg.LogLevel,
        Output: logFile,
    }); err != nil {
        fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
        os.Exit(1)
    }

    log := logger.Get()
    log.Info().Msg("Starting newsfeed...")

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    application, err := app.New(ctx, cfg)
    if err != nil {
        log.Error().Err(err).Msg("Failed to initialize application")
        fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
        os.Exit(1)
    }
    defer func() {
        if err := application.Close(); err != nil {
            log.Error().Err(err).Msg("Error closing article store")
        }
    }()

    runErr := make(chan error, 1)
    go func() {
        runErr <- application.Run(ctx)
    }()

    program := tea.NewProgram(tui.NewModel(application.Controller), tea.WithAltScreen())

    // Handle graceful shutdown
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
    go func() {
        <-sigChan
        program.Quit()
    }()

    if _, err := program.Run(); err != nil {
        log.Error().Err(err).Msg("Error running program")
        fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
    }

    cancel()
    if err := <-runErr; err != nil {
        log.Error().Err(err).Msg("Controller stopped with error")
    }
    log.Info().Msg("Exited properly")
}
