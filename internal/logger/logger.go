package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
)

var (
    mu     sync.RWMutex
    logger = zerolog.Nop()
)

// Config holds the configuration for the logger
type Config struct {
    Level  string
    Output string // "stdout", "stderr", or file path
    Pretty bool   // Enable pretty logging for development
}

// Init initializes the global logger. Calling it again replaces the previous logger.
func Init(cfg Config) error {
    // Set log level
    level, parseErr := zerolog.ParseLevel(strings.ToLower(cfg.Level))
    if parseErr != nil || cfg.Level == "" {
        level = zerolog.InfoLevel
    }
    zerolog.SetGlobalLevel(level)

    // Set time format
    zerolog.TimeFieldFormat = time.RFC3339Nano

    output, err := openOutput(cfg.Output)
    if err != nil {
        return err
    }

    var l zerolog.Logger
    if cfg.Pretty {
        l = zerolog.New(zerolog.ConsoleWriter{
            Out:        output,
            TimeFormat: "2006-01-02 15:04:05",
            NoColor:    cfg.Output != "stdout" && cfg.Output != "stderr",
        })
    } else {
        l = zerolog.New(output)
    }

    // Add timestamp and caller info
    l = l.With().
        Timestamp().
        Caller().
        Logger()

    Set(l)
    return nil
}

// Set replaces the global logger. Tests use it to capture output.
func Set(l zerolog.Logger) {
    mu.Lock()
    defer mu.Unlock()
    logger = l
    zerolog.DefaultContextLogger = &logger
}

// Get returns the logger instance
func Get() *zerolog.Logger {
    mu.RLock()
    defer mu.RUnlock()
    l := logger
    return &l
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
    return Get().With().Str("component", name).Logger()
}

func openOutput(target string) (io.Writer, error) {
    switch target {
    case "", "stdout":
        return os.Stdout, nil
    case "stderr":
        return os.Stderr, nil
    }

    // Try to create the directory if it doesn't exist
    dir := filepath.Dir(target)
    if dir != "." && dir != string(filepath.Separator) {
        if err := os.MkdirAll(dir, 0755); err != nil {
            return nil, fmt.Errorf("failed to create log directory: %w", err)
        }
    }

    file, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
    if err != nil {
        return nil, fmt.Errorf("failed to open log file: %w", err)
    }
    return file, nil
}
