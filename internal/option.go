package internal

import (
	"log/slog"
	"time"

	"github.com/starford/dailynote/internal/runner"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	runner runner.Runner
	clock  func() time.Time
	logger *slog.Logger
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRunner replaces the process runner used for git and gh.
func WithRunner(r runner.Runner) Option {
	return func(a *application) {
		a.runner = r
	}
}

// WithClock replaces time.Now for archive identifiers and branch names.
func WithClock(clock func() time.Time) Option {
	return func(a *application) {
		a.clock = clock
	}
}

// WithLogger replaces the JSON logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}
