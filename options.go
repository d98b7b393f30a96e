package versioned

import "log/slog"

// Option configures generation.
type Option func(*config) error

// config holds all generation configuration.
type config struct {
	pruneImports    bool
	generatedHeader bool

	// logger receives debug records for every removed node. If nil,
	// logging is disabled.
	logger *slog.Logger
}

// WithLogger sets a structured logger for generation diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	pkgs, err := versioned.GenerateFile("schema.go", nil, versioned.WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithPruneImports controls whether Render removes imports left unused by
// removed declarations. Enabled by default; when disabled, Render only
// formats the output.
func WithPruneImports(prune bool) Option {
	return func(c *config) error {
		c.pruneImports = prune
		return nil
	}
}

// WithGeneratedHeader controls whether emitted files start with the
// "Code generated ... DO NOT EDIT." comment. Enabled by default.
func WithGeneratedHeader(header bool) Option {
	return func(c *config) error {
		c.generatedHeader = header
		return nil
	}
}

// log returns the configured logger, or a no-op logger if none was set.
func (c *config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

func newConfig(opts ...Option) (*config, error) {
	c := &config{
		pruneImports:    true,
		generatedHeader: true,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
