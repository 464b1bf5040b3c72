// Package buildlog carries the build logger through context values so every
// build package logs through the same zerolog instance.
package buildlog

import (
	"context"

	"github.com/rs/zerolog"
)

type logKey struct{}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// Log returns the logger attached to the context and panics when none is
// present; build entry points are responsible for attaching one.
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logKey{})
	if logger == nil {
		panic("logger is missing in context!")
	}

	return logger.(*zerolog.Logger)
}
