package goShare

import "context"

// Logger is the structured logger the engine writes diagnostics to. Key/value
// pairs follow log/slog conventions. The service passes internal/logging's
// slog-backed implementation.
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
