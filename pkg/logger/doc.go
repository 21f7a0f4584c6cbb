// Package logger builds configured slog loggers with environment presets,
// static attributes, and context-driven attribute injection.
package logger
