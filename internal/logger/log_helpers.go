// Package logger provides logging utilities with structured logging support
package logger

// Info logs an info message using the default logger.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// With returns a child of the default logger carrying the given attributes.
func With(args ...any) *Scoped {
	return &Scoped{args: args}
}

// Scoped prefixes every record with a fixed set of attributes. It resolves
// the default logger lazily so SetLogger in tests still takes effect.
type Scoped struct {
	args []any
}

func (s *Scoped) Info(msg string, args ...any)  { Logger().Info(msg, s.merge(args)...) }
func (s *Scoped) Warn(msg string, args ...any)  { Logger().Warn(msg, s.merge(args)...) }
func (s *Scoped) Error(msg string, args ...any) { Logger().Error(msg, s.merge(args)...) }
func (s *Scoped) Debug(msg string, args ...any) { Logger().Debug(msg, s.merge(args)...) }

func (s *Scoped) merge(args []any) []any {
	out := make([]any, 0, len(s.args)+len(args))
	out = append(out, s.args...)
	return append(out, args...)
}
