package ports

// Logger abstracts logging so the services do not depend on one
// concrete backend (standard log, zap, slog).
type Logger interface {
	// Debug logs diagnostic detail, wire traces included.
	Debug(msg string, args ...interface{})

	// Info logs normal operational events.
	Info(msg string, args ...interface{})

	// Warn logs recoverable anomalies.
	Warn(msg string, args ...interface{})

	// Error logs failures.
	Error(msg string, args ...interface{})

	// Fatal logs a critical failure and terminates the program.
	Fatal(msg string, args ...interface{})

	// Printf is the formatted escape hatch for compatibility.
	Printf(format string, args ...interface{})
}
