package buffer

// Logger matches the slog call shape: a message followed by alternating
// key-value pairs. slog.Logger satisfies it directly; see the logger
// package for logrus and zap adapters.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// DiscardLogger is the default logger; it compiles to a no-op
type DiscardLogger struct{}

func (d DiscardLogger) Error(string, ...any) {}

func (d DiscardLogger) Warn(string, ...any) {}

func (d DiscardLogger) Info(string, ...any) {}
