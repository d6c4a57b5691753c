// Package logger provides adapters for popular logging libraries to work
// with the buffer pool's Logger interface.
//
// The standard library's slog.Logger already satisfies buffer.Logger
// directly; the adapters here cover logrus and zap.
//
// Example with zap:
//
//	zapLogger, _ := zap.NewProduction()
//
//	bpm, _ := buffer.NewBufferPoolManager(128, 2, disk)
//	bpm.SetLogger(logger.NewZap(zapLogger))
package logger
