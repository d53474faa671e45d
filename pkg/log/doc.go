// Package log provides strand's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves our
// formatter/outputs pipeline.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.WithComponent("client")
//	l.Info("stream opened", log.Field{Key: "position", Value: 42})
//
// Loggers are constructed explicitly and injected through constructors; the
// process-wide default from GetDefaultLogger is a fallback for components
// built without one. To integrate with libraries expecting the standard
// library logger, use RedirectStdLog.
package log
