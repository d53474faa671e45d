package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/rzbill/strand/internal/cmd/client"
	logpkg "github.com/rzbill/strand/pkg/log"
)

func main() {
	// Respect STRAND_LOG_LEVEL for all CLI output
	level := os.Getenv("STRAND_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.SetDefaultLogger(logger)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := clientcmd.NewRoot()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", logpkg.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}
