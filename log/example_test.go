package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/cmdproc/log"
)

func Example_basic() {
	logger := log.Make(os.Stdout, log.WithTimeLayout("none"))
	logger.Info("command invoked", slog.String("command", "get"))
	// Output: level=info msg="command invoked" command=get
}

func Example_levels() {
	logger := log.Make(os.Stdout, log.WithLevel(log.LevelWarn), log.WithTimeLayout("none"))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("profile not found", slog.String("type", "db"))
	// Output: level=warn msg="profile not found" type=db
}

func Example_withAttributes() {
	logger := log.Make(os.Stdout, log.WithFormat(log.FormatJSON), log.WithTimeLayout("none"))
	logger = logger.With(slog.String("invocation", "12345"))

	logger.Info("processing command")
	// Output: {"level":"info","msg":"processing command","invocation":"12345"}
}
