// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// Loggers are configured at creation time using functional options and are
// immutable afterwards; [Logger.Wrap] and [Logger.With] derive new loggers.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("command invoked", slog.String("command", "get"))
//
// # Configuration
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("RFC3339Nano"),
//		log.WithCaller(true))
//
// # Log Files
//
// [WithFile] copies every record into a size-rotated file:
//
//	logger := log.Make(os.Stderr,
//		log.WithFile("/var/log/cmdproc.log", log.Rotation{MaxSize: 8}))
//	defer logger.Close()
//
// Pretty printing is disabled while a log file is enabled.
//
// # Package-Level Logger
//
// The package-level functions ([Info], [DebugContext], ...) log through a
// default logger writing to [os.Stderr], which [Config] reconfigures.
//
// # Supported Levels
//
// The package supports five log levels: [LevelTrace], [LevelDebug],
// [LevelInfo], [LevelWarn], and [LevelError]. Messages below the configured
// level are discarded.
package log
