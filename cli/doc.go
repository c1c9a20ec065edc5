// Package cli contains the command line interface for cmdproc.
//
// # Usage
//
// The CLI loads a command definition tree and runs one of its commands:
//
//	cmdproc [flags] <path...> [command flags] [positionals]
//
// The run subcommand is the default, so the path of a command may follow the
// global flags directly. Two more subcommands are available:
//
//   - tree: print the definition tree, or the subtree at a path
//   - init: write a starter configuration file, definition tree, and
//     profile type
//
// # Global Options
//
//   - --definition: command definition tree (default
//     ~/.config/cmdproc/commands.yaml)
//   - --profiles-dir: directory of profile files (default
//     ~/.config/cmdproc/profiles)
//   - --prompt-phrase: argument value that asks for a prompt (default
//     PROMPT*)
//   - --env-prefix: prefix of option environment variables (default
//     the upper-cased executable name)
//
// # Configuration
//
// Flag values may be set in the "cli" section of the configuration layers,
// written with hyphens or underscores. Command-line flags override them.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-file: Also write logs to a size-rotated file
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o cmdproc .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/cmdproc/pprof)
//
// # Examples
//
//	# Run the echo command of the tree with debug logging
//	cmdproc --log-level=debug echo --message hello
//
//	# Print the inputs a command would receive
//	cmdproc echo --show-inputs-only
package cli
