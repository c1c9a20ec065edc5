// Package pprof provides optional runtime profiling of command invocations.
//
// Profiling is built on [github.com/pkg/profile] and must be enabled at build
// time with the "pprof" build tag:
//
//	go build -tags pprof .
//
// Without the tag, [Modes] is empty and [Profiler.Start] is a no-op.
//
// # Modes
//
// allocs, block, clock, cpu, goroutine, heap, mem, mutex, thread, and trace.
//
// # Command-Line Usage
//
//	cmdproc --pprof-mode cpu run get thing
//	cmdproc --pprof-mode heap --pprof-dir ./profiles run get thing
//
// Profiles are written to $XDG_CACHE_HOME/cmdproc/pprof by default and can be
// inspected with "go tool pprof".
package pprof
