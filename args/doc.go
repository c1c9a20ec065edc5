// Package args holds the resolved argument set of one command invocation and
// the precedence rules used to build it.
//
// A [Set] maps option names to values. Every option is stored under its
// kebab-case and camelCase spellings and under each declared alias, so that
// reading any spelling yields the same value. Sets are immutable: every
// method that changes a value returns a new Set and leaves the receiver as it
// was.
//
// Sources are combined with [Merge] from lowest to highest precedence:
//
//	defaults < environment < profiles < command line
//
// The program name ($0) and the positional arguments (_) of the original
// parse are carried alongside the values and survive every merge.
package args
