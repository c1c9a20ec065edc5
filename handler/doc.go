// Package handler loads and runs the code behind a command: a registry of
// handler factories, panic-safe invocation, and the argument mapping that
// feeds the data of one chained handler into the arguments of later ones.
package handler
