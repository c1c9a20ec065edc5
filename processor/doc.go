// Package processor runs one command of a command tree.
//
// A [Processor] is built for a single command definition. [Processor.Invoke]
// takes the arguments parsed from the command line through every stage of
// an invocation:
//
//  1. prepare: merge environment, stdin, profile, and default values under
//     the parsed arguments
//  2. prompt: ask the user for every value given as the prompt phrase
//  3. validate: check the arguments against the definition
//  4. invoke: run the handler, or each handler of a chain in order
//  5. finish: build the response and write it as JSON when requested
//
// Failures after the caller contract is checked are reported in the returned
// response, never as an error.
package processor
