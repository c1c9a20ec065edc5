// Package prompt reads values from the user for options whose arguments ask
// to be prompted.
//
// [Terminal] draws a single-line text input on an interactive terminal and
// falls back to reading one line from its input otherwise. Secure prompts
// never echo what is typed.
package prompt
