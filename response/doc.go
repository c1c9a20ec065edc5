// Package response implements the envelope a command handler writes to: the
// console and data APIs, the buffered stdout and stderr streams, the
// structured error of a failed command, and the final [Response] rendered as
// text or JSON.
package response
