// Package censor decides which option values are secure and masks them in
// argument maps, raw command lines, and arbitrary output.
package censor
