// Package validate checks a resolved argument set against the options and
// positionals a command declares. Declarative constraints are compiled to a
// JSON schema; relations between options and file existence are checked
// directly.
package validate
