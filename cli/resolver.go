package cli

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/cmdproc/config"
)

// resolve returns a [kong.Resolver] reading flag values from the "cli"
// section of the configuration store.
//
// Flag names may be written with hyphens or underscores:
//
//	cli:
//	  log-level: debug
//	  log_format: json
//	  prompt-phrase: ASK
//
// Command-line flags override config file values.
func resolve(store *config.Store) kong.Resolver {
	return flags(store.Kong())
}

// flags implements [kong.Resolver] for a flat map of flag values.
type flags map[string]any

// Validate implements [kong.Resolver].
func (r flags) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r flags) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	name := flag.Name

	if value, ok := r[name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}
