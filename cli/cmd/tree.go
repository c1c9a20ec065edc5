package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
)

// Tree prints the command definition tree, or the subtree at a path.
type Tree struct {
	Path []string `arg:"" help:"Names of the groups and command to print." optional:""`
	JSON bool     `help:"Print JSON instead of YAML."                       short:"j"`
}

// Run executes the tree command.
func (t *Tree) Run(ctx context.Context, g *Globals) error {
	tree, err := g.tree(ctx)
	if err != nil {
		return err
	}

	node, err := tree.Lookup(t.Path...)
	if err != nil {
		return ErrCommand.
			With(slog.String("path", strings.Join(t.Path, " "))).
			Wrap(err)
	}

	if t.JSON {
		return writeJSON(ctx, g, node)
	}

	data, err := yaml.MarshalContext(ctx, node, yaml.Indent(2))
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	_, err = g.stdout().Write(data)

	return err
}
