package definition

import (
	"context"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/cmdproc/pkg"
)

var (
	// ErrInvalidTree is returned when a decoded tree breaks a structural rule.
	ErrInvalidTree = pkg.MakeErrorf("invalid command tree")
	// ErrCommandNotFound is returned by [Tree.Find] for an unknown token.
	ErrCommandNotFound = pkg.MakeErrorf("command not found")
	// ErrGroupSelected is returned by [Tree.Find] when the tokens end on a
	// group rather than a command.
	ErrGroupSelected = pkg.MakeErrorf("command group requires a subcommand")
)

// Tree is a decoded, validated command tree.
type Tree struct {
	Root *Command
}

// Load reads and parses the command tree at path.
func Load(ctx context.Context, path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	return Parse(ctx, data)
}

// Parse decodes a YAML command tree, checks its structure, and adds the
// universal options to every command.
func Parse(ctx context.Context, data []byte) (*Tree, error) {
	var root Command

	if err := yaml.UnmarshalContext(ctx, data, &root, yaml.Strict()); err != nil {
		return nil, pkg.ErrParse.Wrap(err)
	}

	if root.Type == "" {
		root.Type = KindGroup
	}

	if err := prepare(&root, nil); err != nil {
		return nil, err
	}

	return &Tree{Root: &root}, nil
}

// prepare validates c and its descendants and records each node's path.
func prepare(c *Command, path []string) error {
	if c.Name == "" {
		return ErrInvalidTree.Wrapf("unnamed node under %q", path)
	}

	c.path = path

	switch c.Type {
	case KindGroup:
		if len(c.Children) == 0 {
			return ErrInvalidTree.Wrapf("group %q has no children", c.Name)
		}

		seen := map[string]bool{}

		for _, ch := range c.Children {
			for _, n := range append([]string{ch.Name}, ch.Aliases...) {
				if seen[n] {
					return ErrInvalidTree.Wrapf(
						"duplicate name %q in group %q", n, c.Name)
				}

				seen[n] = true
			}

			if err := prepare(ch, append(slices.Clip(path), ch.Name)); err != nil {
				return err
			}
		}

	case KindCommand:
		if c.Handler == "" && len(c.ChainedHandlers) == 0 {
			return ErrInvalidTree.Wrapf(
				"command %q has neither a handler nor chained handlers", c.Name)
		}

		if len(c.Children) > 0 {
			return ErrInvalidTree.Wrapf("command %q has children", c.Name)
		}

		for i, p := range c.Positionals {
			if p.Variadic() && i != len(c.Positionals)-1 {
				return ErrInvalidTree.Wrapf(
					"variadic positional %q of %q is not last", p.Name, c.Name)
			}
		}

		c.Options = append(c.Options, universalOptions(c)...)

	default:
		return ErrInvalidTree.Wrapf("node %q has unknown type %q", c.Name, c.Type)
	}

	return nil
}

// Find walks tokens from the root through group names and aliases.
// It returns the command reached, its path, and the tokens left for the
// command's own flags and positionals.
//
// If a token names no child of the current group, the error wraps
// [ErrCommandNotFound] and mentions the closest child names. If the tokens
// run out on a group, that group is returned with [ErrGroupSelected].
func (t *Tree) Find(tokens []string) (*Command, []string, []string, error) {
	cur := t.Root

	for i, tok := range tokens {
		if !cur.IsGroup() {
			return cur, cur.Path(), tokens[i:], nil
		}

		if len(tok) > 0 && tok[0] == '-' {
			return cur, cur.Path(), tokens[i:], ErrGroupSelected.Wrapf("%q", cur.Name)
		}

		next := cur.Child(tok)
		if next == nil {
			err := ErrCommandNotFound.Wrapf("%q", tok)
			if s := Suggest(tok, cur.ChildNames()); len(s) > 0 {
				err = err.Wrapf("did you mean %q", s)
			}

			return cur, cur.Path(), tokens[i:], err
		}

		cur = next
	}

	if cur.IsGroup() {
		return cur, cur.Path(), nil, ErrGroupSelected.Wrapf("%q", cur.Name)
	}

	return cur, cur.Path(), nil, nil
}

// Lookup returns the node at the given path of names.
func (t *Tree) Lookup(path ...string) (*Command, error) {
	cur := t.Root

	for _, name := range path {
		next := cur.Child(name)
		if next == nil {
			return nil, ErrCommandNotFound.Wrapf("%q", name)
		}

		cur = next
	}

	return cur, nil
}

// Walk returns an iterator over every node of the tree in depth-first order.
func (t *Tree) Walk() iter.Seq[*Command] {
	return func(yield func(*Command) bool) {
		walk(t.Root, yield)
	}
}

func walk(c *Command, yield func(*Command) bool) bool {
	if !yield(c) {
		return false
	}

	for _, ch := range c.Children {
		if !walk(ch, yield) {
			return false
		}
	}

	return true
}

// ChildNames returns the names of the children of c.
func (c *Command) ChildNames() []string {
	names := make([]string, 0, len(c.Children))
	for _, ch := range c.Children {
		names = append(names, ch.Name)
	}

	return names
}

// MaxSuggestions is the number of candidates returned by [Suggest].
const MaxSuggestions = 3

// MaxEditDistance bounds the typos [Suggest] corrects when no candidate
// contains word as a subsequence.
const MaxEditDistance = 2

// Suggest returns up to [MaxSuggestions] candidates that fuzzily match word,
// best match first. Candidates within [MaxEditDistance] edits of word, with a
// swap of adjacent letters counting as one edit, are used when no candidate
// matches fuzzily.
func Suggest(word string, candidates []string) []string {
	var found []string

	for _, m := range fuzzy.Find(word, candidates) {
		found = append(found, m.Str)
	}

	if len(found) == 0 {
		found = nearest(word, candidates)
	}

	return found[:min(len(found), MaxSuggestions)]
}

// nearest returns the candidates within [MaxEditDistance] of word, closest
// first. Short words allow fewer edits.
func nearest(word string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}

	var near []scored

	limit := min(MaxEditDistance, len([]rune(word))/2)

	for _, c := range candidates {
		if d := editDistance(strings.ToLower(word), strings.ToLower(c)); d <= limit {
			near = append(near, scored{c, d})
		}
	}

	slices.SortStableFunc(near, func(a, b scored) int { return a.dist - b.dist })

	out := make([]string, 0, len(near))
	for _, n := range near {
		out = append(out, n.name)
	}

	return out
}

// editDistance is the optimal string alignment distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}

	for j := range d[0] {
		d[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)

			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}

	return d[len(ra)][len(rb)]
}

// String returns a one-line description of c.
func (c *Command) String() string {
	if c.Summary != "" {
		return fmt.Sprintf("%s: %s", c.Name, c.Summary)
	}

	return c.Name
}
