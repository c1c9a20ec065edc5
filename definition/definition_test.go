package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTree = `
name: app
type: group
children:
  - name: files
    aliases: [fl]
    type: group
    summary: Work with files
    children:
      - name: download
        aliases: [dl]
        type: command
        handler: builtin:echo
        positionals:
          - name: dataset
            type: string
            required: true
          - name: members...
            type: array
        options:
          - name: volume-serial
            aliases: [vs, v]
            type: string
          - name: binary
            aliases: [b]
            type: boolean
          - name: max-length
            type: number
          - name: records
            type: array
          - name: verbose
            type: count
          - name: attrs
            type: json
        profile:
          required: [zosmf]
          optional: [base]
          suppressOptions: [base]
  - name: banana
    type: command
    chainedHandlers:
      - handler: builtin:data
        mapping:
          - from: color
            to: shade
      - handler: builtin:echo
`

func mustParse(t *testing.T) *Tree {
	t.Helper()

	tree, err := Parse(context.Background(), []byte(sampleTree))
	require.NoError(t, err)

	return tree
}

func TestParse_Paths(t *testing.T) {
	tree := mustParse(t)

	cmd, err := tree.Lookup("files", "download")
	require.NoError(t, err)
	assert.Equal(t, "files download", cmd.FullName())
	assert.Equal(t, []string{"files", "download"}, cmd.Path())
	assert.Empty(t, tree.Root.FullName())

	var names []string
	for c := range tree.Walk() {
		names = append(names, c.Name)
	}

	assert.Equal(t, []string{"app", "files", "download", "banana"}, names)
}

func TestParse_UniversalOptions(t *testing.T) {
	tree := mustParse(t)
	cmd, err := tree.Lookup("files", "download")
	require.NoError(t, err)

	for _, name := range []string{
		OptResponseFormatJSON, "rfj", OptShowInputsOnly, OptDisableDefaults,
		"zosmf-profile", "zosmfProfile", "zosmf-p",
	} {
		_, ok := cmd.Option(name)
		assert.True(t, ok, name)
	}

	_, ok := cmd.Option("base-profile")
	assert.False(t, ok, "suppressed profile option")
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"no handler": `
name: app
type: group
children:
  - name: x
    type: command
`,
		"empty group": `
name: app
type: group
children:
  - name: g
    type: group
`,
		"duplicate names": `
name: app
type: group
children:
  - name: a
    type: command
    handler: h
  - name: b
    aliases: [a]
    type: command
    handler: h
`,
		"variadic not last": `
name: app
type: group
children:
  - name: a
    type: command
    handler: h
    positionals:
      - name: rest...
      - name: last
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(doc))
			require.ErrorIs(t, err, ErrInvalidTree)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(context.Background(), []byte("name: [unterminated"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTree), 0o600))

	tree, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "app", tree.Root.Name)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestTree_Find(t *testing.T) {
	tree := mustParse(t)

	t.Run("alias path", func(t *testing.T) {
		cmd, path, rest, err := tree.Find([]string{"fl", "dl", "DS.NAME", "--binary"})
		require.NoError(t, err)
		assert.Equal(t, "download", cmd.Name)
		assert.Equal(t, []string{"files", "download"}, path)
		assert.Equal(t, []string{"DS.NAME", "--binary"}, rest)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, _, err := tree.Find([]string{"files", "downlod"})
		require.ErrorIs(t, err, ErrCommandNotFound)
		assert.Contains(t, err.Error(), "download")
	})

	t.Run("group", func(t *testing.T) {
		cmd, _, _, err := tree.Find([]string{"files"})
		require.ErrorIs(t, err, ErrGroupSelected)
		assert.Equal(t, "files", cmd.Name)
	})
}

func TestSuggest(t *testing.T) {
	got := Suggest("dwn", []string{"download", "upload", "list"})
	assert.Equal(t, []string{"download"}, got)
	assert.Empty(t, Suggest("zzz", []string{"download"}))

	tests := []struct {
		word       string
		candidates []string
		want       []string
	}{
		{"ecoh", []string{"echo", "tools"}, []string{"echo"}},
		{"lsit", []string{"list", "upload"}, []string{"list"}},
		{"dwonlaod", []string{"upload", "download"}, []string{"download"}},
		{"x", []string{"ls"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := Suggest(tt.word, tt.candidates)
			if tt.want == nil {
				assert.Empty(t, got)

				return
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_ParseArgs(t *testing.T) {
	tree := mustParse(t)
	cmd, err := tree.Lookup("files", "download")
	require.NoError(t, err)

	got, err := cmd.ParseArgs("app", []string{
		"DS.NAME", "M1", "M2",
		"-v", "VOL001",
		"--binary",
		"--max-length", "80",
		"--records", "a", "b",
		"--verbose", "--verbose",
		"--attrs", `{"k":1}`,
		"--zosmf-p", "lpar1",
	})
	require.NoError(t, err)

	m := got.Map()
	assert.Equal(t, "app", got.Program())
	assert.Equal(t, []string{"files", "download"}, got.Positionals())
	assert.Equal(t, "DS.NAME", m["dataset"])
	assert.Equal(t, []string{"M1", "M2"}, m["members"])
	assert.Equal(t, "VOL001", m["volume-serial"])
	assert.Equal(t, "VOL001", m["volumeSerial"])
	assert.Equal(t, "VOL001", m["vs"])
	assert.Equal(t, "VOL001", m["v"])
	assert.Equal(t, true, m["b"])
	assert.Equal(t, int64(80), m["maxLength"])
	assert.Equal(t, []string{"a", "b"}, m["records"])
	assert.Equal(t, int64(2), m["verbose"])
	assert.Equal(t, map[string]any{"k": float64(1)}, m["attrs"])
	assert.Equal(t, "lpar1", m["zosmfProfile"])
	assert.NotContains(t, m, OptShowInputsOnly)
}

func TestCommand_ParseArgs_Errors(t *testing.T) {
	tree := mustParse(t)

	cmd, err := tree.Lookup("banana")
	require.NoError(t, err)

	_, err = cmd.ParseArgs("app", []string{"--nope"})
	require.ErrorIs(t, err, ErrFlag)

	_, err = cmd.ParseArgs("app", []string{"extra"})
	require.ErrorIs(t, err, ErrUnexpectedArgument)
}

func TestCommand_ArgOptions(t *testing.T) {
	tree := mustParse(t)
	cmd, err := tree.Lookup("files", "download")
	require.NoError(t, err)

	opts := cmd.ArgOptions()
	last := opts[len(opts)-1]

	assert.Equal(t, "members", last.Name)
	assert.Equal(t, string(TypeArray), last.Type)
	assert.Equal(t, []string{"zosmf", "base"}, cmd.ProfileTypes())
}
