package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ardnew/mung"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/pkg"
)

// Extensions lists the recognized layer file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".json", ".toml"}

// Layer describes one layer file of a [Store].
type Layer struct {
	Path   string         `yaml:"path"   json:"path"`
	Exists bool           `yaml:"exists" json:"exists"`
	User   bool           `yaml:"user"   json:"user"`
	Global bool           `yaml:"global" json:"global"`
	Doc    map[string]any `yaml:"-"      json:"-"`
}

// Store is the merged view of every layer.
type Store struct {
	app    string
	layers []Layer
	merged map[string]any
}

type loader struct {
	globalDir string
	workDir   string
	envPrefix string
	lookupEnv func(string) (string, bool)
	logger    log.Logger
}

// Option configures [Load].
type Option = pkg.Option[loader]

// WithGlobalDir sets the directory of the global layers.
func WithGlobalDir(dir string) Option {
	return func(l loader) loader {
		l.globalDir = dir

		return l
	}
}

// WithWorkDir sets the directory from which the project layers are searched.
func WithWorkDir(dir string) Option {
	return func(l loader) loader {
		l.workDir = dir

		return l
	}
}

// WithEnvPrefix sets the prefix of the <PREFIX>_CONFIG_PATH variable.
func WithEnvPrefix(prefix string) Option {
	return func(l loader) loader {
		l.envPrefix = prefix

		return l
	}
}

// WithLookupEnv sets the function used to read environment variables.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l loader) loader {
		l.lookupEnv = fn

		return l
	}
}

// WithLogger sets the logger used to report skipped and loaded layers.
func WithLogger(logger log.Logger) Option {
	return func(l loader) loader {
		l.logger = logger

		return l
	}
}

// Load searches for and merges the layer files of app.
// Missing layers are recorded with Exists false; a layer that exists but
// cannot be decoded is an error.
func Load(ctx context.Context, app string, opts ...Option) (*Store, error) {
	l := pkg.Wrap(loader{
		globalDir: pkg.ConfigDir(),
		envPrefix: pkg.EnvPrefix(),
		lookupEnv: os.LookupEnv,
		logger:    log.Discard(),
	}, opts...)

	if l.workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			l.workDir = wd
		}
	}

	projectDir := l.projectDir(app)

	s := &Store{app: app}

	for _, loc := range []struct {
		dir          string
		user, global bool
	}{
		{projectDir, true, false},
		{projectDir, false, false},
		{l.globalDir, true, true},
		{l.globalDir, false, true},
	} {
		if loc.dir == "" {
			continue
		}

		layer, err := readLayer(ctx, loc.dir, layerName(app, loc.user))
		if err != nil {
			return nil, err
		}

		layer.User, layer.Global = loc.user, loc.global

		l.logger.DebugContext(ctx, "config layer",
			slog.String("path", layer.Path),
			slog.Bool("exists", layer.Exists),
		)

		s.layers = append(s.layers, layer)
	}

	s.merged = map[string]any{}

	for _, layer := range slices.Backward(s.layers) {
		if layer.Exists {
			s.merged = deepMerge(s.merged, layer.Doc)
		}
	}

	return s, nil
}

// FromDocument returns a store holding a single in-memory layer.
func FromDocument(app string, doc map[string]any) *Store {
	return &Store{
		app:    app,
		layers: []Layer{{Exists: true, Doc: doc}},
		merged: deepMerge(map[string]any{}, doc),
	}
}

// App returns the application name the store was loaded for.
func (s *Store) App() string { return s.app }

// Layers returns every layer, highest precedence first.
func (s *Store) Layers() []Layer {
	if s == nil {
		return nil
	}

	return slices.Clone(s.layers)
}

// Exists reports whether any layer file was found.
func (s *Store) Exists() bool {
	if s == nil {
		return false
	}

	return slices.ContainsFunc(s.layers, func(l Layer) bool { return l.Exists })
}

// Kong returns the "cli" section of the merged layers as a flat map suitable
// for a [kong.Resolver]. Numbers are converted to strings.
func (s *Store) Kong() map[string]any {
	out := map[string]any{}

	if s == nil {
		return out
	}

	section, _ := s.merged["cli"].(map[string]any)

	for k, v := range section {
		out[k] = kongValue(v)
	}

	return out
}

func layerName(app string, user bool) string {
	if user {
		return app + ".config.user"
	}

	return app + ".config"
}

// searchPath returns the directories searched for the project layers:
// the entries of <PREFIX>_CONFIG_PATH followed by the working directory and
// each of its ancestors.
func (l loader) searchPath() []string {
	var dirs []string

	for dir := l.workDir; dir != ""; {
		dirs = append(dirs, dir)

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	var prefix []string

	if l.lookupEnv != nil && l.envPrefix != "" {
		if v, ok := l.lookupEnv(l.envPrefix + "_CONFIG_PATH"); ok {
			prefix = filepath.SplitList(v)
		}
	}

	joined := mung.Make(
		mung.WithSubjectItems(dirs...),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()

	return slices.DeleteFunc(filepath.SplitList(joined), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
}

func (l loader) projectDir(app string) string {
	for _, dir := range l.searchPath() {
		if filepath.Clean(dir) == filepath.Clean(l.globalDir) {
			continue
		}

		for _, user := range []bool{false, true} {
			if findLayerFile(dir, layerName(app, user)) != "" {
				return dir
			}
		}
	}

	return ""
}

func findLayerFile(dir, name string) string {
	for _, ext := range Extensions {
		p := filepath.Join(dir, name+ext)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}

	return ""
}

func readLayer(ctx context.Context, dir, name string) (Layer, error) {
	path := findLayerFile(dir, name)
	if path == "" {
		return Layer{Path: filepath.Join(dir, name+Extensions[0])}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, pkg.ErrReadInput.Wrap(err)
	}

	doc, err := Decode(ctx, filepath.Ext(path), data)
	if err != nil {
		return Layer{}, pkg.ErrParse.Wrapf("%s", path).Wrap(err)
	}

	return Layer{Path: path, Exists: true, Doc: doc}, nil
}

// Decode parses a layer document. The extension selects TOML; anything else
// is decoded as YAML, which includes JSON.
func Decode(ctx context.Context, ext string, data []byte) (map[string]any, error) {
	doc := map[string]any{}

	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	if strings.EqualFold(ext, ".toml") {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
			return nil, err
		}

		return doc, nil
	}

	if err := yaml.UnmarshalContext(ctx, data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// deepMerge returns a copy of dst with src merged into it. Nested maps are
// merged recursively; any other value in src replaces the value in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))

	for k, v := range dst {
		out[k] = v
	}

	for k, v := range src {
		sm, sok := v.(map[string]any)
		dm, dok := out[k].(map[string]any)

		if sok && dok {
			out[k] = deepMerge(dm, sm)

			continue
		}

		if sok {
			out[k] = deepMerge(map[string]any{}, sm)

			continue
		}

		out[k] = v
	}

	return out
}
