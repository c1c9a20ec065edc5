package profiles

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/pkg"
)

var (
	// ErrNoDefaultProfile is returned when a default profile was requested
	// for a type that has none.
	ErrNoDefaultProfile = pkg.MakeErrorf("no default profile set")
	// ErrProfileNotFound is returned when a named profile does not exist.
	ErrProfileNotFound = pkg.MakeErrorf("profile not found")
	// ErrCircularDependency is returned when a profile is reached a second
	// time along one dependency chain.
	ErrCircularDependency = pkg.MakeErrorf("circular profile dependency detected")
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = pkg.MakeErrorf("profile validation failed")
	// ErrProfileExists is returned by [Manager.Save] when a profile exists and
	// overwrite was not requested.
	ErrProfileExists = pkg.MakeErrorf("profile already exists")
)

// DirMode and FileMode are the permissions of created directories and files.
const (
	DirMode  fs.FileMode = 0o700
	FileMode fs.FileMode = 0o600
)

const (
	metaSuffix = "_meta"
	extension  = ".yaml"
)

// meta is the content of <type>_meta.yaml.
type meta struct {
	DefaultProfile string             `yaml:"defaultProfile,omitempty"`
	Configuration  *TypeConfiguration `yaml:"configuration,omitempty"`
}

// LoadOptions controls [Manager.Load].
type LoadOptions struct {
	// Name of the profile. Ignored when LoadDefault is set.
	Name string
	// LoadDefault loads the default profile of the type.
	LoadDefault bool
	// FailNotFound makes a missing profile an error rather than an empty
	// result.
	FailNotFound bool
	// LoadDependencies loads the profiles the profile depends on.
	LoadDependencies bool
}

// Manager reads and writes legacy profile files under a root directory.
type Manager struct {
	root   string
	types  map[string]TypeConfiguration
	logger log.Logger
}

// ManagerOption configures a [Manager].
type ManagerOption = pkg.Option[Manager]

// WithTypes registers type configurations that take precedence over those
// found in meta files.
func WithTypes(types ...TypeConfiguration) ManagerOption {
	return func(m Manager) Manager {
		m.types = make(map[string]TypeConfiguration, len(types))
		for _, t := range types {
			m.types[t.Type] = t
		}

		return m
	}
}

// WithLogger sets the logger of a [Manager].
func WithLogger(logger log.Logger) ManagerOption {
	return func(m Manager) Manager {
		m.logger = logger

		return m
	}
}

// NewManager returns a manager rooted at root.
func NewManager(root string, opts ...ManagerOption) *Manager {
	m := pkg.Wrap(Manager{root: root, logger: log.Discard()}, opts...)

	return &m
}

// Root returns the root directory of m.
func (m *Manager) Root() string { return m.root }

// Path returns the file of profile name of type typ.
func (m *Manager) Path(typ, name string) string {
	return filepath.Join(m.root, typ, name+extension)
}

func (m *Manager) metaPath(typ string) string {
	return filepath.Join(m.root, typ, typ+metaSuffix+extension)
}

// Exists reports whether profile name of type typ exists.
func (m *Manager) Exists(typ, name string) bool {
	fi, err := os.Stat(m.Path(typ, name))

	return err == nil && fi.Mode().IsRegular()
}

// Names returns the profile names of type typ, sorted.
func (m *Manager) Names(typ string) []string {
	entries, err := os.ReadDir(filepath.Join(m.root, typ))
	if err != nil {
		return nil
	}

	var out []string

	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), extension)
		if !ok || e.IsDir() || name == typ+metaSuffix {
			continue
		}

		out = append(out, name)
	}

	slices.Sort(out)

	return out
}

// TypeConfiguration returns the configuration of type typ: the registered
// one if any, else the one stored in its meta file, else an empty
// configuration.
func (m *Manager) TypeConfiguration(ctx context.Context, typ string) (TypeConfiguration, error) {
	if t, ok := m.types[typ]; ok {
		return t, nil
	}

	md, err := m.readMeta(ctx, typ)
	if err != nil {
		return TypeConfiguration{}, err
	}

	if md.Configuration != nil {
		return *md.Configuration, nil
	}

	return TypeConfiguration{Type: typ}, nil
}

// DefaultName returns the default profile name of type typ.
func (m *Manager) DefaultName(ctx context.Context, typ string) (string, bool, error) {
	md, err := m.readMeta(ctx, typ)
	if err != nil {
		return "", false, err
	}

	return md.DefaultProfile, md.DefaultProfile != "", nil
}

// SetDefault records name as the default profile of type typ.
func (m *Manager) SetDefault(ctx context.Context, typ, name string) error {
	if !m.Exists(typ, name) {
		return ErrProfileNotFound.Wrapf("profile %q of type %q", name, typ)
	}

	md, err := m.readMeta(ctx, typ)
	if err != nil {
		return err
	}

	md.DefaultProfile = name

	return m.writeMeta(ctx, typ, md)
}

// SaveType writes cfg into the meta file of its type.
func (m *Manager) SaveType(ctx context.Context, cfg TypeConfiguration) error {
	md, err := m.readMeta(ctx, cfg.Type)
	if err != nil {
		return err
	}

	md.Configuration = &cfg

	return m.writeMeta(ctx, cfg.Type, md)
}

// Save validates p and writes it as profile name of type typ.
func (m *Manager) Save(ctx context.Context, typ, name string, p Profile, overwrite bool) error {
	if m.Exists(typ, name) && !overwrite {
		return ErrProfileExists.Wrapf("profile %q of type %q", name, typ)
	}

	if err := m.Validate(ctx, typ, p); err != nil {
		return err
	}

	data, err := yaml.MarshalContext(ctx, map[string]any(p))
	if err != nil {
		return pkg.ErrYAMLMarshal.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Join(m.root, typ), DirMode); err != nil {
		return err
	}

	return os.WriteFile(m.Path(typ, name), data, FileMode)
}

// Validate checks the properties of p against the schema of type typ, and
// checks that p names every dependency the type marks required.
func (m *Manager) Validate(ctx context.Context, typ string, p Profile) error {
	cfg, err := m.TypeConfiguration(ctx, typ)
	if err != nil {
		return err
	}

	deps := p.Dependencies()

	for _, d := range cfg.Dependencies {
		if !d.Required {
			continue
		}

		if !slices.ContainsFunc(deps, func(r DependencyRef) bool { return r.Type == d.Type }) {
			return ErrInvalidProfile.Wrapf(
				"profile of type %q requires a dependency of type %q", typ, d.Type)
		}
	}

	if len(cfg.Schema) == 0 {
		return nil
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(cfg.Schema),
		gojsonschema.NewGoLoader(p.Properties()),
	)
	if err != nil {
		return ErrInvalidProfile.Wrap(err)
	}

	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}

		return ErrInvalidProfile.Wrapf("%s", strings.Join(msgs, "; "))
	}

	return nil
}

// Load loads one profile of type typ and, if requested, its dependencies.
//
// The counter detects circular dependencies. Its count for the profile is
// reset when Load returns.
func (m *Manager) Load(
	ctx context.Context,
	typ string,
	opts LoadOptions,
	counter *LoadCounter,
) (Loaded, error) {
	if counter == nil {
		counter = NewLoadCounter()
	}

	name := opts.Name

	if opts.LoadDefault {
		def, ok, err := m.DefaultName(ctx, typ)
		if err != nil {
			return Loaded{}, err
		}

		if !ok {
			if !opts.FailNotFound {
				return notFound(typ, "default was requested"), nil
			}

			m.logger.ErrorContext(ctx, "no default profile", slog.String("type", typ))

			return Loaded{}, ErrNoDefaultProfile.Wrapf("type %q", typ)
		}

		if !m.Exists(typ, def) {
			return Loaded{}, ErrProfileNotFound.Wrapf(
				"default profile %q of type %q", def, typ)
		}

		name = def
	}

	key := CounterKey(typ, name)

	n, reset := counter.Enter(key)
	defer reset()

	m.logger.DebugContext(ctx, "load profile",
		slog.String("type", typ),
		slog.String("name", name),
		slog.Int("count", n),
	)

	if n >= 2 {
		return Loaded{}, ErrCircularDependency.Wrapf(
			"profile %q of type %q either points directly to itself "+
				"or a dependency of this profile points to this profile",
			name, typ)
	}

	return m.loadSpecific(ctx, typ, name, opts, counter)
}

func (m *Manager) loadSpecific(
	ctx context.Context,
	typ, name string,
	opts LoadOptions,
	counter *LoadCounter,
) (Loaded, error) {
	if !m.Exists(typ, name) {
		if !opts.FailNotFound {
			return notFound(typ, name), nil
		}

		return Loaded{}, ErrProfileNotFound.Wrapf("profile %q of type %q", name, typ)
	}

	p, err := m.read(ctx, typ, name)
	if err != nil {
		return Loaded{}, err
	}

	if err := m.Validate(ctx, typ, p); err != nil {
		return Loaded{}, pkg.MakeError(err).Wrapf(
			"during load of profile %q of type %q", name, typ)
	}

	out := Loaded{
		Type:         typ,
		Name:         name,
		FailNotFound: opts.FailNotFound,
		Profile:      p.Properties(),
		Message:      `Profile "` + name + `" of type "` + typ + `" loaded successfully.`,
		Location:     m.Path(typ, name),
	}

	if !opts.LoadDependencies {
		return out, nil
	}

	for _, dep := range p.Dependencies() {
		d, err := m.Load(ctx, dep.Type, LoadOptions{
			Name:             dep.Name,
			FailNotFound:     opts.FailNotFound,
			LoadDependencies: true,
		}, counter)
		if err != nil {
			return Loaded{}, pkg.MakeError(err).Wrapf(
				"while loading the dependencies of profile %q of type %q", name, typ)
		}

		out.DependencyLoadResponses = append(out.DependencyLoadResponses, d)
	}

	out.DependenciesLoaded = len(out.DependencyLoadResponses) > 0

	return out, nil
}

func notFound(typ, name string) Loaded {
	return Loaded{
		Type:         typ,
		Name:         name,
		FailNotFound: false,
		Message: `Profile "` + name + `" of type "` + typ +
			`" was not found, but the request indicated to ignore "not found" errors.`,
	}
}

func (m *Manager) read(ctx context.Context, typ, name string) (Profile, error) {
	data, err := os.ReadFile(m.Path(typ, name))
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	p := Profile{}
	if err := yaml.UnmarshalContext(ctx, data, &p); err != nil {
		return nil, pkg.ErrParse.Wrapf("%s", m.Path(typ, name)).Wrap(err)
	}

	return p, nil
}

func (m *Manager) readMeta(ctx context.Context, typ string) (meta, error) {
	var md meta

	data, err := os.ReadFile(m.metaPath(typ))
	if errors.Is(err, fs.ErrNotExist) {
		return md, nil
	}

	if err != nil {
		return md, pkg.ErrReadInput.Wrap(err)
	}

	if err := yaml.UnmarshalContext(ctx, data, &md); err != nil {
		return md, pkg.ErrParse.Wrapf("%s", m.metaPath(typ)).Wrap(err)
	}

	return md, nil
}

func (m *Manager) writeMeta(ctx context.Context, typ string, md meta) error {
	data, err := yaml.MarshalContext(ctx, md)
	if err != nil {
		return pkg.ErrYAMLMarshal.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Join(m.root, typ), DirMode); err != nil {
		return err
	}

	return os.WriteFile(m.metaPath(typ), data, FileMode)
}
