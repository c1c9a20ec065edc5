package profiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
)

func newManager(t *testing.T, types ...TypeConfiguration) *Manager {
	t.Helper()

	return NewManager(t.TempDir(), WithTypes(types...))
}

func save(t *testing.T, m *Manager, typ, name string, p Profile) {
	t.Helper()

	require.NoError(t, m.Save(context.Background(), typ, name, p, true))
}

func TestManager_Load_CircularDependency(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	save(t, m, "a", "one", Profile{"host": "a"}.WithDependencies(DependencyRef{"b", "two"}))
	save(t, m, "b", "two", Profile{"port": 1}.WithDependencies(DependencyRef{"a", "one"}))

	counter := NewLoadCounter()

	_, err := m.Load(ctx, "a", LoadOptions{
		Name: "one", FailNotFound: true, LoadDependencies: true,
	}, counter)
	require.ErrorIs(t, err, ErrCircularDependency)
	assert.Contains(t, err.Error(), `"one"`)

	assert.Zero(t, counter.Count(CounterKey("a", "one")))
	assert.Zero(t, counter.Count(CounterKey("b", "two")))

	// Break the cycle; the same counter must not report a false positive.
	save(t, m, "b", "two", Profile{"port": 1})

	got, err := m.Load(ctx, "a", LoadOptions{
		Name: "one", FailNotFound: true, LoadDependencies: true,
	}, counter)
	require.NoError(t, err)
	assert.True(t, got.DependenciesLoaded)
	require.Len(t, got.DependencyLoadResponses, 1)
	assert.Equal(t, "two", got.DependencyLoadResponses[0].Name)
	assert.Equal(t, map[string]any{"host": "a"}, got.Profile)
}

func TestManager_Load_SelfReference(t *testing.T) {
	m := newManager(t)
	save(t, m, "a", "self", Profile{}.WithDependencies(DependencyRef{"a", "self"}))

	_, err := m.Load(context.Background(), "a", LoadOptions{
		Name: "self", FailNotFound: true, LoadDependencies: true,
	}, nil)
	require.ErrorIs(t, err, ErrCircularDependency)
}

func TestManager_Load_Default(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	_, err := m.Load(ctx, "db", LoadOptions{LoadDefault: true, FailNotFound: true}, nil)
	require.ErrorIs(t, err, ErrNoDefaultProfile)

	got, err := m.Load(ctx, "db", LoadOptions{LoadDefault: true}, nil)
	require.NoError(t, err)
	assert.False(t, got.Found())
	assert.False(t, got.FailNotFound)

	save(t, m, "db", "main", Profile{"url": "postgres://"})
	require.NoError(t, m.SetDefault(ctx, "db", "main"))

	name, ok, err := m.DefaultName(ctx, "db")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "main", name)

	got, err = m.Load(ctx, "db", LoadOptions{LoadDefault: true, FailNotFound: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://", got.Profile["url"])
	assert.Equal(t, m.Path("db", "main"), got.Location)
	assert.Equal(t, []string{"main"}, m.Names("db"))

	require.ErrorIs(t, m.SetDefault(ctx, "db", "missing"), ErrProfileNotFound)
}

func TestManager_Validate(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, TypeConfiguration{
		Type: "zosmf",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"host": map[string]any{"type": "string"},
				"port": map[string]any{"type": "number"},
			},
			"required": []any{"host"},
		},
		Dependencies: []Dependency{{Type: "base", Required: true}},
	})

	base := DependencyRef{"base", "b"}

	require.NoError(t, m.Validate(ctx, "zosmf",
		Profile{"host": "h", "port": 443}.WithDependencies(base)))

	err := m.Validate(ctx, "zosmf", Profile{"host": "h"})
	require.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), `"base"`)

	err = m.Validate(ctx, "zosmf", Profile{"port": "x"}.WithDependencies(base))
	require.ErrorIs(t, err, ErrInvalidProfile)

	require.ErrorIs(t, m.Save(ctx, "zosmf", "bad", Profile{"port": 1}, false), ErrInvalidProfile)
}

func TestManager_SaveType(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	require.NoError(t, m.SaveType(ctx, TypeConfiguration{
		Type:   "tso",
		Schema: map[string]any{"type": "object"},
	}))

	cfg, err := m.TypeConfiguration(ctx, "tso")
	require.NoError(t, err)
	assert.Equal(t, "tso", cfg.Type)
	assert.Equal(t, "object", cfg.Schema["type"])

	save(t, m, "tso", "t1", Profile{"account": "A"})
	require.ErrorIs(t, m.Save(ctx, "tso", "t1", Profile{}, false), ErrProfileExists)
}

func TestResolver_Resolve_MixedSources(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	save(t, m, "tso", "t1", Profile{"account": "ACCT", "host": "legacy.host"})
	require.NoError(t, m.SetDefault(ctx, "tso", "t1"))

	store := config.FromDocument("app", map[string]any{
		"profiles": map[string]any{
			"zosmf_lpar1": map[string]any{
				"properties": map[string]any{"host": "config.host", "user": "ibmuser"},
			},
		},
	})

	decl := &definition.ProfileDeclaration{
		Required: []string{"zosmf"},
		Optional: []string{"tso", "base"},
	}

	options := []args.Option{{Name: "host"}, {Name: "user"}, {Name: "account"}}
	merged := args.New(map[string]any{"zosmf-profile": "lpar1", "user": "cli"})

	res, err := Resolver{Manager: m, Store: store}.Resolve(ctx, decl, options, merged)
	require.NoError(t, err)

	zosmf, err := res.Get("zosmf", true)
	require.NoError(t, err)
	assert.Equal(t, "config.host", zosmf["host"])

	tso, err := res.Get("tso", true)
	require.NoError(t, err)
	assert.Equal(t, "ACCT", tso["account"])

	base, err := res.Get("base", false)
	require.NoError(t, err)
	assert.Nil(t, base)

	_, err = res.Get("base", true)
	require.ErrorIs(t, err, ErrProfileNotFound)

	assert.Equal(t, "config.host", res.Args.GetString("host"))
	assert.Equal(t, "ACCT", res.Args.GetString("account"))
	assert.False(t, res.Args.Has("user"), "present in merged")

	assert.Equal(t, []string{"zosmf_lpar1", "t1"}, res.Names())
	assert.Equal(t, []string{m.Path("tso", "t1")}, res.Locations())

	var fromConfig []bool
	for _, l := range res.All() {
		fromConfig = append(fromConfig, l.FromConfig)
	}

	assert.Equal(t, []bool{true, false, false}, fromConfig)
}

func TestResolver_Resolve_NoDefault(t *testing.T) {
	decl := &definition.ProfileDeclaration{Required: []string{"db"}}

	for name, r := range map[string]Resolver{
		"no manager":    {},
		"empty manager": {Manager: NewManager(t.TempDir())},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), decl, nil, args.Set{})
			require.ErrorIs(t, err, ErrNoDefaultProfile)
		})
	}
}

func TestResolver_Resolve_ConfigDefault(t *testing.T) {
	store := config.FromDocument("app", map[string]any{
		"profiles": map[string]any{
			"lpar": map[string]any{
				"profiles": map[string]any{
					"zosmf": map[string]any{
						"properties": map[string]any{"port": 443},
					},
				},
			},
		},
		"defaults": map[string]any{"zosmf": "lpar.zosmf"},
	})

	res, err := Resolver{Store: store}.Resolve(context.Background(),
		&definition.ProfileDeclaration{Required: []string{"zosmf"}},
		[]args.Option{{Name: "port"}},
		args.Set{},
	)
	require.NoError(t, err)
	assert.Equal(t, 443, res.Args.Map()["port"])
	assert.Equal(t, []string{"lpar.zosmf"}, res.Names())
}

func TestResolver_Resolve_NilDeclaration(t *testing.T) {
	res, err := Resolver{}.Resolve(context.Background(), nil, nil, args.Set{})
	require.NoError(t, err)
	assert.Empty(t, res.All())
	assert.Zero(t, res.Args.Len())
}
