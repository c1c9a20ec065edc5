package profiles

import (
	"context"
	"log/slog"
	"slices"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/log"
)

// Resolver loads the profiles declared by a command.
type Resolver struct {
	// Manager reads legacy profile files. It may be nil.
	Manager *Manager
	// Store is the layered configuration store. It may be nil.
	Store *config.Store
	// Logger receives load progress.
	Logger log.Logger
}

// Resolution holds the profiles loaded for one command and the option values
// extracted from them.
type Resolution struct {
	byType map[string][]Loaded
	order  []string
	Args   args.Set
}

// Resolve loads a profile for every type of decl and extracts option values
// for names absent from merged.
//
// For each type, required types first, the profile name is taken from the
// --<type>-profile argument, then from the configured default. A profile
// found in the store, by name or as <type>_<name>, fulfils its type; every
// other type is loaded from the legacy files, failing only for required
// types.
func (r Resolver) Resolve(
	ctx context.Context,
	decl *definition.ProfileDeclaration,
	options []args.Option,
	merged args.Set,
) (Resolution, error) {
	res := Resolution{byType: map[string][]Loaded{}}

	if decl == nil {
		return res, nil
	}

	logger := r.Logger
	if logger.Logger == nil {
		logger = log.Discard()
	}

	counter := NewLoadCounter()
	cfg := r.Store.Profiles()

	for _, typ := range slices.Concat(decl.Required, decl.Optional) {
		if _, done := res.byType[typ]; done {
			continue
		}

		required := slices.Contains(decl.Required, typ)
		name := requestedName(typ, merged)

		if name == "" && r.Store != nil {
			name, _ = cfg.DefaultName(typ)
		}

		if l, ok := r.fromConfig(typ, name, required); ok {
			logger.DebugContext(ctx, "profile from config",
				slog.String("type", typ), slog.String("name", l.Name))

			res.add(l)

			continue
		}

		l, err := r.fromLegacy(ctx, typ, name, required, counter)
		if err != nil {
			return Resolution{}, err
		}

		logger.DebugContext(ctx, "profile from legacy storage",
			slog.String("type", typ),
			slog.String("name", l.Name),
			slog.Bool("found", l.Found()),
		)

		res.add(l)
	}

	fromProfiles, err := args.FromProfiles(args.ProfileSource{
		Required: decl.Required,
		Optional: decl.Optional,
		Lookup: func(typ string) (map[string]any, bool) {
			l, ok := res.first(typ)

			return l.Profile, ok && l.Found()
		},
	}, options, merged)
	if err != nil {
		return Resolution{}, err
	}

	res.Args = fromProfiles

	return res, nil
}

func requestedName(typ string, merged args.Set) string {
	name, _ := definition.ProfileOption(typ)
	f := args.Format(name)

	if v := merged.GetString(f.Kebab); v != "" {
		return v
	}

	return merged.GetString(f.Camel)
}

func (r Resolver) fromConfig(typ, name string, required bool) (Loaded, bool) {
	if r.Store == nil || name == "" {
		return Loaded{}, false
	}

	p := r.Store.Profiles()

	for _, candidate := range []string{name, typ + "_" + name} {
		if !p.Exists(candidate) {
			continue
		}

		location := ""
		for _, layer := range r.Store.Layers() {
			if layer.Exists {
				location = layer.Path

				break
			}
		}

		return Loaded{
			Type:         typ,
			Name:         candidate,
			FailNotFound: required,
			Profile:      p.Get(candidate),
			Message:      `Profile "` + candidate + `" of type "` + typ + `" loaded from configuration.`,
			Location:     location,
			FromConfig:   true,
		}, true
	}

	return Loaded{}, false
}

func (r Resolver) fromLegacy(
	ctx context.Context,
	typ, name string,
	required bool,
	counter *LoadCounter,
) (Loaded, error) {
	if r.Manager == nil {
		if required {
			if name == "" {
				return Loaded{}, ErrNoDefaultProfile.Wrapf("type %q", typ)
			}

			return Loaded{}, ErrProfileNotFound.Wrapf("profile %q of type %q", name, typ)
		}

		return notFound(typ, name), nil
	}

	return r.Manager.Load(ctx, typ, LoadOptions{
		Name:             name,
		LoadDefault:      name == "",
		FailNotFound:     required,
		LoadDependencies: true,
	}, counter)
}

func (res *Resolution) add(l Loaded) {
	for _, each := range l.Flatten() {
		if _, ok := res.byType[each.Type]; !ok {
			res.order = append(res.order, each.Type)
		}

		res.byType[each.Type] = append(res.byType[each.Type], each)
	}
}

func (res Resolution) first(typ string) (Loaded, bool) {
	list := res.byType[typ]
	if len(list) == 0 {
		return Loaded{}, false
	}

	return list[0], true
}

// Get returns the properties of the first profile loaded for typ.
// If none was found and failNotFound is set, it returns an error.
func (res Resolution) Get(typ string, failNotFound bool) (map[string]any, error) {
	l, ok := res.first(typ)
	if !ok || !l.Found() {
		if failNotFound {
			return nil, ErrProfileNotFound.Wrapf("no profile of type %q was loaded", typ)
		}

		return nil, nil
	}

	return l.Profile, nil
}

// All returns every loaded profile, including dependencies, in load order.
func (res Resolution) All() []Loaded {
	var out []Loaded
	for _, typ := range res.order {
		out = append(out, res.byType[typ]...)
	}

	return out
}

// Names returns the names of every profile found, in load order.
func (res Resolution) Names() []string {
	var out []string

	for _, l := range res.All() {
		if l.Found() && !slices.Contains(out, l.Name) {
			out = append(out, l.Name)
		}
	}

	return out
}

// Locations returns the files every found profile was read from.
func (res Resolution) Locations() []string {
	var out []string

	for _, l := range res.All() {
		if l.Found() && l.Location != "" && !slices.Contains(out, l.Location) {
			out = append(out, l.Location)
		}
	}

	return out
}
