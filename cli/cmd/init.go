package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/handler/builtin"
	"github.com/ardnew/cmdproc/log"
	"github.com/ardnew/cmdproc/pkg"
	"github.com/ardnew/cmdproc/profiles"
)

// StarterProfileType is the profile type created by init.
const StarterProfileType = "service"

// Init writes a starter configuration file, command definition tree, and
// profile type.
type Init struct {
	Force bool `help:"Overwrite existing files" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	confDir := pkg.ConfigDir()
	if ktx := kongContextFrom(ctx); ktx != nil {
		if dir, ok := ktx.Model.Vars()[ConfigIdentifier]; ok {
			confDir = dir
		}
	}

	confPath := filepath.Join(confDir, pkg.Prefix()+".config.yaml")

	for _, path := range []string{confPath, g.Definition} {
		if _, err := os.Stat(path); err == nil && !i.Force {
			return ErrWriteConfig.
				With(slog.String("file", path)).
				With(slog.Bool("exists", true)).
				Wrap(ErrFileExists)
		}
	}

	if err := i.write(ctx, confPath, config.Starter(StarterProfileType)); err != nil {
		return err
	}

	if err := i.write(ctx, g.Definition, StarterTree(pkg.Prefix())); err != nil {
		return err
	}

	err = profiles.NewManager(g.ProfilesDir).SaveType(ctx, StarterType())
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("dir", g.ProfilesDir)).
			Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration",
		slog.String("config", confPath),
		slog.String("definition", g.Definition),
		slog.String("profiles", g.ProfilesDir),
	)

	return nil
}

func (i *Init) write(ctx context.Context, path string, doc map[string]any) error {
	data, err := config.Encode(ctx, filepath.Ext(path), doc)
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), profiles.DirMode); err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	if err := os.WriteFile(path, data, profiles.FileMode); err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	return nil
}

// StarterTree returns the command definition tree written by init: a group
// named root with one command per built-in handler.
func StarterTree(root string) map[string]any {
	profile := map[string]any{"optional": []any{StarterProfileType}}

	return map[string]any{
		"name":    root,
		"type":    "group",
		"summary": "Starter commands",
		"children": []any{
			map[string]any{
				"name":    "echo",
				"type":    "command",
				"summary": "Print a message or the resolved arguments",
				"handler": builtin.Echo,
				"profile": profile,
				"options": []any{
					map[string]any{"name": builtin.OptMessage, "type": "string", "aliases": []any{"m"}},
					map[string]any{"name": "host", "type": "string"},
					map[string]any{"name": "port", "type": "number"},
					map[string]any{"name": "password", "type": "string", "secure": true},
				},
				"examples": []any{
					map[string]any{"description": "Say hello", "options": "--message hello"},
				},
			},
			map[string]any{
				"name":    "data",
				"type":    "command",
				"summary": "Return a data object built from --set key=value items",
				"handler": builtin.Data,
				"options": []any{
					map[string]any{"name": builtin.OptSet, "type": "array"},
					map[string]any{"name": builtin.OptMessage, "type": "string"},
				},
			},
		},
	}
}

// StarterType returns the profile type written by init.
func StarterType() profiles.TypeConfiguration {
	return profiles.TypeConfiguration{
		Type: StarterProfileType,
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"host":     map[string]any{"type": "string"},
				"port":     map[string]any{"type": "integer"},
				"password": map[string]any{"type": "string", "secure": true},
			},
		},
	}
}
