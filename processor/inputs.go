package processor

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/censor"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/response"
)

// Inputs is the report written for --show-inputs-only.
type Inputs struct {
	CommandValues    map[string]any `yaml:"commandValues"              json:"commandValues"`
	RequiredProfiles []string       `yaml:"requiredProfiles,omitempty" json:"requiredProfiles,omitempty"`
	OptionalProfiles []string       `yaml:"optionalProfiles,omitempty" json:"optionalProfiles,omitempty"`
	Locations        []string       `yaml:"locations,omitempty"        json:"locations,omitempty"`
}

// showInputs writes the resolved inputs of the command instead of running
// it. Secure values are masked unless <PREFIX>_SHOW_SECURE_ARGS is set.
func (inv *invocation) showInputs(
	ctx context.Context,
	resp *response.Envelope,
	prepared Prepared,
	policy *censor.Policy,
) {
	values := prepared.Args.Map()
	show := censor.ShowSecure(inv.envPrefix, inv.lookupEnv)

	if !show {
		values = policy.Args(prepared.Args)
	}

	f := args.Format(definition.OptShowInputsOnly)
	for _, k := range []string{args.ProgramKey, args.PositionalsKey, f.Kebab, f.Camel} {
		delete(values, k)
	}

	in := Inputs{
		CommandValues: values,
		Locations:     inv.locations(prepared),
	}

	if decl := inv.def.Profile; decl != nil {
		in.RequiredProfiles = slices.Clone(decl.Required)
		in.OptionalProfiles = slices.Clone(decl.Optional)
	}

	text, err := yaml.MarshalContext(ctx, in)
	if err != nil {
		inv.unexpected(resp, "Unexpected error showing inputs", err)

		return
	}

	resp.Console().Log(strings.TrimRight(string(text), "\n"))

	masked := slices.ContainsFunc(slices.Collect(maps.Values(values)), func(v any) bool {
		return v == censor.CensorResponse
	})

	if masked {
		resp.Console().Errorf("Some inputs are not displayed, because they may contain secure values. "+
			"You can disable this by setting the environment variable %s_%s to true.",
			inv.envPrefix, censor.EnvShowSecureArgs)
	}

	data := map[string]any{"commandValues": in.CommandValues}

	for k, v := range map[string][]string{
		"requiredProfiles": in.RequiredProfiles,
		"optionalProfiles": in.OptionalProfiles,
		"locations":        in.Locations,
	} {
		if len(v) > 0 {
			data[k] = v
		}
	}

	resp.Data().SetObj(data, false)
	resp.Data().SetMessage("Inputs of command " + inv.def.Name)
}

// locations lists the existing config layers and the files the profiles in
// use were read from.
func (inv *invocation) locations(prepared Prepared) []string {
	var out []string

	if inv.store.Exists() {
		for _, l := range inv.store.Layers() {
			if l.Exists && l.Path != "" && !slices.Contains(out, l.Path) {
				out = append(out, l.Path)
			}
		}
	}

	for _, loc := range prepared.Profiles.Locations() {
		if !slices.Contains(out, loc) {
			out = append(out, loc)
		}
	}

	return out
}
