package definition

import (
	"slices"

	"github.com/ardnew/cmdproc/args"
)

// Names of the options added to every command.
const (
	OptResponseFormatJSON = "response-format-json"
	OptHelp               = "help"
	OptHelpJSON           = "help-json"
	OptShowInputsOnly     = "show-inputs-only"
	OptDisableDefaults    = "disable-defaults"
)

// ProfileOption returns the name and alias of the option that selects the
// profile of the given type, such as "zosmf-profile" and "zosmf-p".
func ProfileOption(typ string) (name, alias string) {
	return typ + "-profile", typ + "-p"
}

func universalOptions(c *Command) []Option {
	opts := []Option{
		{
			Name:        OptResponseFormatJSON,
			Aliases:     []string{"rfj"},
			Description: "Produce JSON formatted data from a command",
			Type:        TypeBoolean,
		},
		{
			Name:        OptHelp,
			Aliases:     []string{"h"},
			Description: "Display help text",
			Type:        TypeBoolean,
		},
		{
			Name:        OptHelpJSON,
			Description: "Display the command definition as JSON",
			Type:        TypeBoolean,
		},
		{
			Name:        OptShowInputsOnly,
			Description: "Show command inputs and do not run the command",
			Type:        TypeBoolean,
		},
		{
			Name:        OptDisableDefaults,
			Description: "Do not apply default option values",
			Type:        TypeBoolean,
		},
	}

	for _, typ := range c.ProfileTypes() {
		if c.Profile != nil && slices.Contains(c.Profile.SuppressOptions, typ) {
			continue
		}

		name, alias := ProfileOption(typ)
		opts = append(opts, Option{
			Name:        name,
			Aliases:     []string{alias},
			Description: "The name of a (" + typ + ") profile to load for this command execution.",
			Type:        TypeString,
		})
	}

	// Declared options take precedence over universal ones with the same name.
	return slices.DeleteFunc(opts, func(u Option) bool {
		for _, o := range c.Options {
			if args.Format(o.Name).Kebab == args.Format(u.Name).Kebab {
				return true
			}
		}

		return false
	})
}
