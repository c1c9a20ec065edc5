// Package cmd provides the subcommands of the bootstrap CLI: run, tree, and
// init.
package cmd

var (
	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration directory.
	ConfigIdentifier = "config"

	// DefinitionIdentifier is the kong variable identifier containing the
	// default path of the command definition tree.
	DefinitionIdentifier = "definition"

	// ProfilesIdentifier is the kong variable identifier containing the
	// default directory of the legacy profile files.
	ProfilesIdentifier = "profiles"

	// EnvPrefixIdentifier is the kong variable identifier containing the
	// default environment variable prefix.
	EnvPrefixIdentifier = "envPrefix"

	// PromptPhraseIdentifier is the kong variable identifier containing the
	// default prompt phrase.
	PromptPhraseIdentifier = "promptPhrase"
)
