// Package profiles loads the configuration profiles a command declares.
//
// Profiles come from two places. The layered [config.Store] holds named
// profiles in its documents. The legacy [Manager] holds one YAML file per
// profile under a directory per type:
//
//	<root>/<type>/<type>_meta.yaml   defaultProfile and type configuration
//	<root>/<type>/<name>.yaml        profile properties and dependencies
//
// [Resolver.Resolve] picks, for each declared type, a profile from the store
// when the store has it and from the legacy files otherwise, then extracts
// option values from the loaded profiles.
//
// Legacy profiles may depend on profiles of other types. Dependencies are
// loaded recursively, and a [LoadCounter] owned by one resolution detects a
// profile that is reached twice along the same chain.
package profiles
