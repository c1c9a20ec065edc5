package censor

import (
	"os"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/ardnew/cmdproc/args"
	"github.com/ardnew/cmdproc/config"
	"github.com/ardnew/cmdproc/definition"
	"github.com/ardnew/cmdproc/profiles"
)

// CensorResponse replaces every masked value.
const CensorResponse = "****"

// DefaultCensoredOptions are masked when no config store is active.
var DefaultCensoredOptions = []string{
	"auth",
	"pw",
	"pass",
	"password",
	"passphrase",
	"credentials",
	"authentication",
	"basicAuth",
	"tv",
	"tokenValue",
	"certFilePassphrase",
}

// SecurePromptOptions are prompted for with masked input.
var SecurePromptOptions = []string{
	"user",
	"password",
	"tokenValue",
	"passphrase",
	"keyPassphrase",
}

// Environment variable suffixes read with the processor's prefix.
const (
	EnvShowSecureArgs = "SHOW_SECURE_ARGS"
	EnvMaskOutput     = "MASK_OUTPUT"
)

// commandLineMasks are applied to the raw command line regardless of the
// config state.
var commandLineMasks = []*regexp.Regexp{
	regexp.MustCompile(`(?i)--(user|u) ([^\s]+)`),
	regexp.MustCompile(`(?i)--(password|pass|pw) ([^\s]+)`),
	regexp.MustCompile(`(?i)--(token-value|tokenValue|tv) ([^\s]+)`),
	regexp.MustCompile(`(?i)--(cert-key-file|certKeyFile) ([^\s]+)`),
	regexp.MustCompile(`(?i)--(cert-file-passphrase|certFilePassphrase) ([^\s]+)`),
}

// Options configures a [Policy].
type Options struct {
	// Store is the active config store, if any.
	Store *config.Store
	// ProfilesInUse names the config profiles selected for the invocation.
	ProfilesInUse []string
	// Definition contributes the options it declares secure.
	Definition *definition.Command
	// Schemas contributes the properties marked "secure: true".
	Schemas []profiles.TypeConfiguration
	// EnvPrefix and LookupEnv resolve the MASK_OUTPUT toggle.
	EnvPrefix string
	LookupEnv func(string) (string, bool)
}

// Policy is the set of secure option names of one invocation. The zero value
// masks nothing but the command line.
type Policy struct {
	secure     []string
	values     []*regexp.Regexp
	maskOutput bool
}

// New builds the policy for opts.
func New(opts Options) *Policy {
	p := &Policy{maskOutput: true}

	add := func(names ...string) {
		for _, name := range names {
			f := args.Format(name)
			for _, n := range []string{name, f.Kebab, f.Camel} {
				if n != "" && !slices.Contains(p.secure, n) {
					p.secure = append(p.secure, n)
				}
			}
		}
	}

	if opts.Store.Exists() {
		for _, name := range opts.ProfilesInUse {
			add(opts.Store.SecurePropsForProfile(name)...)
		}

		for _, v := range opts.Store.SecureValues() {
			p.values = append(p.values, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(v)))
		}
	} else {
		add(DefaultCensoredOptions...)
		add(SecurePromptOptions...)

		for _, tc := range opts.Schemas {
			add(schemaSecure(tc.Schema)...)
		}
	}

	if opts.Definition != nil {
		for _, opt := range opts.Definition.Options {
			if opt.Secure {
				add(opt.Name)
				add(opt.Aliases...)
			}
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup(opts.EnvPrefix + "_" + EnvMaskOutput); ok &&
		strings.EqualFold(strings.TrimSpace(v), "false") {
		p.maskOutput = false
	}

	return p
}

// schemaSecure returns the properties of a profile schema marked secure.
func schemaSecure(schema map[string]any) []string {
	props, _ := schema["properties"].(map[string]any)

	var out []string

	for name, v := range props {
		prop, _ := v.(map[string]any)
		if secure, _ := prop["secure"].(bool); secure {
			out = append(out, name)
		}
	}

	slices.Sort(out)

	return out
}

// Names returns the secure option names in every spelling.
func (p *Policy) Names() []string {
	if p == nil {
		return nil
	}

	return slices.Clone(p.secure)
}

// IsSecure reports whether values of the option name are masked.
func (p *Policy) IsSecure(name string) bool {
	return p != nil && slices.Contains(p.secure, name)
}

// Args returns the values of s with secure values masked. Any other key
// holding the same value as a secure key is masked too, which covers
// aliases that were not declared.
func (p *Policy) Args(s args.Set) map[string]any {
	out := s.Map()
	if p == nil {
		return out
	}

	for _, key := range s.Keys() {
		if !p.IsSecure(key) {
			continue
		}

		masked, ok := s.Get(key)
		if !ok {
			continue
		}

		for other, v := range out {
			if other == args.ProgramKey || other == args.PositionalsKey {
				continue
			}

			if other == key || reflect.DeepEqual(v, masked) {
				out[other] = CensorResponse
			}
		}
	}

	return out
}

// CLIArgs returns a copy of tokens with the token following each secure
// flag masked.
func (p *Policy) CLIArgs(tokens []string) []string {
	out := slices.Clone(tokens)
	if p == nil {
		return out
	}

	for _, name := range p.secure {
		flag := "--" + name
		if len(name) == 1 {
			flag = "-" + name
		}

		if i := slices.Index(tokens, flag); i >= 0 && i < len(tokens)-1 {
			out[i+1] = CensorResponse
		}
	}

	return out
}

// CommandLine masks the well-known credential flags of a raw command line.
func CommandLine(line string) string {
	for _, re := range commandLineMasks {
		line = re.ReplaceAllString(line, "--$1 "+CensorResponse)
	}

	return line
}

// CommandLine masks the well-known credential flags of line and the value
// following any other secure flag of p.
func (p *Policy) CommandLine(line string) string {
	line = CommandLine(line)
	if p == nil {
		return line
	}

	return strings.Join(p.CLIArgs(strings.Split(line, " ")), " ")
}

// ShowSecure reports whether <prefix>_SHOW_SECURE_ARGS disables masking of
// the show-inputs output.
func ShowSecure(prefix string, lookup func(string) (string, bool)) bool {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	v, ok := lookup(prefix + "_" + EnvShowSecureArgs)
	if !ok {
		return false
	}

	v = strings.ToLower(strings.TrimSpace(v))

	return v == "true" || v == "1"
}

// Raw masks the literal values of secure config properties in text, unless
// <prefix>_MASK_OUTPUT=FALSE.
func (p *Policy) Raw(text string) string {
	if p == nil || !p.maskOutput {
		return text
	}

	return p.Mask(text)
}

// Mask masks the literal values of secure config properties in text
// regardless of the MASK_OUTPUT toggle.
func (p *Policy) Mask(text string) string {
	if p == nil {
		return text
	}

	for _, re := range p.values {
		text = re.ReplaceAllString(text, CensorResponse)
	}

	return text
}
