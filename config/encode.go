package config

import (
	"bytes"
	"context"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmdproc/pkg"
)

// Encode renders doc in the format selected by ext.
func Encode(ctx context.Context, ext string, doc map[string]any) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, pkg.ErrInvalidFormat.Wrap(err)
		}

		return buf.Bytes(), nil

	case ".json":
		data, err := yaml.MarshalContext(ctx, doc, yaml.JSON())
		if err != nil {
			return nil, pkg.ErrJSONMarshal.Wrap(err)
		}

		return data, nil

	default:
		data, err := yaml.MarshalContext(ctx, doc, yaml.Indent(2))
		if err != nil {
			return nil, pkg.ErrYAMLMarshal.Wrap(err)
		}

		return data, nil
	}
}

// Starter returns the document written by the init command: an example
// profile with a secure property, its default, and the cli section.
func Starter(profileType string) map[string]any {
	return map[string]any{
		"profiles": map[string]any{
			profileType: map[string]any{
				"type": profileType,
				"properties": map[string]any{
					"host": "localhost",
					"port": 443,
				},
				"secure": []any{"password"},
			},
		},
		"defaults": map[string]any{
			profileType: profileType,
		},
		"cli": map[string]any{
			"log-level":  "info",
			"log-format": "text",
		},
	}
}
