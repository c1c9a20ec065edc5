package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/cmdproc/definition"
)

func TestTree_Run(t *testing.T) {
	h := newRunHarness(t)

	require.NoError(t, (&Tree{}).Run(context.Background(), h.g))

	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "name: app\n"))
	assert.Contains(t, out, "name: boom")
	assert.Contains(t, out, "handler: builtin:echo")
}

func TestTree_Run_Subtree(t *testing.T) {
	h := newRunHarness(t)

	require.NoError(t, (&Tree{Path: []string{"tools"}, JSON: true}).Run(context.Background(), h.g))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	assert.Equal(t, "tools", doc["name"])
	assert.Len(t, doc["children"], 2)
}

func TestTree_Run_NotFound(t *testing.T) {
	h := newRunHarness(t)

	err := (&Tree{Path: []string{"tools", "nope"}}).Run(context.Background(), h.g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, definition.ErrCommandNotFound))
}
