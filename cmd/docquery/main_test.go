// Package main provides tests for the docquery CLI.
package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/datquest/docquery/internal/cli"
	"github.com/datquest/docquery/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Setenv("DOCQUERY_STATE_PATH", filepath.Join(t.TempDir(), "state.db"))

	var out bytes.Buffer
	err := cli.ExecuteWith(context.Background(), cli.NewRootCmd(), args, &out, &out)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docquery v")
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)

	for _, expected := range []string{"upload", "ask", "companies", "models", "select", "session", "shell", "serve"} {
		assert.Contains(t, out, expected)
	}
}

func TestUnknownCommand(t *testing.T) {
	out, err := run(t, "frobnicate")
	require.Error(t, err)
	assert.Contains(t, out, "Error: unknown command")
}
