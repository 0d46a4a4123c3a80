// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastArgon2 keeps hashing cheap in command tests.
const fastArgon2 = `
password:
  argon2:
    memory_kib: 64
    threads: 1
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin *bytes.Buffer, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() { configFile = "" })

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	names := map[string]*cobra.Command{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = sub
	}
	for _, want := range []string{"serve", "hash-password", "config"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRootCmd_Help(t *testing.T) {
	stdout, _, err := execute(t, nil, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "bento")
	assert.Contains(t, stdout, "serve")
}
