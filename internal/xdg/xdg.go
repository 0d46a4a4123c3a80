// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package xdg resolves XDG Base Directory paths for bento.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "bento"

// ConfigFileName is the name of the config file inside ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns $XDG_CONFIG_HOME/bento, falling back to ~/.config/bento.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_NO_HOME").Wrapf(err, "resolve config dir")
	}
	return filepath.Join(home, ".config", appName), nil
}

// DefaultConfigFile returns the config file path used when --config is not given.
func DefaultConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
