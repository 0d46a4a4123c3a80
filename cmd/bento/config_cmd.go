// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bento-baas/bento/internal/config"
	"github.com/bento-baas/bento/internal/xdg"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and describe the config file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	return cmd
}

// configTarget returns the path named by --config, or the XDG default.
func configTarget() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.DefaultConfigFile()
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file populated with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configTarget()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return oops.Code("CONFIG_EXISTS").With("path", path).
					Errorf("config file already exists (use --force to overwrite)")
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
			}

			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file against the schema and value rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configTarget()
			if err != nil {
				return err
			}
			if _, err := config.Load(path, nil); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}
