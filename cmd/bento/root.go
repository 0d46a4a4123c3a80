// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"github.com/spf13/cobra"
)

// configFile is the --config persistent flag shared by all subcommands.
var configFile string

// NewRootCmd creates the root command for the bento CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bento",
		Short: "Bento - in-memory account and session store",
		Long: `Bento keeps user accounts, argon2id password hashes and bearer-token
sessions in memory and enforces role-based authorization over them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default: $XDG_CONFIG_HOME/bento/config.yaml when present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
