// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/config"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for admin.password_hash",
		Long: `Read a password (prompting without echo on a terminal, otherwise the
first line of stdin) and print its argon2id hash using the configured cost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHashPasswordWithDeps(cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runHashPasswordWithDeps(cmd *cobra.Command, deps *HashDeps) error {
	if deps == nil {
		deps = &HashDeps{}
	}
	if deps.IsTerminal == nil {
		deps.IsTerminal = term.IsTerminal
	}
	if deps.ReadPassword == nil {
		deps.ReadPassword = term.ReadPassword
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Wrapf(err, "load config")
	}

	password, err := readPassword(cmd, deps)
	if err != nil {
		return err
	}
	if err := cfg.AuthConfig().Password.Validate(password); err != nil {
		return err
	}

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return oops.Code("HASH_PASSWORD_FAILED").Wrap(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// readPassword prompts on a terminal stdin and reads one line otherwise.
func readPassword(cmd *cobra.Command, deps *HashDeps) (string, error) {
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && deps.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		cmd.PrintErr("Password: ")
		raw, err := deps.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		cmd.PrintErrln()
		if err != nil {
			return "", oops.Code("HASH_PASSWORD_READ_FAILED").Wrap(err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("HASH_PASSWORD_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
