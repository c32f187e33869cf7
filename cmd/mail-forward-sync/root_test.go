// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand(nil)
	require.NotNil(t, cmd)
	assert.Equal(t, "mail-forward-sync", cmd.Use)
	assert.Contains(t, cmd.Long, "Exit codes")
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand(nil)
	commands := []string{"export", "compare", "sync", "test", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand(nil)

	tests := []struct {
		flag     string
		defValue string
	}{
		{flag: "env", defValue: ""},
		{flag: "config", defValue: ""},
		{flag: "debug", defValue: "false"},
		{flag: "format", defValue: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.PersistentFlags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.defValue, f.DefValue)
		})
	}
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command   string
		flag      string
		shorthand string
		defValue  string
	}{
		{command: "sync", flag: "apply", defValue: "false"},
		{command: "compare", flag: "live", defValue: "false"},
		{command: "export", flag: "csv", defValue: "false"},
		{command: "export", flag: "output", shorthand: "o", defValue: ""},
		{command: "test", flag: "target-only", defValue: "false"},
		{command: "history", flag: "limit", defValue: "20"},
	}

	for _, tt := range tests {
		t.Run(tt.command+" --"+tt.flag, func(t *testing.T) {
			cmd := newRootCommand(nil)
			subCmd, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			f := subCmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.defValue, f.DefValue)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "failure", err: NewExitError(ExitFailure, "failed"), want: ExitFailure},
		{name: "wrapped", err: WrapExitError(ExitCommandError, "bad", errors.New("cause")), want: ExitCommandError},
		{name: "plain error", err: errors.New("unknown flag"), want: ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapExitError(ExitFailure, "directory connection failed", cause)

	assert.Equal(t, "directory connection failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "synchronization failed", NewExitError(ExitFailure, "synchronization failed").Error())
}
