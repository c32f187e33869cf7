// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/config"
	internalService "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/log"
)

// RootOptions holds global flags and the configuration loaded from them.
type RootOptions struct {
	EnvFile    string
	ConfigFile string
	Debug      bool
	Format     string // text | json | yaml

	lookup config.LookupFunc
	config config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{internalService.FormatText, internalService.FormatJSON, internalService.FormatYAML}

func newRootCommand(lookup config.LookupFunc) *cobra.Command {
	opts := &RootOptions{lookup: lookup}

	cmd := &cobra.Command{
		Use:   "mail-forward-sync",
		Short: "Synchronize mailbox forwarding addresses with the member directory",
		Long: `mail-forward-sync compares the e-mail addresses of all active members in
the easyVerein directory with the forwarding addresses configured on the
webmail account, and adds or removes forwarding addresses until both match.

Runs are dry by default; "sync --apply" performs the changes.

Exit codes:
  0 - Success
  1 - Run failed or a connection check failed
  2 - Configuration or command error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", "", "path to a .env file (default ./.env if present)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", internalService.FormatText, "report format (text|json|yaml)")

	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// init validates the flags, loads the configuration and sets up logging.
func (o *RootOptions) init(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(config.Options{
		EnvFile:    o.EnvFile,
		ConfigFile: o.ConfigFile,
		Lookup:     o.lookup,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "configuration error", err)
	}
	o.config = cfg

	level := cfg.Log.Level
	if o.Debug {
		level = "debug"
	}
	o.logger = log.InitStructureLogConfig(log.Options{
		Level:     level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Writer:    cmd.ErrOrStderr(),
	})
	return nil
}
