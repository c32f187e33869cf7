// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Apply bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring the forwarding addresses in line with the directory",
		Long: `Compare the directory with the forwarding target and report the difference.
With --apply the missing addresses are added and the obsolete ones removed.

Examples:
  mail-forward-sync sync
  mail-forward-sync sync --apply
  mail-forward-sync sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "perform the changes (default is a dry run)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg := opts.config
	if opts.Apply {
		cfg = cfg.WithDryRun(false)
	}

	directory, err := service.DirectorySource(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot initialize directory source", err)
	}
	target, err := service.ForwardingTarget(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot initialize forwarding target", err)
	}

	s := opts.openSinks(ctx, cfg)
	defer opts.closeSinks(ctx, s)

	synchronizer, reporter := opts.synchronizer(cmd, cfg, directory, target, s)
	result := synchronizer.Sync(ctx)

	if err := reporter.ReportResult(result); err != nil {
		return WrapExitError(ExitCommandError, "cannot write report", err)
	}
	if !result.Success {
		return NewExitError(ExitFailure, "synchronization failed")
	}
	return nil
}
