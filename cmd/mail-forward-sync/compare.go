// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Live bool
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare [FILE]",
		Short: "Compare the directory with a snapshot file or the live target",
		Long: `Compare the active directory members with an address list file, for
example an earlier export, or with the live forwarding target (--live).
Nothing is modified.

Examples:
  mail-forward-sync compare emails_20240309_140507.txt
  mail-forward-sync compare --live`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.Live && len(args) > 0:
				return NewExitError(ExitCommandError, "either FILE or --live, not both")
			case !opts.Live && len(args) != 1:
				return NewExitError(ExitCommandError, "compare needs a FILE or --live")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Live, "live", false, "compare with the live forwarding target")

	return cmd
}

func runCompare(opts *CompareOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := opts.config

	directory, err := service.DirectorySource(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot initialize directory source", err)
	}

	var target port.ForwardingTarget
	if opts.Live {
		target, err = service.ForwardingTarget(ctx, cfg)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot initialize forwarding target", err)
		}
	} else {
		target = service.SnapshotTarget(args[0])
	}

	s := opts.openSinks(ctx, cfg)
	defer opts.closeSinks(ctx, s)

	synchronizer, reporter := opts.synchronizer(cmd, cfg, directory, target, s)
	result := synchronizer.Compare(ctx)

	if err := reporter.ReportResult(result); err != nil {
		return WrapExitError(ExitCommandError, "cannot write report", err)
	}
	if !result.Success {
		return NewExitError(ExitFailure, "comparison failed")
	}
	return nil
}
