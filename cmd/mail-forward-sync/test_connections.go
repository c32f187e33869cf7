// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	internalService "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/service"
)

// Connection check statuses.
const (
	CheckOK            = "ok"
	CheckFailed        = "failed"
	CheckNotConfigured = "not_configured"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	TargetOnly bool
}

// ConnectionCheck is the outcome of probing one collaborator.
type ConnectionCheck struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the connections to the directory and the forwarding target",
		Long: `Connect to the directory and the forwarding target and verify the
credentials. Nothing is read or modified beyond the login.

Examples:
  mail-forward-sync test
  mail-forward-sync test --target-only`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTest(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.TargetOnly, "target-only", false, "test only the forwarding target")

	return cmd
}

func runTest(opts *TestOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := opts.config

	target, err := service.ForwardingTarget(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot initialize forwarding target", err)
	}

	var directory port.DirectorySource
	if !opts.TargetOnly {
		directory, err = service.DirectorySource(ctx, cfg)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot initialize directory source", err)
		}
	}

	// both probes always run to completion
	checks := make([]ConnectionCheck, 2)
	var g errgroup.Group

	if directory != nil {
		g.Go(func() error {
			err := directory.Probe(ctx)
			checks[0] = check("directory", err)
			return err
		})
	}
	g.Go(func() error {
		if target == nil {
			checks[1] = ConnectionCheck{Name: "target", Status: CheckNotConfigured}
			return nil
		}
		err := target.Probe(ctx)
		if rerr := target.Release(context.WithoutCancel(ctx)); rerr != nil {
			opts.logger.WarnContext(ctx, "failed to release forwarding target", "error", rerr)
		}
		checks[1] = check("target", err)
		return err
	})
	probeErr := g.Wait()

	if directory == nil {
		checks = checks[1:]
	}
	if err := writeChecks(cmd.OutOrStdout(), opts.Format, checks); err != nil {
		return WrapExitError(ExitCommandError, "cannot write report", err)
	}

	if probeErr != nil {
		return WrapExitError(ExitFailure, "connection test failed", probeErr)
	}
	if opts.TargetOnly && target == nil {
		return NewExitError(ExitFailure, "connection test failed: forwarding target not configured")
	}
	return nil
}

func check(name string, err error) ConnectionCheck {
	if err != nil {
		return ConnectionCheck{Name: name, Status: CheckFailed, Error: err.Error()}
	}
	return ConnectionCheck{Name: name, Status: CheckOK}
}

func writeChecks(w io.Writer, format string, checks []ConnectionCheck) error {
	switch format {
	case internalService.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(checks)
	case internalService.FormatYAML:
		return yaml.NewEncoder(w).Encode(checks)
	}

	for _, c := range checks {
		switch c.Status {
		case CheckOK:
			fmt.Fprintf(w, "%-10s OK\n", c.Name+":")
		case CheckNotConfigured:
			fmt.Fprintf(w, "%-10s not configured (TARGET_EMAIL and TARGET_PASSWORD)\n", c.Name+":")
		default:
			fmt.Fprintf(w, "%-10s FAILED: %s\n", c.Name+":", c.Error)
		}
	}
	return nil
}
