// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
	internalService "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/service"
)

// stdoutPath selects standard output as the export destination.
const stdoutPath = "-"

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	CSV    bool
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the addresses of all active members",
		Long: `Export the e-mail addresses of all active members as a text file, one
address per line, or the member details as semicolon separated CSV (--csv).
Without -o the file is named emails_<timestamp>.txt or members_<timestamp>.csv.

Examples:
  mail-forward-sync export
  mail-forward-sync export --csv -o members.csv
  mail-forward-sync export -o -`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.CSV, "csv", false, "export member details as CSV")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", `output file ("-" for stdout)`)

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	cfg := opts.config

	directory, err := service.DirectorySource(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot initialize directory source", err)
	}
	exporter := internalService.NewExporter(directory,
		internalService.WithExportGroupFilter(cfg.GroupFilter()),
		internalService.WithExportLogger(opts.logger),
	)

	if err := directory.Probe(ctx); err != nil {
		return WrapExitError(ExitFailure, "directory connection failed", err)
	}

	path := opts.Output
	if path == "" {
		path = exporter.DefaultFilename(opts.CSV)
	}

	var w io.Writer = cmd.OutOrStdout()
	if path != stdoutPath {
		f, ferr := os.Create(path)
		if ferr != nil {
			return WrapExitError(ExitCommandError, "cannot create export file", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = WrapExitError(ExitFailure, "cannot write export file", cerr)
			}
		}()
		w = f
	}

	var count int
	if opts.CSV {
		count, err = exporter.ExportMembersCSV(ctx, w)
	} else {
		count, err = exporter.ExportEmails(ctx, w)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	if path != stdoutPath {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d active members to %s\n", count, path)
	}
	return nil
}
