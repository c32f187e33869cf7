// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	internalService "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/service"
)

const defaultHistoryLimit = 20

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// historyEntry is the machine readable form of a recorded run.
type historyEntry struct {
	RunID        string `json:"run_id" yaml:"run_id"`
	Kind         string `json:"kind" yaml:"kind"`
	State        string `json:"state" yaml:"state"`
	LastState    string `json:"last_state" yaml:"last_state"`
	DryRun       bool   `json:"dry_run" yaml:"dry_run"`
	Members      int    `json:"members" yaml:"members"`
	Forwarded    int    `json:"forwarded" yaml:"forwarded"`
	ToAdd        int    `json:"to_add" yaml:"to_add"`
	ToRemove     int    `json:"to_remove" yaml:"to_remove"`
	Added        int    `json:"added" yaml:"added"`
	Removed      int    `json:"removed" yaml:"removed"`
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Timestamp    string `json:"timestamp" yaml:"timestamp"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync and compare runs",
		Long: `List the most recent runs recorded in the run history database
configured with HISTORY_DB, newest first.

Examples:
  mail-forward-sync history
  mail-forward-sync history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", defaultHistoryLimit, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if opts.config.Outputs.HistoryDB == "" {
		return NewExitError(ExitCommandError, "HISTORY_DB is not set")
	}
	recorder, err := service.RunRecorder(ctx, opts.config)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open run history", err)
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			opts.logger.WarnContext(ctx, "failed to close run history", "error", err)
		}
	}()

	runs, err := recorder.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot read run history", err)
	}

	if err := writeHistory(cmd.OutOrStdout(), opts.Format, runs); err != nil {
		return WrapExitError(ExitCommandError, "cannot write report", err)
	}
	return nil
}

func writeHistory(w io.Writer, format string, runs []port.RunRecord) error {
	entries := make([]historyEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, historyEntry{
			RunID:        r.RunID,
			Kind:         string(r.Kind),
			State:        string(r.State),
			LastState:    string(r.LastState),
			DryRun:       r.DryRun,
			Members:      r.AuthoritativeCount,
			Forwarded:    r.TargetCount,
			ToAdd:        r.ToAddCount,
			ToRemove:     r.ToRemoveCount,
			Added:        r.Added,
			Removed:      r.Removed,
			ErrorMessage: r.ErrorMessage,
			Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case internalService.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case internalService.FormatYAML:
		return yaml.NewEncoder(w).Encode(entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tKIND\tSTATE\tDRY RUN\tMEMBERS\tFORWARDED\t+/-\tAPPLIED\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\t+%d/-%d\t+%d/-%d\t%s\n",
			e.Timestamp, e.Kind, e.State, e.DryRun, e.Members, e.Forwarded,
			e.ToAdd, e.ToRemove, e.Added, e.Removed, e.ErrorMessage)
	}
	return tw.Flush()
}
