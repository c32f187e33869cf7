// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
)

// csvHeader is the first row of the member export.
var csvHeader = []string{"Membership number", "First name", "Last name", "E-mail"}

// Exporter writes the authoritative set for manual reconciliation.
type Exporter struct {
	directory port.DirectorySource
	filter    model.GroupFilter
	logger    *slog.Logger
	now       func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportGroupFilter restricts the export to one group.
func WithExportGroupFilter(filter model.GroupFilter) ExporterOption {
	return func(e *Exporter) { e.filter = filter }
}

// WithExportLogger injects the logger.
func WithExportLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExportClock overrides the clock used for headers and file names.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExporter creates an Exporter reading from the directory.
func NewExporter(directory port.DirectorySource, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		directory: directory,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultFilename returns emails_<stamp>.txt or members_<stamp>.csv.
func (e *Exporter) DefaultFilename(asCSV bool) string {
	stamp := e.now().Format("20060102_150405")
	if asCSV {
		return "members_" + stamp + ".csv"
	}
	return "emails_" + stamp + ".txt"
}

// ExportEmails writes the sorted active addresses, one per line, below a
// commented header. It returns the number of addresses written.
func (e *Exporter) ExportEmails(ctx context.Context, w io.Writer) (int, error) {
	emails, err := e.directory.FetchActiveEmails(ctx, e.filter)
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Directory e-mail export from %s\n", e.now().Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "# Active members: %d\n", emails.Len())
	b.WriteString("#\n")
	b.WriteString("# These addresses should be configured as forwarding addresses:\n")
	b.WriteString("#\n\n")
	for _, email := range emails.Sorted() {
		b.WriteString(email.String())
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return 0, err
	}

	e.logger.InfoContext(ctx, "exported active addresses", "count", emails.Len())
	return emails.Len(), nil
}

// ExportMembersCSV writes active members as semicolon separated values
// sorted by address. It returns the number of rows written.
func (e *Exporter) ExportMembersCSV(ctx context.Context, w io.Writer) (int, error) {
	members, err := e.directory.FetchActiveMembers(ctx, e.filter)
	if err != nil {
		return 0, err
	}

	slices.SortStableFunc(members, func(a, b model.MemberRecord) int {
		return strings.Compare(string(a.Email), string(b.Email))
	})

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for _, m := range members {
		row := []string{
			m.MembershipNumberOrEmpty(),
			m.FirstNameOrEmpty(),
			m.LastNameOrEmpty(),
			m.Email.String(),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	e.logger.InfoContext(ctx, "exported active members", "count", len(members))
	return len(members), nil
}
