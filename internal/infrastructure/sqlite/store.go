// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlite records finished runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// timestampLayout has a fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the run history.
type Store struct {
	db *sql.DB
}

var _ port.RunRecorder = (*Store)(nil)

// Open creates or opens the history database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("cannot open history database %s", path), err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewConfiguration(fmt.Sprintf("cannot open history database %s", path), err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.NewUnexpected("failed to configure history database", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.NewUnexpected("failed to apply history schema", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores the run summary and its planned changes in one transaction.
func (s *Store) RecordRun(ctx context.Context, result model.SyncResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewUnexpected("failed to begin history transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, kind, state, last_state, dry_run,
			authoritative_count, target_count, to_add_count, to_remove_count,
			added, removed, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		string(result.Kind),
		string(result.State()),
		string(result.LastState),
		result.DryRun,
		len(result.Diff.AuthoritativeEmails),
		len(result.Diff.TargetEmails),
		len(result.Diff.ToAdd),
		len(result.Diff.ToRemove),
		result.Added,
		result.Removed,
		result.ErrorMessage,
		result.Duration.Milliseconds(),
		result.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return errors.NewUnexpected("failed to record run", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_changes (run_id, action, email) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.NewUnexpected("failed to prepare change insert", err)
	}
	defer stmt.Close()

	changes := []struct {
		action string
		emails model.EmailSet
	}{
		{action: "remove", emails: result.Diff.ToRemove},
		{action: "add", emails: result.Diff.ToAdd},
	}
	for _, c := range changes {
		for _, email := range c.emails.Strings() {
			if _, err = stmt.ExecContext(ctx, result.RunID, c.action, email); err != nil {
				return errors.NewUnexpected("failed to record run change", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.NewUnexpected("failed to commit run history", err)
	}

	slog.DebugContext(ctx, "run recorded",
		"run_id", result.RunID,
		"changes", len(result.Diff.ToAdd)+len(result.Diff.ToRemove),
	)
	return nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]port.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, state, last_state, dry_run,
		       authoritative_count, target_count, to_add_count, to_remove_count,
		       added, removed, error_message, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewUnexpected("failed to query run history", err)
	}
	defer rows.Close()

	var records []port.RunRecord
	for rows.Next() {
		var r port.RunRecord
		var kind, state, lastState, createdAt string
		if err := rows.Scan(
			&r.RunID, &kind, &state, &lastState, &r.DryRun,
			&r.AuthoritativeCount, &r.TargetCount, &r.ToAddCount, &r.ToRemoveCount,
			&r.Added, &r.Removed, &r.ErrorMessage, &createdAt,
		); err != nil {
			return nil, errors.NewUnexpected("failed to read run history", err)
		}
		r.Kind = model.RunKind(kind)
		r.State = model.RunState(state)
		r.LastState = model.RunState(lastState)
		r.Timestamp, err = time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, errors.NewUnexpected(fmt.Sprintf("invalid timestamp for run %s", r.RunID), err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewUnexpected("failed to read run history", err)
	}
	return records, nil
}

// Changes returns the planned changes of one run as action -> addresses.
func (s *Store) Changes(ctx context.Context, runID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, email FROM run_changes WHERE run_id = ? ORDER BY action, email`, runID)
	if err != nil {
		return nil, errors.NewUnexpected("failed to query run changes", err)
	}
	defer rows.Close()

	changes := make(map[string][]string)
	for rows.Next() {
		var action, email string
		if err := rows.Scan(&action, &email); err != nil {
			return nil, errors.NewUnexpected("failed to read run changes", err)
		}
		changes[action] = append(changes[action], email)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewUnexpected("failed to read run changes", err)
	}
	return changes, nil
}
