package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339

// Run operations

// RecordRun stores a run and its per-project outcomes in one transaction
// and returns the new run ID.
func (s *Store) RecordRun(run *Run, projects []RunProject) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO runs (started_at, root, mode, estimated_bytes, freed_bytes, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartedAt.Format(timeLayout),
		run.Root,
		run.Mode,
		run.Estimated,
		run.Freed,
		run.Succeeded,
		run.Failed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", translate(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_projects
		(run_id, kind, name, root_path, build_path, bytes, status, reason, trashed_path, deleted_at, restored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare project insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		var deletedAt any
		if !p.DeletedAt.IsZero() {
			deletedAt = p.DeletedAt.Format(timeLayout)
		}
		if _, err := stmt.Exec(id, p.Kind, p.Name, p.RootPath, p.BuildPath, p.Bytes, p.Status, p.Reason, p.TrashedPath, deletedAt); err != nil {
			return 0, fmt.Errorf("failed to insert project %s: %w", p.BuildPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

const runColumns = `id, started_at, root, mode, estimated_bytes, freed_bytes, succeeded, failed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	if err := row.Scan(
		&run.ID,
		&startedAt,
		&run.Root,
		&run.Mode,
		&run.Estimated,
		&run.Freed,
		&run.Succeeded,
		&run.Failed,
	); err != nil {
		return nil, err
	}

	var err error
	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id int64) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, translate(err))
	}
	return run, nil
}

// LatestRun returns the most recently recorded run.
func (s *Store) LatestRun() (*Run, error) {
	row := s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no runs recorded", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", translate(err))
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of 0 returns all runs.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", translate(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Project operations

// GetRunProjects returns the per-project outcomes of a run in insertion order.
func (s *Store) GetRunProjects(runID int64) ([]*RunProject, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, kind, COALESCE(name, ''), root_path, build_path, bytes, status,
		       COALESCE(reason, ''), COALESCE(trashed_path, ''), deleted_at, restored
		FROM run_projects
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects for run %d: %w", runID, translate(err))
	}
	defer rows.Close()

	var projects []*RunProject
	for rows.Next() {
		var p RunProject
		var deletedAt sql.NullString
		if err := rows.Scan(
			&p.ID,
			&p.RunID,
			&p.Kind,
			&p.Name,
			&p.RootPath,
			&p.BuildPath,
			&p.Bytes,
			&p.Status,
			&p.Reason,
			&p.TrashedPath,
			&deletedAt,
			&p.Restored,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		if deletedAt.Valid {
			p.DeletedAt, err = time.Parse(timeLayout, deletedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse deleted_at for %s: %w", p.BuildPath, err)
			}
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// MarkRestored flags a run project as restored from the trash.
func (s *Store) MarkRestored(projectID int64) error {
	result, err := s.db.Exec(`UPDATE run_projects SET restored = 1 WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to mark project %d restored: %w", projectID, translate(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark project %d restored: %w", projectID, err)
	}
	if n == 0 {
		return fmt.Errorf("run project %d not found", projectID)
	}
	return nil
}
