package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    root TEXT NOT NULL,
    mode TEXT NOT NULL,
    estimated_bytes INTEGER NOT NULL,
    freed_bytes INTEGER NOT NULL,
    succeeded INTEGER NOT NULL,
    failed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    kind TEXT NOT NULL,
    name TEXT,
    root_path TEXT NOT NULL,
    build_path TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    status TEXT NOT NULL,
    reason TEXT,
    trashed_path TEXT,
    deleted_at TIMESTAMP,
    restored BOOLEAN NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_projects_run ON run_projects(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
