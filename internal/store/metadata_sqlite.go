package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/windschord/context-mcp-sub001/internal/errkit"
)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS projects (
	project_id TEXT PRIMARY KEY,
	root_path TEXT NOT NULL,
	status TEXT NOT NULL,
	last_indexed_at TIMESTAMP,
	errors TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS files (
	project_id TEXT NOT NULL,
	path TEXT NOT NULL,
	language TEXT NOT NULL,
	mod_time TIMESTAMP,
	chunk_ids TEXT NOT NULL DEFAULT '[]',
	fingerprints TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (project_id, path)
);
CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
`

// SQLiteMetadataStore implements MetadataStore using a pure-Go SQLite
// driver, avoiding a CGO dependency in the shipped binary.
type SQLiteMetadataStore struct {
	db *sql.DB
}

// NewSQLiteMetadataStore opens (and migrates) the metadata database at
// path. An empty path opens an in-memory database, useful for tests.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "create metadata store directory")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "open metadata database")
	}
	if _, err := db.Exec(metadataSchema); err != nil {
		db.Close()
		return nil, errkit.Wrap(errkit.KindInternal, err, "migrate metadata schema")
	}
	return &SQLiteMetadataStore{db: db}, nil
}

// SaveProject upserts a project row.
func (s *SQLiteMetadataStore) SaveProject(ctx context.Context, p *Project) error {
	errsJSON, err := json.Marshal(p.Errors)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "marshal project errors")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, root_path, status, last_indexed_at, errors)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			root_path = excluded.root_path,
			status = excluded.status,
			last_indexed_at = excluded.last_indexed_at,
			errors = excluded.errors
	`, p.ProjectID, p.RootPath, p.Status, p.LastIndexedAt, string(errsJSON))
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "save project")
	}
	return nil
}

// GetProject returns the project with id, or a NotFound error.
func (s *SQLiteMetadataStore) GetProject(ctx context.Context, projectID string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, root_path, status, last_indexed_at, errors
		FROM projects WHERE project_id = ?
	`, projectID)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var lastIndexedAt sql.NullTime
	var errsJSON string
	if err := row.Scan(&p.ProjectID, &p.RootPath, &p.Status, &lastIndexedAt, &errsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkit.New(errkit.KindNotFound, "project not found")
		}
		return nil, errkit.Wrap(errkit.KindInternal, err, "scan project")
	}
	p.LastIndexedAt = lastIndexedAt.Time
	if err := json.Unmarshal([]byte(errsJSON), &p.Errors); err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal project errors")
	}
	return &p, nil
}

// DeleteProject removes a project and its files.
func (s *SQLiteMetadataStore) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "begin delete project transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = ?`, projectID); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "delete project files")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE project_id = ?`, projectID); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "delete project")
	}
	if err := tx.Commit(); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "commit delete project transaction")
	}
	return nil
}

// ListProjects returns every known project.
func (s *SQLiteMetadataStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, root_path, status, last_indexed_at, errors FROM projects
	`)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "list projects")
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		var p Project
		var lastIndexedAt sql.NullTime
		var errsJSON string
		if err := rows.Scan(&p.ProjectID, &p.RootPath, &p.Status, &lastIndexedAt, &errsJSON); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "scan project row")
		}
		p.LastIndexedAt = lastIndexedAt.Time
		if err := json.Unmarshal([]byte(errsJSON), &p.Errors); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal project errors")
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "iterate projects")
	}
	return out, nil
}

// SaveFile upserts a file record.
func (s *SQLiteMetadataStore) SaveFile(ctx context.Context, f *FileRecord) error {
	chunksJSON, err := json.Marshal(f.ChunkIDs)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "marshal chunk ids")
	}
	fingerprints := f.Fingerprints
	if fingerprints == nil {
		fingerprints = map[string]string{}
	}
	fingerprintsJSON, err := json.Marshal(fingerprints)
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "marshal chunk fingerprints")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (project_id, path, language, mod_time, chunk_ids, fingerprints)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			language = excluded.language,
			mod_time = excluded.mod_time,
			chunk_ids = excluded.chunk_ids,
			fingerprints = excluded.fingerprints
	`, f.ProjectID, f.Path, f.Language, f.ModTime, string(chunksJSON), string(fingerprintsJSON))
	if err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "save file")
	}
	return nil
}

// GetFile returns the file record for (projectID, path), or NotFound.
func (s *SQLiteMetadataStore) GetFile(ctx context.Context, projectID, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, path, language, mod_time, chunk_ids, fingerprints
		FROM files WHERE project_id = ? AND path = ?
	`, projectID, path)
	return scanFile(row)
}

func scanFile(row *sql.Row) (*FileRecord, error) {
	var f FileRecord
	var modTime sql.NullTime
	var chunksJSON, fingerprintsJSON string
	if err := row.Scan(&f.ProjectID, &f.Path, &f.Language, &modTime, &chunksJSON, &fingerprintsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkit.New(errkit.KindNotFound, "file not found")
		}
		return nil, errkit.Wrap(errkit.KindInternal, err, "scan file")
	}
	f.ModTime = modTime.Time
	if err := json.Unmarshal([]byte(chunksJSON), &f.ChunkIDs); err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal chunk ids")
	}
	if err := json.Unmarshal([]byte(fingerprintsJSON), &f.Fingerprints); err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal chunk fingerprints")
	}
	return &f, nil
}

// DeleteFile removes a file record.
func (s *SQLiteMetadataStore) DeleteFile(ctx context.Context, projectID, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE project_id = ? AND path = ?`, projectID, path); err != nil {
		return errkit.Wrap(errkit.KindInternal, err, "delete file")
	}
	return nil
}

// ListFiles returns every file tracked for projectID.
func (s *SQLiteMetadataStore) ListFiles(ctx context.Context, projectID string) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, path, language, mod_time, chunk_ids, fingerprints
		FROM files WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "list files")
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		var f FileRecord
		var modTime sql.NullTime
		var chunksJSON, fingerprintsJSON string
		if err := rows.Scan(&f.ProjectID, &f.Path, &f.Language, &modTime, &chunksJSON, &fingerprintsJSON); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "scan file row")
		}
		f.ModTime = modTime.Time
		if err := json.Unmarshal([]byte(chunksJSON), &f.ChunkIDs); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal chunk ids")
		}
		if err := json.Unmarshal([]byte(fingerprintsJSON), &f.Fingerprints); err != nil {
			return nil, errkit.Wrap(errkit.KindInternal, err, "unmarshal chunk fingerprints")
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, errkit.Wrap(errkit.KindInternal, err, "iterate files")
	}
	return out, nil
}

// Close closes the underlying database handle.
func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)
