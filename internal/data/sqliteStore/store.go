package sqliteStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/data/sqliteStore/migrations"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	_ "modernc.org/sqlite"
)

var ErrDocumentNotFound = errors.New("document not found")

// fixed width so that created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps DocumentMetadata rows in a single SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	logger *logger_i.Logger
}

var _ documentModel.DocumentStore = (*Store)(nil)

func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite has a single writer, one connection avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger_i.NewLogger("DocumentStore")}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	s.logger.Info("Document store ready", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, formatTime(time.Now())); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		s.logger.Debug("Applied migration", "name", name)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, doc documentModel.DocumentMetadata) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.Status == "" {
		doc.Status = documentModel.StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, doc_type, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Id, doc.Filename, doc.DocType, string(doc.Status), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.Id, err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status documentModel.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (documentModel.DocumentMetadata, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, doc_type, status, created_at, updated_at FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return documentModel.DocumentMetadata{}, false, nil
	}
	if err != nil {
		return documentModel.DocumentMetadata{}, false, err
	}
	return doc, true, nil
}

func (s *Store) List(ctx context.Context) ([]documentModel.DocumentMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, doc_type, status, created_at, updated_at FROM documents ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []documentModel.DocumentMetadata
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (documentModel.DocumentMetadata, error) {
	var doc documentModel.DocumentMetadata
	var status, created, updated string
	if err := row.Scan(&doc.Id, &doc.Filename, &doc.DocType, &status, &created, &updated); err != nil {
		return doc, err
	}
	doc.Status = documentModel.Status(status)
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)
	return doc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
