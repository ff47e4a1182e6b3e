package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/codemap-mcp/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist.
// It wraps the shared sentinel so errors.Is works against either.
var ErrNotFound = fmt.Errorf("storage: %w", types.ErrNotFound)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Snapshot operations

// SaveSnapshot stores one analysis result atomically, replacing any earlier
// snapshot of the same root.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.RootPath == "" {
		return fmt.Errorf("snapshot root path is required: %w", types.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	projectID, err := s.upsertProjectWithQuerier(ctx, tx, snap)
	if err != nil {
		return err
	}

	// Replace the previous snapshot wholesale; file and symbol rows cascade.
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to clear old files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to clear old edges: %w", err)
	}

	for _, fa := range snap.Files {
		fileID, err := s.insertFileWithQuerier(ctx, tx, projectID, fa)
		if err != nil {
			return err
		}
		for i := range fa.Symbols {
			if err := s.insertSymbolWithQuerier(ctx, tx, fileID, &fa.Symbols[i]); err != nil {
				return err
			}
		}
		for _, w := range fa.Warnings {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO warnings (file_id, code, message, line) VALUES (?, ?, ?, ?)",
				fileID, string(w.Code), w.Message, w.Line); err != nil {
				return fmt.Errorf("failed to store warning: %w", err)
			}
		}
	}

	for _, e := range snap.Edges {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO edges (project_id, from_file, to_target, resolved) VALUES (?, ?, ?, ?)",
			projectID, e.FromFile, e.ToTarget, e.Resolved); err != nil {
			return fmt.Errorf("failed to store edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) upsertProjectWithQuerier(ctx context.Context, q querier, snap *Snapshot) (int64, error) {
	totalSymbols := 0
	for _, fa := range snap.Files {
		totalSymbols += len(fa.Symbols)
	}
	analyzedAt := snap.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	query := `
		INSERT INTO projects (root_path, total_files, total_symbols, total_edges, analyzed_at, duration_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			total_files = excluded.total_files,
			total_symbols = excluded.total_symbols,
			total_edges = excluded.total_edges,
			analyzed_at = excluded.analyzed_at,
			duration_ms = excluded.duration_ms,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if _, err := q.ExecContext(ctx, query,
		snap.RootPath, len(snap.Files), totalSymbols, len(snap.Edges),
		analyzedAt, snap.Duration.Milliseconds(), now, now); err != nil {
		return 0, fmt.Errorf("failed to upsert project: %w", err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM projects WHERE root_path = ?", snap.RootPath).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read project id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStorage) insertFileWithQuerier(ctx context.Context, q querier, projectID int64, fa *types.FileAnalysis) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO files (project_id, file_path, language, symbol_count, warning_count) VALUES (?, ?, ?, ?, ?)",
		projectID, fa.Path, string(fa.Language), len(fa.Symbols), len(fa.Warnings))
	if err != nil {
		return 0, fmt.Errorf("failed to store file %s: %w", fa.Path, err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) insertSymbolWithQuerier(ctx context.Context, q querier, fileID int64, sym *types.Symbol) error {
	rec := FromTypesSymbol(*sym, fileID)
	_, err := q.ExecContext(ctx, `
		INSERT INTO symbols (file_id, symbol_id, name, qualified_name, kind, language,
			signature, doc_comment, modifiers, parent_id, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileID, rec.SymbolID, rec.Name, rec.QualifiedName, rec.Kind, rec.Language,
		rec.Signature, rec.DocComment, rec.Modifiers, rec.ParentID, rec.StartLine, rec.EndLine)
	if err != nil {
		return fmt.Errorf("failed to store symbol %s: %w", rec.QualifiedName, err)
	}
	return nil
}

// Project operations

// GetProject retrieves a project by root path
func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, root_path, total_files, total_symbols, total_edges,
			COALESCE(analyzed_at, created_at), duration_ms, created_at, updated_at
		FROM projects WHERE root_path = ?`, rootPath)

	p := &Project{}
	err := row.Scan(&p.ID, &p.RootPath, &p.TotalFiles, &p.TotalSymbols, &p.TotalEdges,
		&p.AnalyzedAt, &p.DurationMS, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all stored projects ordered by root path
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root_path, total_files, total_symbols, total_edges,
			COALESCE(analyzed_at, created_at), duration_ms, created_at, updated_at
		FROM projects ORDER BY root_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.RootPath, &p.TotalFiles, &p.TotalSymbols, &p.TotalEdges,
			&p.AnalyzedAt, &p.DurationMS, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and all dependent rows
func (s *SQLiteStorage) DeleteProject(ctx context.Context, rootPath string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE root_path = ?", rootPath)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// File operations

// ListFiles returns a project's files ordered by path
func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, file_path, language, symbol_count, warning_count, created_at
		FROM files WHERE project_id = ? ORDER BY file_path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FilePath, &f.Language,
			&f.SymbolCount, &f.WarningCount, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFile retrieves one file record by path
func (s *SQLiteStorage) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, file_path, language, symbol_count, warning_count, created_at
		FROM files WHERE project_id = ? AND file_path = ?`, projectID, filePath)

	f := &File{}
	err := row.Scan(&f.ID, &f.ProjectID, &f.FilePath, &f.Language,
		&f.SymbolCount, &f.WarningCount, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// Symbol operations

func scanSymbol(row interface{ Scan(...interface{}) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := row.Scan(&sym.ID, &sym.FileID, &sym.SymbolID, &sym.Name, &sym.QualifiedName,
		&sym.Kind, &sym.Language, &sym.Signature, &sym.DocComment, &sym.Modifiers,
		&sym.ParentID, &sym.StartLine, &sym.EndLine, &sym.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// ListSymbolsByFile returns a file's symbols in extraction order
func (s *SQLiteStorage) ListSymbolsByFile(ctx context.Context, fileID int64) ([]*Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, symbol_id, name, qualified_name, kind, language,
			COALESCE(signature, ''), COALESCE(doc_comment, ''), COALESCE(modifiers, ''),
			COALESCE(parent_id, ''), start_line, end_line, created_at
		FROM symbols WHERE file_id = ? ORDER BY id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// GetSymbol retrieves one symbol by its stable hash ID
func (s *SQLiteStorage) GetSymbol(ctx context.Context, projectID int64, symbolID string) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.file_id, s.symbol_id, s.name, s.qualified_name, s.kind, s.language,
			COALESCE(s.signature, ''), COALESCE(s.doc_comment, ''), COALESCE(s.modifiers, ''),
			COALESCE(s.parent_id, ''), s.start_line, s.end_line, s.created_at
		FROM symbols s JOIN files f ON s.file_id = f.id
		WHERE f.project_id = ? AND s.symbol_id = ?`, projectID, symbolID)

	sym, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}
	return sym, nil
}

// SearchSymbols runs an FTS5 match over symbol names, signatures, and docs
func (s *SQLiteStorage) SearchSymbols(ctx context.Context, projectID int64, query string, limit int) ([]*Symbol, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is required: %w", types.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.file_id, s.symbol_id, s.name, s.qualified_name, s.kind, s.language,
			COALESCE(s.signature, ''), COALESCE(s.doc_comment, ''), COALESCE(s.modifiers, ''),
			COALESCE(s.parent_id, ''), s.start_line, s.end_line, s.created_at
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		JOIN files f ON s.file_id = f.id
		WHERE f.project_id = ? AND symbols_fts MATCH ?
		ORDER BY rank, s.qualified_name
		LIMIT ?`, projectID, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Edge operations

// ListEdges returns a project's dependency edges in stored order
func (s *SQLiteStorage) ListEdges(ctx context.Context, projectID int64) ([]*Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, from_file, to_target, resolved
		FROM edges WHERE project_id = ? ORDER BY from_file, to_target`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.FromFile, &e.ToTarget, &e.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Status operations

// GetStatus summarizes one stored project
func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, root_path, total_files, total_symbols, total_edges,
			COALESCE(analyzed_at, created_at), duration_ms, created_at, updated_at
		FROM projects WHERE id = ?`, projectID)

	p := &Project{}
	err := row.Scan(&p.ID, &p.RootPath, &p.TotalFiles, &p.TotalSymbols, &p.TotalEdges,
		&p.AnalyzedAt, &p.DurationMS, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	status := &ProjectStatus{Project: p}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM files WHERE project_id = ?", &status.FilesCount},
		{"SELECT COUNT(*) FROM symbols s JOIN files f ON s.file_id = f.id WHERE f.project_id = ?", &status.SymbolsCount},
		{"SELECT COUNT(*) FROM edges WHERE project_id = ?", &status.EdgesCount},
		{"SELECT COUNT(*) FROM warnings w JOIN files f ON w.file_id = f.id WHERE f.project_id = ?", &status.WarningsCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, projectID).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		status.DBSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	status.Health.DatabaseAccessible = s.db.PingContext(ctx) == nil
	var ftsName string
	err = s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='symbols_fts'").Scan(&ftsName)
	status.Health.FTSIndexBuilt = err == nil

	return status, nil
}

// ftsQuery quotes the user query so FTS5 treats it as terms, not syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func joinModifiers(mods []string) string {
	return strings.Join(mods, ",")
}

func splitModifiers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
