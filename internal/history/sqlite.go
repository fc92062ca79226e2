package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"codemate/internal/logging"
)

// Store is the SQLite-backed Journal. A single connection with WAL keeps
// writes from the engine and reads from the CLI from tripping over each
// other.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the journal database at path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryHistory, "journal open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.HistoryDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.HistoryDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.HistoryDebug("failed to set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.History("journal ready at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_operations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT,
		metadata TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_file_operations_source ON file_operations(source);
	CREATE INDEX IF NOT EXISTS idx_file_operations_created ON file_operations(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return nil
}

// Append inserts a record. A missing ID or timestamp is filled in; nothing
// else is touched.
func (s *Store) Append(rec FileOperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	var meta []byte
	if len(rec.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode record metadata: %w", err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO file_operations (id, type, source, destination, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Type), rec.Source, rec.Destination, string(meta), rec.Timestamp,
	)
	if err != nil {
		logging.HistoryError("append failed for %s %s: %v", rec.Type, rec.Source, err)
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	logging.HistoryDebug("appended %s %s (id=%s)", rec.Type, rec.Source, rec.ID)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]FileOperationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, type, source, destination, metadata, created_at FROM file_operations ORDER BY created_at DESC, id LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByPath returns up to limit records whose source or destination is path,
// newest first.
func (s *Store) ByPath(path string, limit int) ([]FileOperationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, type, source, destination, metadata, created_at FROM file_operations
		 WHERE source = ? OR destination = ? ORDER BY created_at DESC, id LIMIT ?`,
		path, path, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal by path: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func scanRecords(rows *sql.Rows) ([]FileOperationRecord, error) {
	var out []FileOperationRecord
	for rows.Next() {
		var rec FileOperationRecord
		var opType, meta string
		var dest sql.NullString
		if err := rows.Scan(&rec.ID, &opType, &rec.Source, &dest, &meta, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan journal record: %w", err)
		}
		rec.Type = OpType(opType)
		rec.Destination = dest.String
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				logging.HistoryDebug("unreadable metadata on record %s: %v", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
