/*
Package sqlite provides a SQLite-backed implementation of document.Store.

PURPOSE:
  Stores every collection in one documents table, one JSON object per row.
  In production the same patterns apply to any document database with
  create-only writes, field merges, server-side increments and atomic
  batches.

KEY TABLES:
  documents: (collection, id) primary key, fields_json payload

WRITE SEMANTICS:
  - Create: INSERT. The primary key makes it create-only; a duplicate key
    becomes document.ErrDocumentExists.
  - Update: json_set overwrites each given top-level field whole. A null
    value is stored as null; an object replaces the old object.
    Zero rows affected becomes document.ErrNotFound.
  - Increments: json_set(..., COALESCE(json_extract(...), 0) + ?) evaluated
    by SQLite inside the statement, never read into Go and written back.
  - Commit: one BEGIN ... COMMIT around every write of the batch.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so a
  ":memory:" database is shared by every call.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for file databases.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  provider := document.NewProvider(document.Deps{Store: store, ...})

SEE ALSO:
  - document/store.go: Interface definitions
  - document/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/stock-provider/document"
)

var _ document.Store = (*Store)(nil)

// maxSetPairs keeps each json_set call under SQLite's function argument limit.
const maxSetPairs = 40

// Store implements document.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection_updated
		ON documents(collection, updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(ctx context.Context, collection, id string) (document.Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT fields_json FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, &document.StorageError{Op: "get", Err: err}
	}
	return decodeFields(raw)
}

func (s *Store) Exists(ctx context.Context, collection, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&count)
	if err != nil {
		return false, &document.StorageError{Op: "exists", Err: err}
	}
	return count > 0, nil
}

// =============================================================================
// WRITES
// =============================================================================

// Create inserts a new document.
func (s *Store) Create(ctx context.Context, collection, id string, fields document.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createDoc(ctx, s.db, collection, id, fields)
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields document.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateDoc(ctx, s.db, document.Write{Op: document.OpUpdate, Collection: collection, ID: id, Fields: fields})
}

// Commit applies every write of the batch in one database transaction.
func (s *Store) Commit(ctx context.Context, batch *document.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &document.StorageError{Op: "begin", Err: err}
	}
	defer sqlTx.Rollback()

	for _, w := range batch.Writes {
		switch w.Op {
		case document.OpCreate:
			err = s.createDoc(ctx, sqlTx, w.Collection, w.ID, w.Fields)
		case document.OpUpdate:
			err = s.updateDoc(ctx, sqlTx, w)
		default:
			err = &document.StorageError{Op: "commit", Err: fmt.Errorf("unknown write op %q", w.Op)}
		}
		if err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return &document.StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (s *Store) createDoc(ctx context.Context, db execer, collection, id string, fields document.Fields) error {
	payload, err := encodeFields(fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, collection, id, payload, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return document.ErrDocumentExists
		}
		return &document.StorageError{Op: "create", Err: err}
	}
	return nil
}

// updateDoc builds one UPDATE statement: overwrite each given field whole,
// then add increments and overwrite sets, all evaluated by SQLite.
func (s *Store) updateDoc(ctx context.Context, db execer, w document.Write) error {
	var (
		pairs []string
		args  []any
	)
	for _, k := range w.Fields.Keys() {
		value, err := encodeValue(w.Fields[k])
		if err != nil {
			return err
		}
		pairs = append(pairs, "?, json(?)")
		args = append(args, jsonPath(k), value)
	}
	for _, k := range sortedKeys(w.Increments) {
		pairs = append(pairs, "?, COALESCE(json_extract(fields_json, ?), 0) + ?")
		args = append(args, jsonPath(k), jsonPath(k), sqlNumber(w.Increments[k]))
	}
	for _, k := range sortedKeys(w.Sets) {
		pairs = append(pairs, "?, json(?)")
		args = append(args, jsonPath(k), w.Sets[k].String())
	}

	// json_set takes a bounded number of arguments; nest calls per chunk.
	expr := "fields_json"
	for len(pairs) > 0 {
		n := min(len(pairs), maxSetPairs)
		expr = "json_set(" + expr + ", " + strings.Join(pairs[:n], ", ") + ")"
		pairs = pairs[n:]
	}

	query := "UPDATE documents SET fields_json = " + expr + ", updated_at = ? WHERE collection = ? AND id = ?"
	args = append(args, time.Now().UTC().Format(time.RFC3339), w.Collection, w.ID)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return &document.StorageError{Op: "update", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &document.StorageError{Op: "update", Err: err}
	}
	if n == 0 {
		return document.ErrNotFound
	}
	return nil
}

// Helper functions

// encodeFields writes decimals as JSON numbers rather than quoted strings.
func encodeFields(fields document.Fields) (string, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = storedValue(v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(b), nil
}

// encodeValue is the JSON text of a single field value.
func encodeValue(v any) (string, error) {
	b, err := json.Marshal(storedValue(v))
	if err != nil {
		return "", fmt.Errorf("failed to encode field: %w", err)
	}
	return string(b), nil
}

func storedValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return document.NumberValue(d)
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return document.NumberValue(*d)
	default:
		return v
	}
}

func decodeFields(raw string) (document.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	fields := document.Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, &document.StorageError{Op: "decode", Err: err}
	}
	return fields, nil
}

// sqlNumber binds whole numbers as INTEGER so integer totals stay integers.
func sqlNumber(d decimal.Decimal) any {
	if d.IsInteger() && d.Abs().LessThan(decimal.New(1, 18)) {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
