package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // register sqlite as database/sql driver
)

// Kinds mirror the five resource manifests.
const (
	KindTable    = "table"
	KindEndpoint = "endpoint"
	KindRoute    = "route"
	KindTemplate = "template"
	KindLayout   = "layout"
)

// ErrVersionConflict signals a lost-update: another writer bumped the
// manifest version between this operation's read and write.
var ErrVersionConflict = errors.New("manifest version conflict")

// Store persists all five resource manifests in a single transactional
// SQLite database. Each kind is one row holding the full key->payload
// mapping as deterministic JSON plus an optimistic version stamp.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the manifest database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest db: %w", err)
	}
	// Single writer, WAL for concurrent readers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _manifests (
			kind TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create manifest table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Read returns the mapping for a kind together with its version stamp.
// A missing row or corrupt payload reads as "no resources yet" (empty
// mapping), never as an error; the version is preserved so a following
// Write still detects concurrent modification.
func (s *Store) Read(ctx context.Context, kind string) (map[string]json.RawMessage, int64, error) {
	var payload string
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, version FROM _manifests WHERE kind = ?1", kind,
	).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]json.RawMessage{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read manifest %s: %w", kind, err)
	}

	m := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		log.Printf("WARN: manifest %s payload corrupt, treating as empty: %v", kind, err)
		return map[string]json.RawMessage{}, version, nil
	}
	return m, version, nil
}

// Write replaces the full mapping for a kind. The write only succeeds if
// the stored version still equals expected; otherwise the update was lost
// to a concurrent writer and ErrVersionConflict is returned.
func (s *Store) Write(ctx context.Context, kind string, m map[string]json.RawMessage, expected int64) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest %s: %w", kind, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manifest tx: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		"SELECT version FROM _manifests WHERE kind = ?1", kind,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expected != 0 {
			return ErrVersionConflict
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO _manifests (kind, payload, version) VALUES (?1, ?2, 1)",
			kind, string(payload)); err != nil {
			return fmt.Errorf("insert manifest %s: %w", kind, err)
		}
	case err != nil:
		return fmt.Errorf("read manifest version %s: %w", kind, err)
	default:
		if current != expected {
			return ErrVersionConflict
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE _manifests SET payload = ?1, version = version + 1 WHERE kind = ?2",
			string(payload), kind); err != nil {
			return fmt.Errorf("update manifest %s: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manifest %s: %w", kind, err)
	}
	return nil
}

// Encode marshals a resource payload for storage in a manifest mapping.
func Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode manifest payload: %w", err)
	}
	return b, nil
}
