package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/comalice/storex/internal/core"
)

// Dialect selects SQL placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// rebind rewrites ? placeholders for the dialect.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS storex_snapshots (
	store_id TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	version TEXT NOT NULL,
	payload TEXT NOT NULL,
	saved_at TEXT NOT NULL
)`

const upsertSnapshot = `INSERT INTO storex_snapshots (store_id, snapshot_id, version, payload, saved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (store_id) DO UPDATE SET
	snapshot_id = excluded.snapshot_id,
	version = excluded.version,
	payload = excluded.payload,
	saved_at = excluded.saved_at`

const selectSnapshot = `SELECT snapshot_id, version, payload, saved_at FROM storex_snapshots WHERE store_id = ?`

// SQLPersister keeps the latest snapshot per store in a single table, with
// the state tree encoded as JSON.
type SQLPersister struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLPersister wraps an open database and ensures the snapshot table
// exists.
func NewSQLPersister(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLPersister, error) {
	if _, err := db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return &SQLPersister{db: db, dialect: dialect}, nil
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLPersister, error) {
	if path == "" {
		path = "storex.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	p, err := NewSQLPersister(ctx, db, DialectSQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// OpenPostgres connects to Postgres through the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLPersister, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p, err := NewSQLPersister(ctx, db, DialectPostgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *SQLPersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	payload, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = p.db.ExecContext(ctx, p.dialect.rebind(upsertSnapshot),
		snapshot.StoreID, snapshot.ID, snapshot.Version, string(payload),
		snapshot.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert snapshot %q: %w", snapshot.StoreID, err)
	}
	return nil
}

func (p *SQLPersister) Load(ctx context.Context, storeID string) (core.Snapshot, error) {
	var (
		snapshot = core.Snapshot{StoreID: storeID}
		payload  string
		savedAt  string
	)
	row := p.db.QueryRowContext(ctx, p.dialect.rebind(selectSnapshot), storeID)
	if err := row.Scan(&snapshot.ID, &snapshot.Version, &payload, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Snapshot{}, fmt.Errorf("store %q: %w", storeID, core.ErrSnapshotNotFound)
		}
		return core.Snapshot{}, fmt.Errorf("select snapshot %q: %w", storeID, err)
	}
	if err := json.Unmarshal([]byte(payload), &snapshot.State); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("parse saved_at: %w", err)
	}
	snapshot.Timestamp = ts
	return snapshot, nil
}

// Close releases the database handle.
func (p *SQLPersister) Close() error {
	return p.db.Close()
}
