// Package postgres persists run history in PostgreSQL. The whole versioned
// document lives in a single jsonb row keyed by a fixed name, which keeps the
// storage contract identical to the file-backed repository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"viewsync/domain/hypothesis"
	errs "viewsync/internal/errors"
)

const historyKey = "viewsync"

const schema = `
CREATE TABLE IF NOT EXISTS history_documents (
    key        TEXT PRIMARY KEY,
    version    TEXT NOT NULL,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// HistoryRepository implements ports.HistoryRepository on PostgreSQL.
type HistoryRepository struct {
	db *sqlx.DB
}

// Open connects to the database at url and ensures the history table exists.
func Open(ctx context.Context, url string) (*HistoryRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errs.PersistenceFailed("connect to history database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errs.PersistenceFailed("ensure history schema", err)
	}
	return &HistoryRepository{db: db}, nil
}

// Close releases the connection pool.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Load reads the stored document. Returns (nil, nil) when nothing has been
// saved yet.
func (r *HistoryRepository) Load(ctx context.Context) (*hypothesis.HistoryDocument, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload,
		`SELECT payload FROM history_documents WHERE key = $1`, historyKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.PersistenceFailed("read history", err)
	}

	var doc hypothesis.HistoryDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errs.PersistenceFailed("decode history", err)
	}
	return &doc, nil
}

// Save upserts the stored document.
func (r *HistoryRepository) Save(ctx context.Context, doc *hypothesis.HistoryDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return errs.PersistenceFailed("encode history", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO history_documents (key, version, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()`,
		historyKey, doc.Version, payload)
	if err != nil {
		return errs.PersistenceFailed("write history", err)
	}
	return nil
}
