// Package bolt persists run history in a local bbolt file. One bucket, one
// key, the whole versioned document as JSON. Suited to single-process
// deployments that do not want a database server.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"viewsync/domain/hypothesis"
	errs "viewsync/internal/errors"
)

var (
	bucketResults = []byte("results")
	keyHistory    = []byte("history")
)

// HistoryRepository implements ports.HistoryRepository on a bbolt file.
type HistoryRepository struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*HistoryRepository, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errs.PersistenceFailed("open history database", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.PersistenceFailed("create results bucket", err)
	}
	return &HistoryRepository{db: db}, nil
}

// Close releases the underlying database file.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Load reads the stored document. Returns (nil, nil) when nothing has been
// saved yet.
func (r *HistoryRepository) Load(ctx context.Context) (*hypothesis.HistoryDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketResults)
		if b == nil {
			return nil
		}
		if v := b.Get(keyHistory); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errs.PersistenceFailed("read history", err)
	}
	if raw == nil {
		return nil, nil
	}

	var doc hypothesis.HistoryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.PersistenceFailed("decode history", err)
	}
	return &doc, nil
}

// Save replaces the stored document.
func (r *HistoryRepository) Save(ctx context.Context, doc *hypothesis.HistoryDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return errs.PersistenceFailed("encode history", err)
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResults).Put(keyHistory, raw)
	})
	if err != nil {
		return errs.PersistenceFailed("write history", err)
	}
	return nil
}
