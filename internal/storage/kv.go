package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Namespaces used by pchat.
const (
	NamespacePapers     = "papers"
	NamespaceEmbeddings = "paper_embeddings"
	NamespaceChunks     = "chunk_vectors"
	NamespaceMarkers    = "chunk_embeddings"
	NamespaceTexts      = "pdf_texts"
	NamespaceSettings   = "settings"
)

var (
	// ErrUnavailable wraps every failure of the underlying database.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by Get when a key is absent.
	ErrNotFound = errors.New("key not found")
)

// DB is a durable, namespaced key-value store on SQLite. Values are JSON.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("opening database", err)
	}

	// SQLite doesn't support concurrent writes; a single connection also
	// serializes Update transactions.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, unavailable("creating schema", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		);
	`
	_, err := db.Exec(schema)
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Get returns the raw JSON value stored under (namespace, key).
func (d *DB) Get(ctx context.Context, namespace, key string) (json.RawMessage, error) {
	var value string
	err := d.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("reading "+namespace+"/"+key, err)
	}
	return json.RawMessage(value), nil
}

// Put stores v as JSON under (namespace, key), replacing any prior value.
func (d *DB) Put(ctx context.Context, namespace, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", namespace, key, err)
	}
	if err := upsert(ctx, d.db, namespace, key, data); err != nil {
		return unavailable("writing "+namespace+"/"+key, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, namespace, key string, data []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, namespace, key, string(data), time.Now().UnixMilli())
	return err
}

// Delete removes (namespace, key). Deleting an absent key is not an error.
func (d *DB) Delete(ctx context.Context, namespace, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return unavailable("deleting "+namespace+"/"+key, err)
	}
	return nil
}

// DeletePrefix removes every key in namespace that starts with prefix and
// returns the number removed. Keys are compared byte-wise.
func (d *DB) DeletePrefix(ctx context.Context, namespace, prefix string) (int, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND substr(CAST(key AS BLOB), 1, ?) = CAST(? AS BLOB)`,
		namespace, len(prefix), prefix,
	)
	if err != nil {
		return 0, unavailable("deleting "+namespace+"/"+prefix+"*", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// All returns every key and raw value in namespace, ordered by key.
func (d *DB) All(ctx context.Context, namespace string) (map[string]json.RawMessage, []string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, nil, unavailable("listing "+namespace, err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	var keys []string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, nil, unavailable("scanning "+namespace, err)
		}
		values[key] = json.RawMessage(value)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, unavailable("listing "+namespace, err)
	}
	return values, keys, nil
}

// Update runs a read-modify-write of (namespace, key) inside a transaction.
// fn receives the current raw value (nil when absent) and returns the value
// to store; returning a nil value with a nil error deletes the key. fn must
// not call back into the DB.
func (d *DB) Update(ctx context.Context, namespace, key string, fn func(current json.RawMessage) (any, error)) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	var current json.RawMessage
	var value string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return unavailable("reading "+namespace+"/"+key, err)
	default:
		current = json.RawMessage(value)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
			return unavailable("deleting "+namespace+"/"+key, err)
		}
	} else {
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding %s/%s: %w", namespace, key, err)
		}
		if err := upsert(ctx, tx, namespace, key, data); err != nil {
			return unavailable("writing "+namespace+"/"+key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing "+namespace+"/"+key, err)
	}
	return nil
}

// GetAs decodes the value under (namespace, key) into a T.
func GetAs[T any](ctx context.Context, d *DB, namespace, key string) (T, error) {
	var v T
	raw, err := d.Get(ctx, namespace, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding %s/%s: %w", namespace, key, err)
	}
	return v, nil
}

// AllAs decodes every value in namespace into a T, keyed by key.
func AllAs[T any](ctx context.Context, d *DB, namespace string) (map[string]T, error) {
	raw, _, err := d.All(ctx, namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for key, value := range raw {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", namespace, key, err)
		}
		out[key] = v
	}
	return out, nil
}

// UpdateAs is Update with typed decoding. fn receives the current value and
// whether it existed, and returns the value to store.
func UpdateAs[T any](ctx context.Context, d *DB, namespace, key string, fn func(current T, exists bool) (T, error)) error {
	return d.Update(ctx, namespace, key, func(raw json.RawMessage) (any, error) {
		var current T
		exists := raw != nil
		if exists {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("decoding %s/%s: %w", namespace, key, err)
			}
		}
		next, err := fn(current, exists)
		if err != nil {
			return nil, err
		}
		return next, nil
	})
}

// IsNotFound reports whether err indicates an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
