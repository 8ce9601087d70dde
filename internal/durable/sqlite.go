package durable

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS objects (
	id    TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (id, key)
);`

// SqliteStorage is a StorageBackend over a single SQLite database file.
// Snapshot atomicity comes from SQL transactions; SQLite's own journal
// covers crash recovery, so this backend does not implement WalBackend.
type SqliteStorage struct {
	db *sql.DB
}

// NewSqliteStorage opens (or creates) the database at path.
func NewSqliteStorage(path string) (*SqliteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewModuleError("Failed to open database: %v", err)
	}
	// The VM is single-threaded; one connection avoids writer contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.NewModuleError("Failed to create schema: %v", err)
	}
	return &SqliteStorage{db: db}, nil
}

// Close releases the database handle.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

// retryBusy retries op on transient SQLITE_BUSY / locked errors with
// exponential backoff; other errors fail immediately.
func retryBusy(op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
}

func (s *SqliteStorage) Load(id string) (map[string]vm.Value, bool, error) {
	rows, err := s.db.Query(`SELECT key, value FROM objects WHERE id = ?`, id)
	if err != nil {
		return nil, false, errors.NewModuleError("Failed to read: %v", err)
	}
	defer rows.Close()

	state := make(map[string]vm.Value)
	found := false
	for rows.Next() {
		var key, encoded string
		if err := rows.Scan(&key, &encoded); err != nil {
			return nil, false, errors.NewModuleError("Failed to scan: %v", err)
		}
		var decoded any
		if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
			return nil, false, errors.NewModuleError("Invalid JSON value: %v", err)
		}
		state[key] = jsonToValue(decoded)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, false, errors.NewModuleError("Failed to read: %v", err)
	}
	if !found {
		return nil, false, nil
	}
	return state, true, nil
}

func (s *SqliteStorage) Save(id string, state map[string]vm.Value) error {
	return retryBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM objects WHERE id = ?`, id); err != nil {
			return err
		}
		for key, value := range state {
			encoded, merr := json.Marshal(valueToJSON(value))
			if merr != nil {
				return merr
			}
			if _, err := tx.Exec(
				`INSERT INTO objects (id, key, value) VALUES (?, ?, ?)`,
				id, key, string(encoded),
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *SqliteStorage) Delete(id string) error {
	return retryBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM objects WHERE id = ?`, id)
		return err
	})
}

func (s *SqliteStorage) ListObjects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT id FROM objects ORDER BY id`)
	if err != nil {
		return nil, errors.NewModuleError("Failed to list: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewModuleError("Failed to scan: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewModuleError("Failed to list: %v", err)
	}
	return ids, nil
}
