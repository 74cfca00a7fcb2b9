package tabstash

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const sqliteSlotTableName = "tabstash_slot"

// SQLiteSlotBackend stores the collection blob in a single-row table inside
// an on-disk SQLite database.
type SQLiteSlotBackend struct {
	path    string
	slotKey string
	openDB  sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewSQLiteSlotBackend(path string) (*SQLiteSlotBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidInput
	}
	return &SQLiteSlotBackend{
		path:    path,
		slotKey: DefaultSlotKey,
		openDB:  sql.Open,
	}, nil
}

func (b *SQLiteSlotBackend) Get(ctx context.Context) ([]byte, bool, error) {
	if b == nil {
		return nil, false, nil
	}
	if err := b.ensureReady(); err != nil {
		return nil, false, err
	}
	var payload string
	err := b.db.QueryRowContext(ctx,
		"SELECT payload FROM "+sqliteSlotTableName+" WHERE slot_key = ?", b.slotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (b *SQLiteSlotBackend) Set(ctx context.Context, data []byte) error {
	if b == nil {
		return ErrInvalidInput
	}
	if err := b.ensureReady(); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO `+sqliteSlotTableName+` (slot_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (slot_key)
		DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		b.slotKey, string(data))
	return err
}

func (b *SQLiteSlotBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *SQLiteSlotBackend) ensureReady() error {
	if b == nil {
		return ErrInvalidInput
	}
	b.initOnce.Do(func() {
		dir := filepath.Dir(b.path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.initErr = err
				return
			}
		}
		db, err := b.openDB("sqlite", b.path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			b.initErr = err
			return
		}
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS ` + sqliteSlotTableName + ` (
				slot_key TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`); err != nil {
			_ = db.Close()
			b.initErr = err
			return
		}
		b.db = db
	})
	return b.initErr
}
