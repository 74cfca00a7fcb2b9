package tabstash

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	postgresSlotTableName       = "tabstash_slot"
	postgresOperationTimeout    = 5 * time.Second
	postgresIdentifierQuoteRune = '"'
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresSlotBackend keeps the collection blob in a single keyed row,
// upserted wholesale on every save.
type PostgresSlotBackend struct {
	dsn       string
	tableName string
	slotKey   string
	openDB    sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresSlotBackend(dsn string) (*PostgresSlotBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	return &PostgresSlotBackend{
		dsn:       dsn,
		tableName: postgresSlotTableName,
		slotKey:   DefaultSlotKey,
		openDB:    sql.Open,
	}, nil
}

func (b *PostgresSlotBackend) Get(ctx context.Context) ([]byte, bool, error) {
	if b == nil {
		return nil, false, nil
	}
	if err := b.ensureReady(); err != nil {
		return nil, false, err
	}
	opCtx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT payload FROM %s WHERE slot_key = $1", postgresQuoteIdentifier(b.tableName))
	var payload string
	err := b.db.QueryRowContext(opCtx, query, b.slotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (b *PostgresSlotBackend) Set(ctx context.Context, data []byte) error {
	if b == nil {
		return ErrInvalidInput
	}
	if err := b.ensureReady(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (slot_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slot_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, postgresQuoteIdentifier(b.tableName))
	_, err := b.db.ExecContext(opCtx, query, b.slotKey, string(data))
	return err
}

func (b *PostgresSlotBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *PostgresSlotBackend) ensureReady() error {
	if b == nil {
		return ErrInvalidInput
	}
	b.initOnce.Do(func() {
		db, err := b.openDB("postgres", b.dsn)
		if err != nil {
			b.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				slot_key TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, postgresQuoteIdentifier(b.tableName))
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			b.initErr = err
			return
		}
		b.db = db
	})
	return b.initErr
}

func postgresQuoteIdentifier(name string) string {
	quote := string(postgresIdentifierQuoteRune)
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}
