package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"morty.dev/characters/gallery/core"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type DB struct {
	log  *slog.Logger
	conn *sqlx.DB
	now  func() time.Time
}

func New(log *slog.Logger, driver, address string) (*DB, error) {
	conn, err := sqlx.Connect(driver, address)
	if err != nil {
		log.Error("connection problem", "driver", driver, "address", address, "error", err)
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer keeps modernc from returning SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}
	return &DB{log: log, conn: conn, now: time.Now}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, db.conn.Rebind(`SELECT value FROM kv_entries WHERE name = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO kv_entries (name, value, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, string(value), db.now().Unix(),
	)
	return err
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
