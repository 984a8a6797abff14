package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const sqliteDialect = "sqlite3"

// DB wraps the SQLite database
type DB struct {
	*sql.DB
}

// SyncHistory represents a reconcile or import run against eBay
type SyncHistory struct {
	ID           int64      `json:"id"`
	SyncType     string     `json:"sync_type"` // "reconcile" or "import"
	Status       string     `json:"status"`    // "running", "success", "failed", "partial"
	ItemsSynced  int        `json:"items_synced"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Setting is an application key-value pair
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Open opens or creates the database and applies pending migrations
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open(sqliteDialect, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// SQLite serializes writers; one connection keeps transactions from hitting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}
	return nil
}

// CreateSyncHistory creates a new sync history record
func (db *DB) CreateSyncHistory(ctx context.Context, sh *SyncHistory) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO sync_history (sync_type, status, items_synced, error_message, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, sh.SyncType, sh.Status, sh.ItemsSynced, sh.ErrorMessage, sh.StartedAt.UTC())
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sh.ID = id
	return nil
}

// UpdateSyncHistory updates a sync history record
func (db *DB) UpdateSyncHistory(ctx context.Context, sh *SyncHistory) error {
	var completed any
	if sh.CompletedAt != nil {
		completed = sh.CompletedAt.UTC()
	}
	_, err := db.ExecContext(ctx, `
		UPDATE sync_history
		SET status = ?, items_synced = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, sh.Status, sh.ItemsSynced, sh.ErrorMessage, completed, sh.ID)
	return err
}

// GetSyncHistory returns the most recent runs first
func (db *DB) GetSyncHistory(ctx context.Context, limit int) ([]SyncHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, sync_type, status, items_synced, error_message, started_at, completed_at
		FROM sync_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []SyncHistory{}
	for rows.Next() {
		var sh SyncHistory
		var completed sql.NullTime
		err := rows.Scan(&sh.ID, &sh.SyncType, &sh.Status,
			&sh.ItemsSynced, &sh.ErrorMessage, &sh.StartedAt, &completed)
		if err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			sh.CompletedAt = &t
		}
		history = append(history, sh)
	}
	return history, rows.Err()
}

// GetSetting returns a single setting by key, nil when absent
func (db *DB) GetSetting(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := db.QueryRowContext(ctx, `
		SELECT key, value, description, updated_at
		FROM settings
		WHERE key = ?
	`, key).Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PutSetting inserts or replaces a setting
func (db *DB) PutSetting(ctx context.Context, key, value, description string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at
	`, key, value, description, time.Now().UTC())
	return err
}

// DeleteSetting removes a setting; a missing key is not an error
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
