package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrschumacher/complyhub/internal/db"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS local_storage (
	storage_key   TEXT PRIMARY KEY,
	storage_value TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL
)`

// SQLStore implements Store on a local_storage table in SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver db.DatabaseDriver
}

// NewSQLStore opens the database at connectionString and ensures the table exists.
func NewSQLStore(ctx context.Context, connectionString, appEnv string) (*SQLStore, error) {
	if connectionString == "" {
		return nil, errors.New("sql storage requires a database url")
	}
	conn, driver, err := db.Open(ctx, connectionString, appEnv)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStoreFromDB(ctx, conn, driver)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreFromDB wraps an existing connection.
func NewSQLStoreFromDB(ctx context.Context, conn *sql.DB, driver db.DatabaseDriver) (*SQLStore, error) {
	if _, err := conn.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}
	return &SQLStore{db: conn, driver: driver}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	query := "SELECT storage_value FROM local_storage WHERE storage_key = " + db.GetPlaceholder(s.driver, 1)
	var value string
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read storage key: %w", err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	p := db.Placeholders(s.driver, 3)
	// ON CONFLICT upserts are understood by both SQLite 3.24+ and PostgreSQL.
	query := fmt.Sprintf(`INSERT INTO local_storage (storage_key, storage_value, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (storage_key) DO UPDATE SET
			storage_value = excluded.storage_value,
			updated_at = excluded.updated_at`, p[0], p[1], p[2])

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write storage key: %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	query := "DELETE FROM local_storage WHERE storage_key = " + db.GetPlaceholder(s.driver, 1)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete storage key: %w", err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT storage_key FROM local_storage")
	if err != nil {
		return nil, fmt.Errorf("failed to list storage keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan storage key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
