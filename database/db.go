package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Fixed keys of the two durable records.
const (
	SessionUserKey = "vieira_session_user"
	AllBoardsKey   = "vieira_all_boards"
)

// SnapshotStore is durable key/value storage for JSON snapshots.
type SnapshotStore interface {
	// Get returns the stored bytes and false when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// InitDB opens the database and creates the snapshot table. driver is
// "sqlite3" or "postgres".
func InitDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv_snapshots (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_snapshots table: %w", err)
	}

	log.Printf("Database initialized successfully (%s)", driver)
	return db, nil
}

// DataService stores snapshots in the kv_snapshots table.
type DataService struct {
	db *sql.DB
}

func NewDataService(db *sql.DB) *DataService {
	return &DataService{db: db}
}

// Get retrieves the snapshot stored under key
func (s *DataService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data FROM kv_snapshots WHERE name = $1", key)

	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query snapshot %s: %w", key, err)
	}
	return []byte(data), true, nil
}

// Put saves or replaces the snapshot stored under key
func (s *DataService) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_snapshots (name, data, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot stored under key. Deleting a missing key is not an error.
func (s *DataService) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_snapshots WHERE name = $1", key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
