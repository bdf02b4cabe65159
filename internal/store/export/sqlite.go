package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"aurora/internal/market"

	_ "modernc.org/sqlite"
)

// SQLite keeps one table per slot (bars_<slot>) in a single database file.
// Each export replaces the table so it always mirrors the in-memory sequence.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("export: sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLite{db: db}, nil
}

func tableName(slot market.SlotID) string {
	return fmt.Sprintf("bars_%d", int(slot))
}

func (s *SQLite) Export(ctx context.Context, slot market.SlotID, bars []market.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("export: sqlite closed")
	}
	table := tableName(slot)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	create := "CREATE TABLE " + table + ` (
		idx INTEGER PRIMARY KEY,
		date TEXT NOT NULL,
		open REAL, high REAL, low REAL, close REAL, volume REAL
	)`
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (idx, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, b := range bars {
		if _, err := stmt.ExecContext(ctx, i, b.Stamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of rows stored for slot.
func (s *SQLite) Count(ctx context.Context, slot market.SlotID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName(slot)).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
