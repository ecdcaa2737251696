// Package sqlitestore хранит дела в локальном файле SQLite для однонодового режима.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/sscs-hearings-service/internal/domain"
)

type Config struct {
	BusyTimeout time.Duration
	// MaxOpenConns = 1 сериализует записи и исключает SQLITE_BUSY при апгрейде транзакции.
	MaxOpenConns int
}

func DefaultConfig() Config {
	return Config{BusyTimeout: 5 * time.Second, MaxOpenConns: 1}
}

type Store struct {
	db *sql.DB
}

// Open открывает базу с WAL и busy_timeout на каждом соединении пула и создаёт схему.
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS cases (
  case_id TEXT PRIMARY KEY,
  version INTEGER NOT NULL,
  payload BLOB NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(ctx context.Context, caseID string) (domain.CaseSnapshot, int64, error) {
	var (
		version int64
		raw     []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, payload FROM cases WHERE case_id = ?`, caseID).Scan(&version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	if err != nil {
		return domain.CaseSnapshot{}, 0, err
	}
	var c domain.CaseSnapshot
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("decode case %s: %w", caseID, err)
	}
	c.CaseID = caseID
	return c, version, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, caseID string, expected int64, next domain.CaseSnapshot) (bool, int64, error) {
	next.CaseID = caseID
	raw, err := json.Marshal(next)
	if err != nil {
		return false, 0, fmt.Errorf("encode case %s: %w", caseID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET payload = ?, version = version + 1 WHERE case_id = ? AND version = ?`,
		raw, caseID, expected)
	if err != nil {
		return false, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		return true, expected + 1, nil
	}
	var current int64
	err = s.db.QueryRowContext(ctx, `SELECT version FROM cases WHERE case_id = ?`, caseID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	if err != nil {
		return false, 0, err
	}
	return false, current, nil
}

func (s *Store) Insert(ctx context.Context, c domain.CaseSnapshot) (int64, error) {
	if c.CaseID == "" {
		return 0, fmt.Errorf("%w: case without id", domain.ErrValidation)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO cases(case_id, version, payload) VALUES(?, 1, ?)`, c.CaseID, raw)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrCaseExists, c.CaseID)
		}
		return 0, err
	}
	return 1, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

var (
	_ domain.CaseStore  = (*Store)(nil)
	_ domain.CaseSeeder = (*Store)(nil)
)
