package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// FetchLogRecord describes how one historical-data request was served.
// It never carries the ticks themselves.
type FetchLogRecord struct {
	ID           int64  `json:"id"`
	TS           int64  `json:"ts"`
	RequestID    string `json:"request_id"`
	ClientID     string `json:"client_id"`
	Symbol       string `json:"symbol"`
	SecurityID   string `json:"security_id"`
	Date         string `json:"date"`
	Source       string `json:"source"`
	Success      bool   `json:"success"`
	DataPoints   int    `json:"data_points"`
	PrimaryError string `json:"primary_error"`
	Error        string `json:"error"`
	CreatedAt    string `json:"created_at"`
}

type SecurityID struct {
	Symbol          string `json:"symbol"`
	SecurityID      string `json:"security_id"`
	ExchangeSegment string `json:"exchange_segment"`
	UpdatedAt       string `json:"updated_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/proxy.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			request_id TEXT,
			client_id TEXT,
			symbol TEXT,
			security_id TEXT,
			date TEXT,
			source TEXT,
			success INTEGER,
			data_points INTEGER,
			primary_error TEXT,
			error TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_log_ts ON fetch_log(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_log_symbol ON fetch_log(symbol);`,
		`CREATE TABLE IF NOT EXISTS security_ids (
			symbol TEXT PRIMARY KEY,
			security_id TEXT NOT NULL,
			exchange_segment TEXT,
			updated_at TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertFetchLog(ctx context.Context, rec FetchLogRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if rec.TS == 0 {
		rec.TS = time.Now().Unix()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().Format(time.RFC3339)
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_log (ts, request_id, client_id, symbol, security_id, date, source, success, data_points, primary_error, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TS, rec.RequestID, rec.ClientID, rec.Symbol, rec.SecurityID, rec.Date, rec.Source, success, rec.DataPoints, rec.PrimaryError, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fetch log: %w", err)
	}
	return nil
}

// QueryFetchLog returns newest rows first. An empty symbol matches every row.
func (s *Store) QueryFetchLog(ctx context.Context, symbol string, limit int, offset int) ([]FetchLogRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, ts, request_id, client_id, symbol, security_id, date, source, success, data_points, primary_error, error, created_at
		FROM fetch_log`
	var args []any
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, strings.ToUpper(symbol))
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetch log: %w", err)
	}
	defer rows.Close()

	var out []FetchLogRecord
	for rows.Next() {
		var r FetchLogRecord
		var success int
		if err := rows.Scan(&r.ID, &r.TS, &r.RequestID, &r.ClientID, &r.Symbol, &r.SecurityID, &r.Date, &r.Source, &success, &r.DataPoints, &r.PrimaryError, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log: %w", err)
		}
		r.Success = success == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows fetch log: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertSecurityID(ctx context.Context, rec SecurityID) error {
	if s == nil || s.db == nil {
		return nil
	}
	rec.Symbol = strings.ToUpper(strings.TrimSpace(rec.Symbol))
	if rec.Symbol == "" || rec.SecurityID == "" {
		return fmt.Errorf("upsert security id: symbol and security id are required")
	}
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO security_ids (symbol, security_id, exchange_segment, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET security_id=excluded.security_id, exchange_segment=excluded.exchange_segment, updated_at=excluded.updated_at`,
		rec.Symbol, rec.SecurityID, rec.ExchangeSegment, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert security id: %w", err)
	}
	return nil
}

// LookupSecurityID returns sql.ErrNoRows (wrapped) when the symbol is unknown.
func (s *Store) LookupSecurityID(ctx context.Context, symbol string) (*SecurityID, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, security_id, exchange_segment, updated_at FROM security_ids WHERE symbol = ?`,
		strings.ToUpper(strings.TrimSpace(symbol)),
	)
	var rec SecurityID
	if err := row.Scan(&rec.Symbol, &rec.SecurityID, &rec.ExchangeSegment, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("lookup security id: %w", err)
	}
	return &rec, nil
}
