package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type WatchItem struct {
	Market    string `json:"market"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type Snapshot struct {
	Market     string  `json:"market"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Current    float64 `json:"current"`
	Opening    float64 `json:"opening"`
	Close      float64 `json:"close"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Change     float64 `json:"change"`
	Percentage float64 `json:"percentage"`
	UpdateAt   string  `json:"update_at"`
	CreatedAt  string  `json:"created_at"`
}

type AlertRule struct {
	ID        string  `json:"id"`
	Market    string  `json:"market"`
	Code      string  `json:"code"`
	Upper     float64 `json:"upper"`
	Lower     float64 `json:"lower"`
	CreatedAt string  `json:"created_at"`
}

type AlertEvent struct {
	ID        int64   `json:"id"`
	RuleID    string  `json:"rule_id"`
	Market    string  `json:"market"`
	Code      string  `json:"code"`
	Price     float64 `json:"price"`
	Direction string  `json:"direction"`
	Message   string  `json:"message"`
	TS        int64   `json:"ts"`
	CreatedAt string  `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/app.db"
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
		`CREATE TABLE IF NOT EXISTS watchlist (
			market TEXT NOT NULL,
			code TEXT NOT NULL,
			name TEXT,
			created_at TEXT,
			PRIMARY KEY (market, code)
		);`,
		`CREATE TABLE IF NOT EXISTS market_snapshot (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			market TEXT NOT NULL,
			code TEXT NOT NULL,
			name TEXT,
			current REAL,
			opening REAL,
			close REAL,
			high REAL,
			low REAL,
			change REAL,
			percentage REAL,
			update_at TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_market_snapshot_code ON market_snapshot(market, code);`,
		`CREATE INDEX IF NOT EXISTS idx_market_snapshot_id ON market_snapshot(id);`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			market TEXT NOT NULL,
			code TEXT NOT NULL,
			upper REAL,
			lower REAL,
			created_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS alert_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_id TEXT,
			market TEXT,
			code TEXT,
			price REAL,
			direction TEXT,
			message TEXT,
			ts INTEGER NOT NULL,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alert_events_ts ON alert_events(ts);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) AddWatch(w WatchItem) error {
	if s == nil || s.db == nil {
		return nil
	}
	if w.Market == "" || w.Code == "" {
		return fmt.Errorf("watch item needs market and code")
	}
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO watchlist (market, code, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(market, code) DO UPDATE SET name=excluded.name`,
		w.Market, w.Code, w.Name, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add watch: %w", err)
	}
	return nil
}

// RemoveWatch reports whether the item existed.
func (s *Store) RemoveWatch(market, code string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res, err := s.db.Exec(`DELETE FROM watchlist WHERE market = ? AND code = ?`, market, code)
	if err != nil {
		return false, fmt.Errorf("remove watch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove watch: %w", err)
	}
	return n > 0, nil
}

// ListWatch returns the watchlist for one market, or all markets when
// market is empty.
func (s *Store) ListWatch(market string) ([]WatchItem, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	query := `SELECT market, code, name, created_at FROM watchlist`
	args := []any{}
	if market != "" {
		query += ` WHERE market = ?`
		args = append(args, market)
	}
	query += ` ORDER BY market, code`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()
	var out []WatchItem
	for rows.Next() {
		var w WatchItem
		if err := rows.Scan(&w.Market, &w.Code, &w.Name, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows watchlist: %w", err)
	}
	return out, nil
}

func (s *Store) InsertSnapshot(snap Snapshot) error {
	if s == nil || s.db == nil {
		return nil
	}
	if snap.CreatedAt == "" {
		snap.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO market_snapshot (market, code, name, current, opening, close, high, low, change, percentage, update_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Market, snap.Code, snap.Name, snap.Current, snap.Opening, snap.Close, snap.High, snap.Low, snap.Change, snap.Percentage, snap.UpdateAt, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) RecentSnapshots(market, code string, limit int) ([]Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := s.db.Query(
		`SELECT market, code, name, current, opening, close, high, low, change, percentage, update_at, created_at
		 FROM market_snapshot WHERE market = ? AND code = ?
		 ORDER BY id DESC LIMIT ?`,
		market, code, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.Market, &snap.Code, &snap.Name, &snap.Current, &snap.Opening, &snap.Close, &snap.High, &snap.Low, &snap.Change, &snap.Percentage, &snap.UpdateAt, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows snapshots: %w", err)
	}
	return out, nil
}

func (s *Store) InsertAlertRule(r AlertRule) error {
	if s == nil || s.db == nil {
		return nil
	}
	if r.ID == "" {
		return fmt.Errorf("alert rule needs an id")
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO alert_rules (id, market, code, upper, lower, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Market, r.Code, r.Upper, r.Lower, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	return nil
}

func (s *Store) ListAlertRules() ([]AlertRule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(`SELECT id, market, code, upper, lower, created_at FROM alert_rules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query alert rules: %w", err)
	}
	defer rows.Close()
	var out []AlertRule
	for rows.Next() {
		var r AlertRule
		if err := rows.Scan(&r.ID, &r.Market, &r.Code, &r.Upper, &r.Lower, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows alert rules: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteAlertRule(id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res, err := s.db.Exec(`DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete alert rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete alert rule: %w", err)
	}
	return n > 0, nil
}

func (s *Store) InsertAlertEvent(e AlertEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if e.TS == 0 {
		e.TS = time.Now().Unix()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO alert_events (rule_id, market, code, price, direction, message, ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RuleID, e.Market, e.Code, e.Price, e.Direction, e.Message, e.TS, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

func (s *Store) RecentAlertEvents(limit int) ([]AlertEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := s.db.Query(
		`SELECT id, rule_id, market, code, price, direction, message, ts, created_at
		 FROM alert_events ORDER BY ts DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alert events: %w", err)
	}
	defer rows.Close()
	var out []AlertEvent
	for rows.Next() {
		var e AlertEvent
		if err := rows.Scan(&e.ID, &e.RuleID, &e.Market, &e.Code, &e.Price, &e.Direction, &e.Message, &e.TS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows alert events: %w", err)
	}
	return out, nil
}
