package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TradeWarden/internal/model"
)

// SQLiteStore keeps the instrument and holding collections in a SQLite
// database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap("open", err)
	}

	// WAL mode so the dashboard can read while the session writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, wrap("set WAL mode", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instrument (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL UNIQUE,
			exchange   TEXT NOT NULL,
			wallet     REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holding (
			symbol         TEXT PRIMARY KEY,
			buy_price      REAL NOT NULL,
			position_price REAL NOT NULL,
			quantity       INTEGER NOT NULL,
			product_type   TEXT NOT NULL,
			direction      TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return wrap("migrate", fmt.Errorf("exec %q: %w", stmt[:40], err))
		}
	}
	return nil
}

func (s *SQLiteStore) FindInstrument(symbol string) (*model.InstrumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT id, symbol, exchange, wallet, created_at FROM instrument WHERE symbol = ?`, symbol)
	var rec model.InstrumentRecord
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.Symbol, &rec.Exchange, &rec.Wallet, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("find instrument", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

func (s *SQLiteStore) AllInstruments() ([]model.InstrumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, symbol, exchange, wallet, created_at FROM instrument`)
	if err != nil {
		return nil, wrap("all instruments", err)
	}
	defer rows.Close()

	var recs []model.InstrumentRecord
	for rows.Next() {
		var rec model.InstrumentRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Exchange, &rec.Wallet, &createdAt); err != nil {
			return nil, wrap("all instruments", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		recs = append(recs, rec)
	}
	return recs, wrap("all instruments", rows.Err())
}

func (s *SQLiteStore) SaveInstrument(rec model.InstrumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO instrument (id, symbol, exchange, wallet, created_at) VALUES (?,?,?,?,?)`,
		rec.ID, rec.Symbol, rec.Exchange, rec.Wallet, rec.CreatedAt.Unix())
	return wrap("save instrument", err)
}

func (s *SQLiteStore) UpdateInstrumentWallet(symbol string, wallet float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE instrument SET wallet = ? WHERE symbol = ?`, wallet, symbol)
	return wrap("update instrument wallet", err)
}

func (s *SQLiteStore) DeleteInstrument(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM instrument WHERE symbol = ?`, symbol)
	return wrap("delete instrument", err)
}

func (s *SQLiteStore) FindHolding(symbol string) (*model.HoldingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT symbol, buy_price, position_price, quantity, product_type, direction
		 FROM holding WHERE symbol = ?`, symbol)
	rec, err := scanHolding(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap("find holding", err)
	}
	return rec, nil
}

func (s *SQLiteStore) AllHoldings() ([]model.HoldingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT symbol, buy_price, position_price, quantity, product_type, direction FROM holding`)
	if err != nil {
		return nil, wrap("all holdings", err)
	}
	defer rows.Close()

	var recs []model.HoldingRecord
	for rows.Next() {
		rec, err := scanHolding(rows.Scan)
		if err != nil {
			return nil, wrap("all holdings", err)
		}
		recs = append(recs, *rec)
	}
	return recs, wrap("all holdings", rows.Err())
}

func (s *SQLiteStore) SaveHolding(rec model.HoldingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO holding (symbol, buy_price, position_price, quantity, product_type, direction)
		 VALUES (?,?,?,?,?,?)`,
		rec.Symbol, rec.BuyPrice, rec.PositionPrice, rec.Quantity,
		string(rec.ProductType), string(rec.Direction))
	return wrap("save holding", err)
}

func (s *SQLiteStore) UpdateHolding(rec model.HoldingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE holding SET buy_price = ?, position_price = ?, quantity = ?,
		 product_type = ?, direction = ? WHERE symbol = ?`,
		rec.BuyPrice, rec.PositionPrice, rec.Quantity,
		string(rec.ProductType), string(rec.Direction), rec.Symbol)
	return wrap("update holding", err)
}

func (s *SQLiteStore) DeleteHolding(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM holding WHERE symbol = ?`, symbol)
	return wrap("delete holding", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanHolding(scan func(dest ...any) error) (*model.HoldingRecord, error) {
	var rec model.HoldingRecord
	var product, direction string
	if err := scan(&rec.Symbol, &rec.BuyPrice, &rec.PositionPrice, &rec.Quantity,
		&product, &direction); err != nil {
		return nil, err
	}
	rec.ProductType = model.ProductType(product)
	rec.Direction = model.Direction(direction)
	return &rec, nil
}
