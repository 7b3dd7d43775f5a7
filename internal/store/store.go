package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"doubleauction/internal/auction"
	"doubleauction/internal/common"
	"doubleauction/internal/config"
	"doubleauction/internal/engine"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

var ErrRunNotFound = errors.New("run not found")

// Store persists finished auction runs for later analysis.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Run is a persisted auction run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Config    config.Config
	Summary   auction.Summary
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			config TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			total_trades INTEGER NOT NULL,
			total_surplus REAL NOT NULL,
			average_price REAL NOT NULL,
			ce_price REAL NOT NULL,
			ce_quantity INTEGER NOT NULL,
			ce_buyer_surplus REAL NOT NULL,
			ce_seller_surplus REAL NOT NULL,
			ce_total_surplus REAL NOT NULL,
			surplus_difference REAL NOT NULL,
			efficiency REAL NOT NULL,
			negative_surplus INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT NOT NULL REFERENCES runs(id),
			trade_id INTEGER NOT NULL,
			round INTEGER NOT NULL,
			buyer_id INTEGER NOT NULL,
			seller_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			price REAL NOT NULL,
			buyer_value REAL NOT NULL,
			seller_cost REAL NOT NULL,
			PRIMARY KEY (run_id, trade_id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_book (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			price REAL NOT NULL,
			quantity INTEGER NOT NULL,
			notional REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveRun writes a finished run, its settled trades and its order-book log in
// one transaction.
func (s *Store) SaveRun(ctx context.Context, cfg config.Config, summary auction.Summary, trades []common.Trade, book []engine.BookEntry) error {
	rawConfig, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	eq := summary.Equilibrium
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, config, rounds, total_trades, total_surplus, average_price,
			ce_price, ce_quantity, ce_buyer_surplus, ce_seller_surplus, ce_total_surplus,
			surplus_difference, efficiency, negative_surplus)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, s.now().UnixMilli(), string(rawConfig), summary.Rounds, summary.TotalTrades,
		summary.TotalSurplus, summary.AveragePrice,
		eq.Price, eq.Quantity, eq.BuyerSurplus, eq.SellerSurplus, eq.TotalSurplus,
		summary.SurplusDifference, summary.Efficiency, summary.NegativeSurplus,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	for _, t := range trades {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, trade_id, round, buyer_id, seller_id, quantity, price, buyer_value, seller_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID, int64(t.ID), t.Round, t.BuyerID, t.SellerID, int64(t.Quantity),
			t.Price, t.BuyerValue, t.SellerCost,
		)
		if err != nil {
			return fmt.Errorf("insert trade %d: %w", t.ID, err)
		}
	}

	for i, entry := range book {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_book (run_id, seq, price, quantity, notional) VALUES (?, ?, ?, ?, ?)`,
			summary.RunID, i, entry.Price, int64(entry.Quantity), entry.Notional,
		)
		if err != nil {
			return fmt.Errorf("insert order book entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, created_at, config, rounds, total_trades, total_surplus, average_price,
	ce_price, ce_quantity, ce_buyer_surplus, ce_seller_surplus, ce_total_surplus,
	surplus_difference, efficiency, negative_surplus`

// Runs lists every stored run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Run loads a single run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		createdAt int64
		rawConfig string
		eq        common.Equilibrium
	)
	err := row.Scan(
		&run.ID, &createdAt, &rawConfig, &run.Summary.Rounds, &run.Summary.TotalTrades,
		&run.Summary.TotalSurplus, &run.Summary.AveragePrice,
		&eq.Price, &eq.Quantity, &eq.BuyerSurplus, &eq.SellerSurplus, &eq.TotalSurplus,
		&run.Summary.SurplusDifference, &run.Summary.Efficiency, &run.Summary.NegativeSurplus,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := yaml.Unmarshal([]byte(rawConfig), &run.Config); err != nil {
		return Run{}, fmt.Errorf("decode config of run %s: %w", run.ID, err)
	}

	run.CreatedAt = time.UnixMilli(createdAt)
	run.Summary.RunID = run.ID
	run.Summary.Equilibrium = eq
	return run, nil
}

// Trades returns a run's settled trades in settlement order.
func (s *Store) Trades(ctx context.Context, runID string) ([]common.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, round, buyer_id, seller_id, quantity, price, buyer_value, seller_cost
		FROM trades WHERE run_id = ? ORDER BY trade_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []common.Trade
	for rows.Next() {
		var (
			t       common.Trade
			id, qty int64
		)
		if err := rows.Scan(&id, &t.Round, &t.BuyerID, &t.SellerID, &qty, &t.Price, &t.BuyerValue, &t.SellerCost); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.ID, t.Quantity = uint64(id), uint64(qty)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// OrderBook returns a run's order-book log, oldest first.
func (s *Store) OrderBook(ctx context.Context, runID string) ([]engine.BookEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT price, quantity, notional FROM order_book WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query order book: %w", err)
	}
	defer rows.Close()

	var book []engine.BookEntry
	for rows.Next() {
		var (
			entry engine.BookEntry
			qty   int64
		)
		if err := rows.Scan(&entry.Price, &qty, &entry.Notional); err != nil {
			return nil, fmt.Errorf("scan order book entry: %w", err)
		}
		entry.Quantity = uint64(qty)
		book = append(book, entry)
	}
	return book, rows.Err()
}
