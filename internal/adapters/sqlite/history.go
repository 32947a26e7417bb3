package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pnlmonitor/internal/domain"
	"pnlmonitor/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// HistoryRepository implements ports.TradeHistoryRepository using SQLite.
// It stores raw executions keyed by trading day; the engine rebuilds trade
// pairs and metrics from them, so nothing derived is persisted.
type HistoryRepository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite history repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewHistoryRepository creates a new SQLite history repository instance.
func NewHistoryRepository(cfg Config) (*HistoryRepository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite history repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/pnl_monitor.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "History repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "History repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "History repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver works best with a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &HistoryRepository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "History repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Trade history database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *HistoryRepository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS executions (
		order_id TEXT PRIMARY KEY,
		trade_date TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		commission REAL NOT NULL DEFAULT 0,
		filled_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		exchange TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_executions_trade_date ON executions (trade_date);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *HistoryRepository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing trade history database")
		return r.db.Close()
	}
	return nil
}

// LoadAll retrieves the full trade history keyed by trading day, executions
// ordered by fill time within each day.
func (r *HistoryRepository) LoadAll(ctx context.Context) (map[string][]*domain.Execution, error) {
	const query = `
	SELECT order_id, trade_date, symbol, side, quantity, price, commission, filled_at, status, exchange
	FROM executions
	ORDER BY trade_date, filled_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]*domain.Execution)
	for rows.Next() {
		var (
			exec domain.Execution
			day  string
			side string
			stat string
		)
		if err := rows.Scan(&exec.OrderID, &day, &exec.Symbol, &side, &exec.Quantity,
			&exec.Price, &exec.Commission, &exec.Timestamp, &stat, &exec.Exchange); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}
		exec.Side = domain.OrderSide(side)
		exec.Status = domain.OrderStatus(stat)
		history[day] = append(history[day], &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return history, nil
}

// SaveDay replaces the stored executions for one trading day. The whole set
// for the day is rewritten each time so partial past writes cannot leak
// stale records into the history.
func (r *HistoryRepository) SaveDay(ctx context.Context, day string, execs []*domain.Execution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for day %s: %w", day, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM executions WHERE trade_date = ?`, day); err != nil {
		return fmt.Errorf("failed to clear executions for day %s: %w", day, err)
	}

	const insert = `
	INSERT INTO executions (order_id, trade_date, symbol, side, quantity, price, commission, filled_at, status, exchange)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, exec := range execs {
		if _, err := tx.ExecContext(ctx, insert,
			exec.OrderID, day, exec.Symbol, string(exec.Side), exec.Quantity,
			exec.Price, exec.Commission, exec.Timestamp, string(exec.Status), exec.Exchange); err != nil {
			return fmt.Errorf("failed to insert execution %s for day %s: %w", exec.OrderID, day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit day %s: %w", day, err)
	}
	r.logger.Debug(ctx, "Trade history day saved", map[string]interface{}{"day": day, "executions": len(execs)})
	return nil
}
