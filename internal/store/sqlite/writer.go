package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const insertBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/backtest.db"
}

// Writer persists price series, run records and equity curves.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prices (
			series     TEXT    NOT NULL,
			idx        INTEGER NOT NULL,
			price      REAL    NOT NULL,
			PRIMARY KEY (series, idx)
		);

		CREATE TABLE IF NOT EXISTS runs (
			run_id           TEXT    PRIMARY KEY,
			params           TEXT    NOT NULL,
			bars             INTEGER NOT NULL,
			warmup_bars      INTEGER NOT NULL,
			fills            INTEGER NOT NULL,
			final_equity     REAL    NOT NULL,
			return_pct       REAL    NOT NULL,
			max_drawdown_pct REAL    NOT NULL,
			duration_us      INTEGER NOT NULL,
			started_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS equity_curve (
			run_id TEXT    NOT NULL,
			idx    INTEGER NOT NULL,
			equity REAL    NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	return err
}

// SavePrices replaces the stored price series under the given name.
// Inserts run in batched transactions to keep memory bounded on large series.
func (w *Writer) SavePrices(series string, prices []float64) error {
	if _, err := w.db.Exec(`DELETE FROM prices WHERE series = ?`, series); err != nil {
		return fmt.Errorf("sqlite clear prices: %w", err)
	}

	for off := 0; off < len(prices); off += insertBatchSize {
		end := off + insertBatchSize
		if end > len(prices) {
			end = len(prices)
		}
		if err := w.insertPriceBatch(series, off, prices[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertPriceBatch(series string, base int, prices []float64) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO prices (series, idx, price) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, p := range prices {
		if _, err := stmt.Exec(series, base+i, p); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveRun persists a run record together with its full equity curve.
func (w *Writer) SaveRun(rec model.RunRecord, curve []float64) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}

	start := time.Now()
	_, err = w.db.Exec(`
		INSERT OR REPLACE INTO runs
			(run_id, params, bars, warmup_bars, fills, final_equity, return_pct, max_drawdown_pct, duration_us, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, string(params), rec.Bars, rec.WarmupBars, rec.Fills,
		rec.FinalEquity, rec.ReturnPct, rec.MaxDrawdownPct,
		rec.Duration.Microseconds(), rec.StartedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert run: %w", err)
	}

	for off := 0; off < len(curve); off += insertBatchSize {
		end := off + insertBatchSize
		if end > len(curve) {
			end = len(curve)
		}
		if err := w.insertEquityBatch(rec.RunID, off, curve[off:end]); err != nil {
			return err
		}
	}

	log.Printf("[sqlite] saved run %s (%d equity points) in %v", rec.RunID, len(curve), time.Since(start))
	return nil
}

func (w *Writer) insertEquityBatch(runID string, base int, curve []float64) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO equity_curve (run_id, idx, equity) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, e := range curve {
		if _, err := stmt.Exec(runID, base+i, e); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
