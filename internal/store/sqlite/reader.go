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

// Reader provides read-only access to stored price series and runs.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadPrices reads a stored price series ordered by bar index.
func (r *Reader) ReadPrices(series string) ([]float64, error) {
	rows, err := r.db.Query(`
		SELECT price FROM prices
		WHERE series = ?
		ORDER BY idx ASC
	`, series)
	if err != nil {
		return nil, fmt.Errorf("sqlite query prices: %w", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("sqlite scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// ReadLatestRun loads the most recently started run record.
// Returns nil if no runs exist.
func (r *Reader) ReadLatestRun() (*model.RunRecord, error) {
	var (
		rec        model.RunRecord
		params     string
		durationUs int64
		startedAt  int64
	)
	err := r.db.QueryRow(`
		SELECT run_id, params, bars, warmup_bars, fills, final_equity, return_pct, max_drawdown_pct, duration_us, started_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&rec.RunID, &params, &rec.Bars, &rec.WarmupBars, &rec.Fills,
		&rec.FinalEquity, &rec.ReturnPct, &rec.MaxDrawdownPct, &durationUs, &startedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read latest run: %w", err)
	}

	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return nil, fmt.Errorf("unmarshal run params: %w", err)
	}
	rec.Duration = time.Duration(durationUs) * time.Microsecond
	rec.StartedAt = time.Unix(startedAt, 0).UTC()
	return &rec, nil
}

// ReadEquityCurve reads the stored equity curve for a run, ordered by bar index.
func (r *Reader) ReadEquityCurve(runID string) ([]float64, error) {
	rows, err := r.db.Query(`
		SELECT equity FROM equity_curve
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query equity_curve: %w", err)
	}
	defer rows.Close()

	var curve []float64
	for rows.Next() {
		var e float64
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("sqlite scan equity: %w", err)
		}
		curve = append(curve, e)
	}
	return curve, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
