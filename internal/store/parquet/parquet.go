// Package parquet exports price series and equity curves as Parquet files so
// runs can be analyzed offline with standard columnar tooling.
package parquet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// Store reads and writes backtest artifacts under a data directory.
type Store struct {
	DataDir string
}

// NewStore creates a Store rooted at the given data directory.
func NewStore(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

// PriceRecord is the Parquet schema for a price series bar.
type PriceRecord struct {
	Series string  `parquet:"series"`
	Index  int64   `parquet:"index"`
	Price  float64 `parquet:"price"`
}

// EquityRecord is the Parquet schema for one equity curve bar.
type EquityRecord struct {
	RunID  string  `parquet:"run_id"`
	Index  int64   `parquet:"index"`
	Equity float64 `parquet:"equity"`
}

// WritePrices writes a price series to <DataDir>/prices/<series>.parquet.
func (s *Store) WritePrices(series string, prices []float64) error {
	records := make([]PriceRecord, len(prices))
	for i, p := range prices {
		records[i] = PriceRecord{Series: series, Index: int64(i), Price: p}
	}
	if err := writeFile(s.pricePath(series), records); err != nil {
		return fmt.Errorf("writing prices for %s: %w", series, err)
	}
	return nil
}

// ReadPrices reads a price series back, ordered by bar index.
func (s *Store) ReadPrices(series string) ([]float64, error) {
	records, err := parquet.ReadFile[PriceRecord](s.pricePath(series))
	if err != nil {
		return nil, fmt.Errorf("reading prices for %s: %w", series, err)
	}
	prices := make([]float64, len(records))
	for _, r := range records {
		if r.Index >= 0 && r.Index < int64(len(prices)) {
			prices[r.Index] = r.Price
		}
	}
	return prices, nil
}

// WriteEquityCurve writes a run's equity curve to
// <DataDir>/equity/<run_id>.parquet.
func (s *Store) WriteEquityCurve(runID string, curve []float64) error {
	records := make([]EquityRecord, len(curve))
	for i, e := range curve {
		records[i] = EquityRecord{RunID: runID, Index: int64(i), Equity: e}
	}
	if err := writeFile(s.equityPath(runID), records); err != nil {
		return fmt.Errorf("writing equity curve for %s: %w", runID, err)
	}
	return nil
}

// ReadEquityCurve reads a run's equity curve back, ordered by bar index.
func (s *Store) ReadEquityCurve(runID string) ([]float64, error) {
	records, err := parquet.ReadFile[EquityRecord](s.equityPath(runID))
	if err != nil {
		return nil, fmt.Errorf("reading equity curve for %s: %w", runID, err)
	}
	curve := make([]float64, len(records))
	for _, r := range records {
		if r.Index >= 0 && r.Index < int64(len(curve)) {
			curve[r.Index] = r.Equity
		}
	}
	return curve, nil
}

// pricePath returns <dataDir>/prices/<series>.parquet.
func (s *Store) pricePath(series string) string {
	return filepath.Join(s.DataDir, "prices", series+".parquet")
}

// equityPath returns <dataDir>/equity/<runID>.parquet.
func (s *Store) equityPath(runID string) string {
	return filepath.Join(s.DataDir, "equity", runID+".parquet")
}

func writeFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}
