// cmd/backtest runs a single moving-average crossover backtest from the
// command line, against either a stored price series or a deterministic
// synthetic walk.
//
// Usage:
//
//	go run ./cmd/backtest --bars=10000 --seed=42 --fast=50 --slow=200
//	go run ./cmd/backtest --bars=10000 --db=data/backtest.db --save-series=synthetic
//	go run ./cmd/backtest --db=data/backtest.db --series=synthetic
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/backtest"
	"github.com/overcomerlin/hybrid-backtest/internal/logger"
	"github.com/overcomerlin/hybrid-backtest/internal/model"
	parquetstore "github.com/overcomerlin/hybrid-backtest/internal/store/parquet"
	sqlitestore "github.com/overcomerlin/hybrid-backtest/internal/store/sqlite"
	"github.com/overcomerlin/hybrid-backtest/internal/synth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	bars := flag.Int("bars", 10000, "Synthetic series length (ignored when --series is set)")
	seed := flag.Int64("seed", 42, "Synthetic series RNG seed")
	fast := flag.Int("fast", 50, "Fast moving-average window")
	slow := flag.Int("slow", 200, "Slow moving-average window")
	indType := flag.String("indicator", "SMA", "Moving-average type: SMA or EMA")
	capital := flag.Float64("capital", 10000, "Initial capital")
	dbPath := flag.String("db", "", "SQLite database path (for --series/--save-series/--persist)")
	series := flag.String("series", "", "Named price series to load from SQLite or Parquet")
	saveSeries := flag.String("save-series", "", "Persist the input series under this name (requires --db and/or --parquet)")
	parquetDir := flag.String("parquet", "", "Parquet data directory for series I/O and equity export")
	persist := flag.Bool("persist", false, "Save the run and equity curve to SQLite (requires --db)")
	flag.Parse()

	var parquet *parquetstore.Store
	if *parquetDir != "" {
		parquet = parquetstore.NewStore(*parquetDir)
	}

	// Load or generate the price series
	var prices []float64
	switch {
	case *series != "" && *dbPath != "":
		reader, err := sqlitestore.NewReader(*dbPath)
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer reader.Close()

		prices, err = reader.ReadPrices(*series)
		if err != nil {
			log.Fatalf("[backtest] read series %q: %v", *series, err)
		}
		if len(prices) == 0 {
			log.Fatalf("[backtest] series %q is empty", *series)
		}

	case *series != "" && parquet != nil:
		var err error
		prices, err = parquet.ReadPrices(*series)
		if err != nil {
			log.Fatalf("[backtest] read series %q: %v", *series, err)
		}
		if len(prices) == 0 {
			log.Fatalf("[backtest] series %q is empty", *series)
		}

	case *series != "":
		log.Fatal("[backtest] --series requires --db or --parquet")

	default:
		prices = synth.RandomWalk(synth.Config{Bars: *bars, Seed: *seed})
	}

	// Ingest: store the input series for later --series runs
	if *saveSeries != "" {
		if *dbPath == "" && parquet == nil {
			log.Fatal("[backtest] --save-series requires --db or --parquet")
		}
		if *dbPath != "" {
			writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
			if err != nil {
				log.Fatalf("[backtest] sqlite open failed: %v", err)
			}
			if err := writer.SavePrices(*saveSeries, prices); err != nil {
				writer.Close()
				log.Fatalf("[backtest] save series %q: %v", *saveSeries, err)
			}
			writer.Close()
			log.Printf("[backtest] series %q saved to %s (%d bars)", *saveSeries, *dbPath, len(prices))
		}
		if parquet != nil {
			if err := parquet.WritePrices(*saveSeries, prices); err != nil {
				log.Fatalf("[backtest] save series %q: %v", *saveSeries, err)
			}
			log.Printf("[backtest] series %q saved to %s (%d bars)", *saveSeries, *parquetDir, len(prices))
		}
	}

	// Run
	engine, err := backtest.New(*capital)
	if err != nil {
		log.Fatalf("[backtest] engine init failed: %v", err)
	}
	engine.SetIndicator(*indType)
	if err := engine.Load(prices); err != nil {
		log.Fatalf("[backtest] load failed: %v", err)
	}

	startedAt := time.Now()
	result, err := engine.Run(*fast, *slow)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}

	runID := logger.GenerateRunID("cli", startedAt)
	rec := model.RunRecord{
		RunID: runID,
		Params: model.RunParams{
			Series:         *series,
			FastWindow:     *fast,
			SlowWindow:     *slow,
			InitialCapital: *capital,
		},
		Bars:           result.Summary.Bars,
		WarmupBars:     result.Summary.WarmupBars,
		Fills:          result.Summary.Fills,
		FinalEquity:    result.Summary.FinalEquity,
		ReturnPct:      result.Summary.ReturnPct,
		MaxDrawdownPct: result.Summary.MaxDrawdownPct,
		Duration:       result.Summary.Duration,
		StartedAt:      startedAt,
	}

	// Optional persistence
	if *persist {
		if *dbPath == "" {
			log.Fatal("[backtest] --persist requires --db")
		}
		writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
		if err != nil {
			log.Fatalf("[backtest] sqlite open failed: %v", err)
		}
		defer writer.Close()
		if err := writer.SaveRun(rec, result.EquityCurve); err != nil {
			log.Fatalf("[backtest] save run: %v", err)
		}
	}
	if parquet != nil {
		if err := parquet.WriteEquityCurve(runID, result.EquityCurve); err != nil {
			log.Fatalf("[backtest] parquet export: %v", err)
		}
		log.Printf("[backtest] equity curve exported to %s", *parquetDir)
	}

	// Print summary
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Run ID:          %-18s ║\n", truncate(runID, 18))
	fmt.Printf("║  Bars:            %-18d ║\n", result.Summary.Bars)
	fmt.Printf("║  Warm-up bars:    %-18d ║\n", result.Summary.WarmupBars)
	fmt.Printf("║  Fills:           %-18d ║\n", result.Summary.Fills)
	fmt.Printf("║  Final equity:    %-18.2f ║\n", result.Summary.FinalEquity)
	fmt.Printf("║  Return:          %-17.2f%% ║\n", result.Summary.ReturnPct)
	fmt.Printf("║  Max drawdown:    %-17.2f%% ║\n", result.Summary.MaxDrawdownPct)
	fmt.Printf("║  Duration:        %-18v ║\n", result.Summary.Duration.Round(time.Microsecond))
	fmt.Println("╚══════════════════════════════════════╝")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
