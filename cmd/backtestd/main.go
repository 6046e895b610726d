// cmd/backtestd serves backtests over HTTP: POST /api/run executes a
// crossover backtest, WS /ws streams the equity curve live, and completed
// runs are persisted to SQLite and published to Redis when configured.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/overcomerlin/hybrid-backtest/config"
	"github.com/overcomerlin/hybrid-backtest/internal/backtest"
	"github.com/overcomerlin/hybrid-backtest/internal/gateway"
	"github.com/overcomerlin/hybrid-backtest/internal/logger"
	"github.com/overcomerlin/hybrid-backtest/internal/metrics"
	"github.com/overcomerlin/hybrid-backtest/internal/model"
	"github.com/overcomerlin/hybrid-backtest/internal/ringbuf"
	parquetstore "github.com/overcomerlin/hybrid-backtest/internal/store/parquet"
	redisstore "github.com/overcomerlin/hybrid-backtest/internal/store/redis"
	sqlitestore "github.com/overcomerlin/hybrid-backtest/internal/store/sqlite"
	"github.com/overcomerlin/hybrid-backtest/internal/synth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("backtestd", slog.LevelInfo)
	slog.Info("starting backtestd")

	cfg := config.Load()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite (optional) ----
	var (
		sqlWriter *sqlitestore.Writer
		sqlReader *sqlitestore.Reader
	)
	if cfg.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			log.Fatalf("[backtestd] create data dir: %v", err)
		}
		var err error
		sqlWriter, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Fatalf("[backtestd] sqlite init failed: %v", err)
		}
		defer sqlWriter.Close()

		sqlReader, err = sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[backtestd] sqlite reader init failed: %v", err)
		}
		defer sqlReader.Close()

		health.SetSQLiteOK(true)
		slog.Info("sqlite ready", "path", cfg.SQLitePath)
	}

	// ---- Redis (optional) ----
	var (
		publisher   *redisstore.Publisher
		buffered    *redisstore.BufferedPublisher
		redisReader *redisstore.Reader
	)
	if cfg.RedisAddr != "" {
		var err error
		publisher, err = redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slog.Warn("redis init failed, continuing without redis", "err", err)
			health.SetRedisConnected(false)
		} else {
			defer publisher.Close()
			health.SetRedisConnected(true)

			cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
			cb.OnStateChange = func(from, to redisstore.State) {
				slog.Info("redis circuit state change", "from", from.String(), "to", to.String())
			}
			buffered = redisstore.NewBufferedPublisher(ctx, publisher, cb, 1000)
			buffered.OnBuffer = func() {
				slog.Warn("run record buffered during redis outage", "pending", buffered.PendingCount())
			}
			redisReader = redisstore.NewReader(publisher.Client())
			slog.Info("redis ready", "addr", cfg.RedisAddr)
		}
	}

	// ---- Liveness checks ----
	if publisher != nil || sqlWriter != nil {
		var rdb *goredis.Client
		if publisher != nil {
			rdb = publisher.Client()
		}
		var db *sql.DB
		if sqlWriter != nil {
			db = sqlWriter.DB()
		}
		health.StartLivenessChecker(ctx, rdb, db, 15*time.Second)
	}

	// ---- Parquet export (optional) ----
	var parquet *parquetstore.Store
	if cfg.ParquetDir != "" {
		parquet = parquetstore.NewStore(cfg.ParquetDir)
	}

	// ---- Equity streaming: engine -> ring -> ws hub ----
	ring := ringbuf.New(1 << 14)
	hub := gateway.NewHub()
	hub.OnClientChange = func(count int) {
		prom.WSClients.Set(float64(count))
	}
	go hub.StreamFromRing(ctx, ring)

	// Live equity points for redis subscribers, off the hot path
	var pointCh chan model.EquityPoint
	if publisher != nil {
		pointCh = make(chan model.EquityPoint, 4096)
		go publisher.Run(ctx, pointCh)
	}

	// The ring is single-producer, so runs execute one at a time.
	var runMu sync.Mutex

	runFn := func(reqCtx context.Context, req gateway.RunRequest) (model.RunRecord, []float64, error) {
		runMu.Lock()
		defer runMu.Unlock()

		params := req.RunParams
		if params.FastWindow == 0 {
			params.FastWindow = cfg.FastWindow
		}
		if params.SlowWindow == 0 {
			params.SlowWindow = cfg.SlowWindow
		}
		if params.InitialCapital == 0 {
			params.InitialCapital = cfg.InitialCapital
		}

		prices, err := resolvePrices(req, params, sqlReader, cfg)
		if err != nil {
			prom.RunsTotal.WithLabelValues("error").Inc()
			return model.RunRecord{}, nil, err
		}

		startedAt := time.Now()
		runID := logger.GenerateRunID("run", startedAt)
		runCtx := logger.WithRunID(reqCtx, runID)
		slog.Info("run starting", append(logger.LogWithRun(runCtx),
			"bars", len(prices), "fast", params.FastWindow, "slow", params.SlowWindow)...)

		engine, err := backtest.New(params.InitialCapital)
		if err != nil {
			prom.RunsTotal.WithLabelValues("error").Inc()
			return model.RunRecord{}, nil, err
		}
		if err := engine.Load(prices); err != nil {
			prom.RunsTotal.WithLabelValues("error").Inc()
			return model.RunRecord{}, nil, err
		}
		if req.Indicator != "" {
			engine.SetIndicator(req.Indicator)
		}
		engine.SetProgress(func(index int, price, equity float64) {
			pt := model.EquityPoint{RunID: runID, Index: index, Price: price, Equity: equity}
			if !ring.Push(pt) {
				prom.StreamDrops.Inc()
			}
			if pointCh != nil {
				select {
				case pointCh <- pt:
				default:
					prom.StreamDrops.Inc()
				}
			}
		})

		result, err := engine.Run(params.FastWindow, params.SlowWindow)
		if err != nil {
			prom.RunsTotal.WithLabelValues("error").Inc()
			return model.RunRecord{}, nil, err
		}

		prom.RunsTotal.WithLabelValues("ok").Inc()
		prom.BarsProcessed.Add(float64(result.Summary.Bars))
		prom.RunDuration.Observe(result.Summary.Duration.Seconds())
		prom.FinalEquity.Set(result.Summary.FinalEquity)
		for _, fill := range result.Fills {
			prom.FillsTotal.WithLabelValues(string(fill.Signal.Action)).Inc()
		}
		health.RecordRun()

		rec := model.RunRecord{
			RunID:          runID,
			Params:         params,
			Bars:           result.Summary.Bars,
			WarmupBars:     result.Summary.WarmupBars,
			Fills:          result.Summary.Fills,
			FinalEquity:    result.Summary.FinalEquity,
			ReturnPct:      result.Summary.ReturnPct,
			MaxDrawdownPct: result.Summary.MaxDrawdownPct,
			Duration:       result.Summary.Duration,
			StartedAt:      startedAt,
		}

		if sqlWriter != nil {
			if err := sqlWriter.SaveRun(rec, result.EquityCurve); err != nil {
				slog.Error("sqlite save failed", append(logger.LogWithRun(runCtx), "err", err)...)
			}
		}
		if buffered != nil {
			if err := buffered.PublishRun(rec); err != nil {
				slog.Error("redis publish failed", append(logger.LogWithRun(runCtx), "err", err)...)
			}
		}
		if parquet != nil {
			if err := parquet.WriteEquityCurve(runID, result.EquityCurve); err != nil {
				slog.Error("parquet export failed", append(logger.LogWithRun(runCtx), "err", err)...)
			}
		}

		slog.Info("run complete", append(logger.LogWithRun(runCtx),
			"fills", rec.Fills, "final_equity", rec.FinalEquity, "duration", rec.Duration.String())...)
		return rec, result.EquityCurve, nil
	}

	// ---- HTTP server ----
	mux := http.NewServeMux()
	if publisher != nil {
		gateway.RegisterRoutes(mux, hub, runFn, sqlReader, redisReader, publisher.Client(), time.Now())
	} else {
		gateway.RegisterRoutes(mux, hub, runFn, sqlReader, nil, nil, time.Now())
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[backtestd] http server error: %v", err)
		}
	}()

	// ---- Wait for shutdown ----
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slog.Info("shutdown complete")
}

// resolvePrices picks the input series for a run: inline prices, a stored
// series, or a deterministic synthetic walk.
func resolvePrices(req gateway.RunRequest, params model.RunParams, sqlReader *sqlitestore.Reader, cfg *config.Config) ([]float64, error) {
	switch {
	case len(req.Prices) > 0:
		return req.Prices, nil

	case params.Series != "":
		if sqlReader == nil {
			return nil, &backtest.ConfigError{Msg: "named series requires sqlite (set SQLITE_PATH)"}
		}
		prices, err := sqlReader.ReadPrices(params.Series)
		if err != nil {
			return nil, fmt.Errorf("read series %q: %w", params.Series, err)
		}
		if len(prices) == 0 {
			return nil, &backtest.DataError{Msg: fmt.Sprintf("series %q not found or empty", params.Series)}
		}
		return prices, nil

	default:
		bars := req.Bars
		if bars <= 0 {
			bars = cfg.SynthBars
		}
		seed := req.Seed
		if seed == 0 {
			seed = cfg.SynthSeed
		}
		return synth.RandomWalk(synth.Config{Bars: bars, Seed: seed}), nil
	}
}
