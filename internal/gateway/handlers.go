package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/backtest"
	"github.com/overcomerlin/hybrid-backtest/internal/model"
	redisstore "github.com/overcomerlin/hybrid-backtest/internal/store/redis"
	"github.com/overcomerlin/hybrid-backtest/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RunRequest is the POST /api/run body. Either Prices carries the series
// inline, or Params.Series names a stored series, or Bars requests a
// synthetic series.
type RunRequest struct {
	model.RunParams
	Indicator string    `json:"indicator,omitempty"` // SMA (default) or EMA
	Prices    []float64 `json:"prices,omitempty"`
	Bars      int       `json:"bars,omitempty"`
	Seed      int64     `json:"seed,omitempty"`
}

// RunResponse is the POST /api/run reply.
type RunResponse struct {
	Run         model.RunRecord `json:"run"`
	EquityCurve []float64       `json:"equity_curve"`
}

// RunFunc executes a backtest for the gateway. The implementation owns
// persistence, publishing, and progress streaming.
type RunFunc func(ctx context.Context, req RunRequest) (model.RunRecord, []float64, error)

// RegisterRoutes registers all HTTP routes on the provided mux.
// runsDB and recentRuns may be nil when the corresponding store is not
// configured; the affected endpoints degrade to in-memory state.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, run RunFunc, runsDB *sqlite.Reader, recentRuns *redisstore.Reader, rdb *goredis.Client, processStart time.Time) {
	// WebSocket endpoint: live equity points for all runs
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.AddClient(NewClient(hub, conn))
	})

	// REST: execute a backtest
	mux.HandleFunc("/api/run", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}

		rec, curve, err := run(r.Context(), req)
		if err != nil {
			writeRunError(w, err)
			return
		}

		hub.SetLatest(rec, curve)
		json.NewEncoder(w).Encode(RunResponse{Run: rec, EquityCurve: curve})
	})

	// REST: most recent completed run
	mux.HandleFunc("/api/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		rec, curve := hub.Latest()
		if rec == nil && runsDB != nil {
			stored, err := runsDB.ReadLatestRun()
			if err == nil && stored != nil {
				rec = stored
				if c, err := runsDB.ReadEquityCurve(stored.RunID); err == nil {
					curve = c
				}
			}
		}
		if rec == nil && recentRuns != nil {
			stored, err := recentRuns.ReadLatestRun(r.Context())
			if err == nil && stored != nil {
				rec = stored
			}
		}
		if rec == nil {
			http.Error(w, `{"error":"no runs yet"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(RunResponse{Run: *rec, EquityCurve: curve})
	})

	// REST: recent run records (redis stream backed)
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		limit := int64(20)
		if s := r.URL.Query().Get("limit"); s != "" {
			if l, err := strconv.ParseInt(s, 10, 64); err == nil && l > 0 && l <= 500 {
				limit = l
			}
		}

		if recentRuns != nil {
			records, err := recentRuns.ReadRecentRuns(r.Context(), limit)
			if err == nil {
				json.NewEncoder(w).Encode(records)
				return
			}
			log.Printf("[gateway] recent runs read error: %v", err)
		}

		// Fallback: just the in-memory latest
		if rec, _ := hub.Latest(); rec != nil {
			json.NewEncoder(w).Encode([]model.RunRecord{*rec})
			return
		}
		json.NewEncoder(w).Encode([]model.RunRecord{})
	})

	// Health endpoint
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := rdb != nil
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				redisOK = false
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// writeRunError maps engine errors to HTTP status codes: bad parameters and
// bad data are client errors, everything else is a 500.
func writeRunError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var cfgErr *backtest.ConfigError
	var dataErr *backtest.DataError
	if errors.As(err, &cfgErr) || errors.As(err, &dataErr) {
		status = http.StatusBadRequest
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
