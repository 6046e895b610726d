package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string // empty = redis disabled
	RedisPassword string
	SQLitePath    string // empty = sqlite disabled
	ParquetDir    string // empty = parquet export disabled
	MetricsAddr   string
	HTTPAddr      string

	// Run defaults
	FastWindow     int
	SlowWindow     int
	InitialCapital float64
	SynthBars      int
	SynthSeed      int64
}

// Load reads configuration from environment variables with sensible defaults.
// Stores are opt-in: an empty REDIS_ADDR or SQLITE_PATH runs the engine
// without that backend.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/backtest.db"),
		ParquetDir:    getEnv("PARQUET_DIR", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),

		FastWindow:     getEnvInt("FAST_WINDOW", 50),
		SlowWindow:     getEnvInt("SLOW_WINDOW", 200),
		InitialCapital: getEnvFloat("INITIAL_CAPITAL", 10000),
		SynthBars:      getEnvInt("SYNTH_BARS", 10000),
		SynthSeed:      int64(getEnvInt("SYNTH_SEED", 42)),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
