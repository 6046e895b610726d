// Package redis publishes backtest results to Redis Streams and PubSub so
// dashboards and downstream consumers can follow runs live.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/overcomerlin/hybrid-backtest/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: keep the last ~1000 run records
	runStreamMaxLen  = 1000
	defaultLatestTTL = 30 * time.Minute
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes run records and live equity points to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Redis Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishRun writes a completed run record: XADD to the run stream with
// auto-trimming, SET latest with TTL, and PUBLISH for live subscribers.
func (p *Publisher) PublishRun(ctx context.Context, rec model.RunRecord) error {
	jsonData := string(rec.JSON())

	pipe := p.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: rec.StreamKey(),
		MaxLen: runStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "bt:runs:latest", jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:runs", jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish run %s: %w", rec.RunID, err)
	}
	return nil
}

// PublishEquityBatch publishes a batch of live equity points in a single
// pipeline. Points are PubSub-only: the durable curve lives in SQLite.
func (p *Publisher) PublishEquityBatch(ctx context.Context, points []model.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for i := range points {
		pt := &points[i]
		pipe.Publish(ctx, pt.PubSubChannel(), string(pt.JSON()))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis equity batch (%d points): %w", len(points), err)
	}
	return nil
}

// Run drains equity points from pointCh and publishes them in batches.
// Blocks until ctx is cancelled or pointCh is closed.
func (p *Publisher) Run(ctx context.Context, pointCh <-chan model.EquityPoint) {
	const batchMax = 256
	batch := make([]model.EquityPoint, 0, batchMax)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.PublishEquityBatch(ctx, batch); err != nil {
			log.Printf("[redis] %v", err)
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case pt, ok := <-pointCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, pt)
			if len(batch) >= batchMax {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
