package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/overcomerlin/hybrid-backtest/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Reader provides read access to published run records.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a Reader over an existing client.
func NewReader(client *goredis.Client) *Reader {
	return &Reader{client: client}
}

// ReadRecentRuns returns up to n of the most recent run records from the run
// stream, newest first.
func (r *Reader) ReadRecentRuns(ctx context.Context, n int64) ([]model.RunRecord, error) {
	key := (&model.RunRecord{}).StreamKey()
	msgs, err := r.client.XRevRangeN(ctx, key, "+", "-", n).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis XREVRANGE %s: %w", key, err)
	}

	records := make([]model.RunRecord, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var rec model.RunRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadLatestRun returns the most recently published run record, or nil if
// none has been published yet.
func (r *Reader) ReadLatestRun(ctx context.Context) (*model.RunRecord, error) {
	data, err := r.client.Get(ctx, "bt:runs:latest").Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET bt:runs:latest: %w", err)
	}

	var rec model.RunRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &rec, nil
}
