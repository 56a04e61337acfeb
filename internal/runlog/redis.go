// Package runlog publishes run summaries and guards against overlapping runs.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

const (
	// EventScrapeRun is the pub/sub channel dashboards subscribe to.
	EventScrapeRun = "EVENT_SCRAPE_RUN"
	// HistoryKey holds the most recent run records, newest first.
	HistoryKey = "scrape_runs"

	historyLength = 100
)

// Redis appends run records to a capped list and announces them on a channel.
type Redis struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedis constructs a Redis run log.
func NewRedis(rdb *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger.With(zap.String("component", "runlog"))}
}

// AppendRun pushes r onto the history list and publishes it. Publish failures
// are logged only; the list is the durable record.
func (l *Redis) AppendRun(ctx context.Context, r model.RunRecord) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, HistoryKey, payload)
	pipe.LTrim(ctx, HistoryKey, 0, historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append run record: %w", err)
	}

	if err := l.rdb.Publish(ctx, EventScrapeRun, payload).Err(); err != nil {
		l.logger.Warn("publish run record failed", zap.String("run_id", r.RunID), zap.Error(err))
	}
	return nil
}

// Recent returns up to n run records, newest first.
func (l *Redis) Recent(ctx context.Context, n int64) ([]model.RunRecord, error) {
	raw, err := l.rdb.LRange(ctx, HistoryKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read run history: %w", err)
	}
	out := make([]model.RunRecord, 0, len(raw))
	for _, s := range raw {
		var r model.RunRecord
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode run record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
