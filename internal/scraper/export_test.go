package scraper

import (
	"context"
	"time"
)

// SetSleep replaces the politeness sleep so tests can observe it without waiting.
func (o *Orchestrator) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	o.sleep = f
}
