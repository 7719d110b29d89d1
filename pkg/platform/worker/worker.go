// Package worker runs background maintenance tasks (session and profile sweeps)
// on a fixed interval, independent of request handling.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Task performs one pass and reports how many items it touched.
type Task func(ctx context.Context) (int, error)

type Periodic struct {
	name     string
	interval time.Duration
	task     Task
	logger   *slog.Logger
}

func NewPeriodic(name string, interval time.Duration, task Task, logger *slog.Logger) *Periodic {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Periodic{name: name, interval: interval, task: task, logger: logger}
}

// Run executes the task every interval until ctx is cancelled. A failed pass is
// logged and retried on the next tick.
func (p *Periodic) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single pass.
func (p *Periodic) RunOnce(ctx context.Context) {
	start := time.Now()
	n, err := p.task(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "background task failed", "task", p.name, "error", err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "background task completed",
			"task", p.name,
			"items", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
