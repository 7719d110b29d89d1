package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sanctum/pkg/platform/audit"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader watches a policy file and swaps the engine's rules when it changes.
// A file that fails to parse or validate leaves the current rules in place.
type Reloader struct {
	engine   *Engine
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

type ReloaderOption func(*Reloader)

func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *Reloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

func WithReloadLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) { r.logger = logger }
}

// NewReloader watches the directory holding path, so editors that replace the
// file by rename are still observed.
func NewReloader(engine *Engine, path string, opts ...ReloaderOption) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	r := &Reloader{
		engine:   engine,
		path:     abs,
		watcher:  watcher,
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close stops watching. It is safe to call after Run has returned.
func (r *Reloader) Close() error { return r.watcher.Close() }

// Run blocks until ctx is cancelled, reloading once writes have settled for
// the debounce interval.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(r.debounce)
			}

		case <-timer.C:
			r.reload(ctx)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.WarnContext(ctx, "policy watcher error", "error", err)
		}
	}
}

func (r *Reloader) reload(ctx context.Context) {
	hash, err := r.engine.Load(r.path)
	if err != nil {
		r.engine.metrics.incReload("failed")
		r.logger.ErrorContext(ctx, "policy reload failed, keeping current rules", "path", r.path, "error", err)
		_ = r.engine.record(ctx, audit.EventPolicyReloadFailed, audit.SeverityInfo, map[string]any{
			"path":  r.path,
			"error": err.Error(),
		})
		return
	}
	r.engine.metrics.incReload("ok")
	dataTypes := r.engine.DataTypes()
	r.logger.InfoContext(ctx, "policy reloaded", "path", r.path, "hash", hash, "data_types", len(dataTypes))
	_ = r.engine.record(ctx, audit.EventPolicyReloaded, audit.SeverityInfo, map[string]any{
		"path":       r.path,
		"hash":       hash,
		"data_types": dataTypes,
	})
}
