package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	opts     LoadOptions
	path     string
	onChange func(Config)
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher watches the file cfg was loaded from. opts must be the options
// cfg was loaded with so a reload applies the same env and flag overrides.
func NewWatcher(cfg Config, opts LoadOptions, onChange func(Config), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	opts.ConfigPath = cfg.Path
	return &Watcher{
		opts:     opts,
		path:     cfg.Path,
		onChange: onChange,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
}

// WithDebounce sets how long writes must settle before a reload.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is cancelled. It watches the file's directory so
// editors that replace the file on save are still seen. A reload that fails
// validation is logged and the previous config stays in effect.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	filename := filepath.Base(w.path)
	w.logger.Info("Watching config file", "path", w.path)

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(w.opts)
			if err != nil {
				w.logger.Warn("Config reload rejected", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("Config reloaded", "path", w.path)
			w.onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
