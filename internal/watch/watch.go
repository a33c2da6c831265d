// Package watch reruns a function when any of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long Run waits after the last event before rerunning.
const DefaultDelay = 100 * time.Millisecond

// Options configure Run.
type Options struct {
	Delay  time.Duration
	Logger *zap.Logger
}

// Run calls fn once, then again after every burst of changes to paths, until
// ctx is done. Errors from fn are logged and do not stop the loop.
//
// Parent directories are watched rather than the files, so files that are
// replaced by rename (as most editors save) keep being noticed.
func Run(ctx context.Context, paths []string, opts Options, fn func(context.Context) error) error {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	targets, err := absPaths(paths)
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for p := range targets {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Info("Watching for changes", zap.Int("files", len(targets)), zap.Int("dirs", len(dirs)))

	call := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Run failed", zap.Error(err))
		}
	}
	call()

	timer := time.NewTimer(opts.Delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !targets[name] {
				continue
			}
			logger.Debug("Change detected", zap.String("file", name), zap.Stringer("op", ev.Op))
			timer.Reset(opts.Delay)
		case <-timer.C:
			call()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func absPaths(paths []string) (map[string]bool, error) {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out[abs] = true
	}
	return out, nil
}
