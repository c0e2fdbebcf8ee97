// Package inbox turns a drop file into publish runs.
package inbox

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the content of the inbox file. A nil error means the
// content was consumed and the file may be removed.
type Handler func(ctx context.Context, content string) error

// Watch watches the file at path until ctx is cancelled. Each settled write
// (no further events for debounce) hands the file's content to h; on success
// the file is removed, on failure it is left for the next write or restart.
// Calls to h never overlap.
//
// The parent directory is watched rather than the file so the inbox can be
// created, replaced, or removed freely.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, h Handler) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("inbox: watching", slog.String("path", path))

	// A file left over from before start-up is processed right away.
	consume(ctx, path, logger, h)

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("inbox: stopped")
			return nil

		case <-fire:
			consume(ctx, path, logger, h)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func consume(ctx context.Context, path string, logger *slog.Logger, h Handler) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("inbox: read failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		logger.Debug("inbox: empty, skipped", slog.String("path", path))
		return
	}

	if err := h(ctx, content); err != nil {
		logger.Error("inbox: run failed, keeping file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("inbox: remove failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
