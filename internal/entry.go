// Package internal wires configuration, storage, the catalog, and the
// publish pipeline into the operations the CLI exposes.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/dailynote/internal/archive"
	"github.com/starford/dailynote/internal/inbox"
	"github.com/starford/dailynote/internal/index"
	"github.com/starford/dailynote/internal/mcpserver"
	"github.com/starford/dailynote/internal/notebook"
	"github.com/starford/dailynote/internal/publish"
	"github.com/starford/dailynote/internal/runner"
	"github.com/starford/dailynote/internal/storage"
)

// workspace holds the components opened for one command.
type workspace struct {
	app   *application
	store *storage.FS
	db    *index.DB
	nb    *notebook.Service
}

func (w *workspace) Close() {
	if w.db != nil {
		w.db.Close()
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		// stdout carries command output and the MCP stdio stream.
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	if app.runner == nil {
		app.runner = runner.ExecRunner{}
	}
	if app.clock == nil {
		app.clock = time.Now
	}
	return app, nil
}

// open initializes storage, the optional catalog, and the notebook service.
// With syncCatalog set, the catalog is reconciled with the archive directory
// before use.
func open(opts []Option, syncCatalog bool) (*workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	store, err := storage.NewFS(cfg.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	w := &workspace{app: app, store: store}
	if p := cfg.IndexPath(); p != "" {
		db, err := index.Open(p)
		if err != nil {
			app.logger.Warn("catalog unavailable", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			w.db = db
		}
	}

	a := archive.NewArchiver(store, cfg.Archive.Dir, app.clock)
	var catalog index.EntryIndex
	if w.db != nil {
		catalog = w.db
	}
	w.nb = notebook.NewService(store, a, catalog, cfg.Document.Path, app.logger)

	if syncCatalog && w.db != nil {
		if err := index.Sync(w.db, store, cfg.Archive.Dir, app.logger); err != nil {
			app.logger.Warn("catalog sync failed", slog.String("error", err.Error()))
		}
	}
	return w, nil
}

func (w *workspace) orchestrator() (*publish.Orchestrator, error) {
	return publish.New(w.app.config.Workflow(), w.nb, w.app.runner,
		publish.WithClock(w.app.clock),
		publish.WithLogger(w.app.logger))
}

func (w *workspace) publish(ctx context.Context, o *publish.Orchestrator, content string) (*publish.Result, error) {
	if t := w.app.config.Publish.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return o.Run(ctx, content)
}

// Publish updates the document with content and lands it through a pull
// request with auto-merge enabled.
func Publish(ctx context.Context, content string, opts ...Option) (*publish.Result, error) {
	w, err := open(opts, false)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	o, err := w.orchestrator()
	if err != nil {
		return nil, err
	}
	return w.publish(ctx, o, content)
}

// Update performs only the document step: archive the current Today body
// and replace it with content. Nothing is committed.
func Update(ctx context.Context, content string, opts ...Option) (*notebook.UpdateResult, error) {
	w, err := open(opts, false)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.nb.UpdateToday(ctx, content)
}

// Today returns the current Today body.
func Today(ctx context.Context, opts ...Option) (string, error) {
	w, err := open(opts, false)
	if err != nil {
		return "", err
	}
	defer w.Close()
	return w.nb.Today(ctx)
}

// ReadEntry returns one archived body.
func ReadEntry(ctx context.Context, id string, opts ...Option) (string, error) {
	w, err := open(opts, false)
	if err != nil {
		return "", err
	}
	defer w.Close()
	return w.nb.ReadEntry(ctx, id)
}

// ListArchive returns catalog rows newest first.
func ListArchive(ctx context.Context, limit, offset int, tag string, opts ...Option) ([]index.EntryRow, int, error) {
	w, err := open(opts, true)
	if err != nil {
		return nil, 0, err
	}
	defer w.Close()
	return w.nb.ListArchive(ctx, limit, offset, tag)
}

// SearchArchive runs a full-text query over archived entries.
func SearchArchive(ctx context.Context, query string, limit int, opts ...Option) ([]index.SearchResult, error) {
	w, err := open(opts, true)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.nb.Search(ctx, query, limit)
}

// Reindex rebuilds the catalog from the archive directory.
func Reindex(ctx context.Context, opts ...Option) error {
	w, err := open(opts, false)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.nb.Reindex(ctx)
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	w, err := open(opts, true)
	if err != nil {
		return err
	}
	defer w.Close()

	o, err := w.orchestrator()
	if err != nil {
		return err
	}
	srv := mcpserver.New(w.nb, publisherFunc(func(ctx context.Context, content string) (*publish.Result, error) {
		return w.publish(ctx, o, content)
	}))
	w.app.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

type publisherFunc func(ctx context.Context, content string) (*publish.Result, error)

func (f publisherFunc) Run(ctx context.Context, content string) (*publish.Result, error) {
	return f(ctx, content)
}

// Watch publishes the inbox file each time it settles, until ctx is
// cancelled or the process receives SIGINT or SIGTERM.
func Watch(ctx context.Context, opts ...Option) error {
	w, err := open(opts, false)
	if err != nil {
		return err
	}
	defer w.Close()

	o, err := w.orchestrator()
	if err != nil {
		return err
	}
	cfg := w.app.config
	logger := w.app.logger

	logger.Info("Configuration loaded",
		slog.String("repo", cfg.Repo.Path),
		slog.String("document", cfg.Document.Path),
		slog.String("inbox", cfg.InboxPath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return inbox.Watch(watchCtx, cfg.InboxPath(), cfg.Inbox.Debounce, logger,
			func(ctx context.Context, content string) error {
				_, err := w.publish(ctx, o, content)
				return err
			})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-watchCtx.Done():
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Watcher stopped")
	return nil
}
