package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"annot/internal/config"
	annerrors "annot/internal/errors"
	"annot/internal/journal"
	"annot/internal/oracle"
	"annot/internal/reconcile"
	"annot/internal/slogutil"
	"annot/internal/store"
	"annot/internal/syntax"
	"annot/internal/workspace"
)

// app holds what a command needs. Fields beyond ws, cfg and logger are
// filled by withStore and withEngine.
type app struct {
	ws      *workspace.Workspace
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	journal *journal.DB
	engine  *reconcile.Engine

	logs    *slogutil.LoggerFactory
	closers []io.Closer
}

// newApp discovers the workspace, loads its configuration and builds the
// command logger. Logs go to stderr so stdout stays parseable.
func newApp() (*app, error) {
	start := rootFlag
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, annerrors.New(annerrors.InternalError, "failed to get current directory", err)
		}
		start = cwd
	}

	var ws *workspace.Workspace
	var err error
	if rootFlag != "" {
		ws = workspace.Open(start, nil)
	} else if ws, err = workspace.Discover(start, nil); err != nil {
		return nil, err
	}

	result, err := config.LoadConfigWithDetails(ws.Root)
	if err != nil {
		return nil, annerrors.New(annerrors.InvalidArgument, "invalid configuration", err)
	}

	logs := slogutil.NewLoggerFactory(ws.Root, result.Config, cliLevel())
	logger := logs.CLILogger(os.Stderr)
	for _, ov := range result.EnvOverrides {
		logger.Debug("Config override from environment", "env", ov.EnvVar, "path", ov.Path)
	}

	return &app{
		ws:     workspace.Open(ws.Root, logger),
		cfg:    result.Config,
		logger: logger,
		logs:   logs,
	}, nil
}

// cliLevel is nil unless -v or -q was given.
func cliLevel() *slog.Level {
	if verbosity == 0 && !quiet {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}

// withStore opens the annotation document.
func (a *app) withStore() *app {
	a.store = store.New(store.Options{
		Dir:      a.cfg.StorageDir(a.ws.Root),
		FileName: a.cfg.Storage.FileName,
		Logger:   a.logger,
	})
	a.store.Subscribe(func(e store.Event) {
		a.logger.Debug("Document changed", "kind", string(e.Kind), "revision", e.Revision, "path", e.Path)
	})
	return a
}

// openJournal opens the operation journal when it is enabled and the
// workspace exists. A journal that cannot be opened is logged and skipped.
func (a *app) openJournal() *journal.DB {
	if a.journal != nil || !a.cfg.Journal.Enabled || !a.ws.Initialized {
		return a.journal
	}
	db, err := journal.Open(a.ws.DataDir(), a.logger)
	if err != nil {
		a.logger.Warn("Journal unavailable", "error", err.Error())
		return nil
	}
	a.journal = db
	a.closers = append(a.closers, db)
	return db
}

// withEngine builds the synchronization engine on top of the store.
func (a *app) withEngine() (*app, error) {
	if a.store == nil {
		a.withStore()
	}
	client, err := oracle.NewClient(oracle.Options{
		BaseURL:  a.cfg.Oracle.URL,
		BasePath: a.cfg.Oracle.BasePath,
		Timeout:  a.cfg.Timeout(),
		Endpoints: oracle.Endpoints{
			GetState:                        a.cfg.Oracle.Endpoints.GetState,
			Check:                           a.cfg.Oracle.Endpoints.Check,
			CreateSpace:                     a.cfg.Oracle.Endpoints.CreateSpace,
			CreateTermInterpretation:        a.cfg.Oracle.Endpoints.CreateTermInterpretation,
			CreateConstructorInterpretation: a.cfg.Oracle.Endpoints.CreateConstructorInterpretation,
		},
		Logger: a.logger,
	})
	if err != nil {
		return nil, err
	}

	patterns, err := a.cfg.TodoPatterns()
	if err != nil {
		return nil, err
	}
	opts := reconcile.Options{
		Store:        a.store,
		Oracle:       client,
		Logger:       a.logger,
		TodoPatterns: patterns,
	}
	if db := a.openJournal(); db != nil {
		opts.Journal = db
	}
	if a.cfg.Syntax.Enabled && syntax.Available() {
		classifier, err := syntax.NewClassifier(a.cfg.Syntax.CacheSize, a.logger)
		if err != nil {
			a.logger.Warn("Syntax classifier unavailable", "error", err.Error())
		} else {
			opts.Classifier = classifier
		}
	}
	a.engine = reconcile.New(opts)
	return a, nil
}

// fileContext resolves path to the absolute name annotations are stored
// under and reads its current text.
func (a *app) fileContext(ctx context.Context, path string) (reconcile.FileContext, error) {
	abs := a.ws.Resolve(path)
	text, err := a.ws.ReadSource(ctx, abs)
	if err != nil {
		return reconcile.FileContext{}, err
	}
	return reconcile.FileContext{Path: abs, Text: text}, nil
}

// close releases the journal and log files.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Debug("Close failed", "error", err.Error())
		}
	}
	_ = a.logs.Close()
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printResponse writes resp in the selected output format.
func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, outputFormat())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
