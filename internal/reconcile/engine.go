// Package reconcile keeps the local annotation document in step with the
// inference oracle. Every operation works on one explicit file and the
// oracle always confirms a fact before it is committed locally.
package reconcile

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"annot/internal/anchor"
	annerrors "annot/internal/errors"
	"annot/internal/journal"
	"annot/internal/oracle"
	"annot/internal/slogutil"
	"annot/internal/store"
)

// Oracle is the subset of the inference service the engine talks to.
type Oracle interface {
	GetState(ctx context.Context, req oracle.PopulateRequest) (*oracle.PopulateResponse, error)
	Check(ctx context.Context, req oracle.CheckRequest) ([]oracle.Term, error)
	CreateSpace(ctx context.Context, sp oracle.Space) error
	CreateTermInterpretation(ctx context.Context, t oracle.Term) error
	CreateConstructorInterpretation(ctx context.Context, c oracle.Constructor) error
}

// Classifier names the syntactic node covering a range. It is only used
// for notes the user adds by hand; populate takes node types from the oracle.
type Classifier interface {
	NodeTypeAt(ctx context.Context, path string, source []byte, r anchor.Range) string
}

// FileContext is the file an operation acts on, with its current text.
type FileContext struct {
	Path string
	Text string
}

// Options configures an Engine.
type Options struct {
	Store      *store.Store
	Oracle     Oracle
	Journal    journal.Recorder
	Classifier Classifier
	Logger     *slog.Logger

	// TodoPatterns are extra expressions for note text taken from a TODO
	// comment. The second capture group is the text.
	TodoPatterns []*regexp.Regexp
}

// Engine runs populate, check, edit and space creation.
type Engine struct {
	store        *store.Store
	oracle       Oracle
	journal      journal.Recorder
	classifier   Classifier
	logger       *slog.Logger
	guards       *guards
	todoPatterns []*regexp.Regexp
}

// New builds an engine. Journal, Classifier and Logger are optional.
func New(opts Options) *Engine {
	rec := opts.Journal
	if rec == nil {
		rec = journal.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Engine{
		store:        opts.Store,
		oracle:       opts.Oracle,
		journal:      rec,
		classifier:   opts.Classifier,
		logger:       logger,
		guards:       newGuards(opts.Store.Guard),
		todoPatterns: opts.TodoPatterns,
	}
}

// spacesKey guards space creation, which is not tied to a file.
const spacesKey = "\x00spaces"

// lockFunc takes a cross-process lock for key.
type lockFunc func(ctx context.Context, key string) (func(), error)

// guards hands out one weight-1 semaphore per key for callers in this
// process and, when lock is set, a file lock shared with other processes.
type guards struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
	lock lockFunc
}

func newGuards(lock lockFunc) *guards {
	return &guards{sems: make(map[string]*semaphore.Weighted), lock: lock}
}

func (g *guards) acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	sem, ok := g.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.sems[key] = sem
	}
	g.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, annerrors.New(annerrors.Cancelled, "gave up waiting for "+describeKey(key), err)
	}
	if g.lock == nil {
		return func() { sem.Release(1) }, nil
	}
	unlock, err := g.lock(ctx, key)
	if err != nil {
		sem.Release(1)
		return nil, err
	}
	return func() {
		unlock()
		sem.Release(1)
	}, nil
}

func describeKey(key string) string {
	switch key {
	case spacesKey:
		return "space registry"
	case notesKey:
		return "plain notes"
	}
	return key
}

// record writes a journal entry. Journal failures are logged, never returned.
func (e *Engine) record(ctx context.Context, op, file string, start time.Time, items int, err error) {
	entry := journal.Entry{
		Op:       op,
		File:     file,
		Outcome:  journal.OutcomeOf(err),
		Items:    items,
		Duration: time.Since(start),
		At:       start,
	}
	if err != nil {
		entry.Detail = err.Error()
	}
	if rerr := e.journal.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		e.logger.Warn("Failed to record journal entry", "op", op, "error", rerr.Error())
	}

	switch entry.Outcome {
	case journal.OutcomeOK:
		e.logger.Info("Operation finished", "op", op, "file", file, "items", items,
			"duration_ms", entry.Duration.Milliseconds())
	case journal.OutcomeCancelled:
		e.logger.Info("Operation cancelled", "op", op, "file", file)
	default:
		e.logger.Error("Operation failed", "op", op, "file", file, "outcome", string(entry.Outcome),
			"error", err.Error())
	}
}
