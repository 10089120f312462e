// Package store owns the persisted annotation document.
//
// The document is a single JSON file rewritten in full on every save. All
// mutations go through Update, which holds an in-process mutex and an
// advisory file lock for the whole load, mutate and save cycle. Every save
// checks the document revision so a stale in-memory copy is never written
// over a newer one.
package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	annerrors "annot/internal/errors"
	"annot/internal/slogutil"
)

// DefaultFileName is the document file name inside the storage directory.
const DefaultFileName = "annotations.json"

const lockFileName = "annotations.lock"

// EventKind names what happened to the document.
type EventKind string

const (
	EventSaved    EventKind = "saved"
	EventMigrated EventKind = "migrated"
	EventRestored EventKind = "restored"
	EventExternal EventKind = "external"
)

// Event is delivered to subscribers after the document changes.
type Event struct {
	Kind     EventKind
	Revision int64
	Path     string
}

// Options configures a Store.
type Options struct {
	// Dir is the storage directory holding the document, lock and backups.
	Dir string
	// FileName defaults to DefaultFileName.
	FileName string
	Logger   *slog.Logger
	// Now is the clock used for timestamps; defaults to time.Now.
	Now func() time.Time
}

// Store reads and writes one annotation document.
type Store struct {
	dir       string
	path      string
	lockPath  string
	backupDir string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []Event // delivered once the locks are released

	subsMu  sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a store. Nothing is touched on disk until the first call.
func New(opts Options) *Store {
	fileName := opts.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		dir:       opts.Dir,
		path:      filepath.Join(opts.Dir, fileName),
		lockPath:  filepath.Join(opts.Dir, lockFileName),
		backupDir: filepath.Join(opts.Dir, "backups"),
		logger:    logger,
		now:       now,
		subs:      make(map[int]func(Event)),
	}
}

// Path is the document location.
func (s *Store) Path() string { return s.path }

// Dir is the storage directory.
func (s *Store) Dir() string { return s.dir }

// Init writes the empty default document if none exists. It reports
// whether a document was created.
func (s *Store) Init(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return false, fmt.Errorf("creating storage directory: %w", err)
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking annotation document: %w", err)
	}
	if err := s.write(NewDocument()); err != nil {
		return false, err
	}
	s.logger.Info("Created annotation document", "path", s.path)
	return true, nil
}

// Load reads the full document. Legacy documents are migrated, backed up
// and rewritten in canonical form on first load.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	raw, err := s.readRaw()
	if err != nil {
		return nil, err
	}
	doc, report, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return doc, nil
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.loadLocked()
}

// Save writes doc if its revision still matches the stored one. Saving an
// unchanged document is a no-op.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.loadLocked()
	if err != nil {
		return err
	}
	if doc.Revision != current.Revision {
		return annerrors.Newf(annerrors.DocumentConflict,
			"document changed on disk (revision %d, have %d)", current.Revision, doc.Revision)
	}
	return s.saveLocked(doc)
}

// Update runs fn on the freshly loaded document and saves the result. An
// error from fn aborts without writing. The returned document is the saved
// state.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) (*Document, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.saveLocked(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// lock takes the in-process mutex, then the cross-process file lock.
func (s *Store) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	fl, err := acquireFileLock(ctx, s.lockPath)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return func() {
		events := s.pending
		s.pending = nil
		fl.release()
		s.mu.Unlock()
		for _, e := range events {
			s.notify(e)
		}
	}, nil
}

func (s *Store) readRaw() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, annerrors.New(annerrors.StorageMissing,
			fmt.Sprintf("annotation document %s does not exist", s.path), err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading annotation document: %w", err)
	}
	return raw, nil
}

// loadLocked reads the document, migrating a legacy one in place.
func (s *Store) loadLocked() (*Document, error) {
	raw, err := s.readRaw()
	if err != nil {
		return nil, err
	}
	doc, report, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return doc, nil
	}

	name, err := s.writeBackup(raw, "migrate_"+report.Shape)
	if err != nil {
		return nil, err
	}
	report.Backup = name
	if err := s.write(doc); err != nil {
		return nil, err
	}
	s.logger.Warn("Migrated legacy annotation document",
		"shape", report.Shape,
		"terms", report.Terms,
		"constructors", report.Constructors,
		"spaces", report.Spaces,
		"warnings", len(report.Warnings),
		"backup", name,
	)
	for _, w := range report.Warnings {
		s.logger.Warn("Migration warning", "detail", w)
	}
	s.pending = append(s.pending, Event{Kind: EventMigrated, Revision: doc.Revision, Path: s.path})
	return doc, nil
}

// saveLocked validates and writes doc, bumping its revision, unless the
// encoded document is identical to what is on disk.
func (s *Store) saveLocked(doc *Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	if unchanged, err := s.sameAsDisk(doc); err == nil && unchanged {
		return nil
	}

	doc.Revision++
	if err := s.write(doc); err != nil {
		doc.Revision--
		return err
	}
	s.logger.Debug("Saved annotation document", "revision", doc.Revision, "terms", len(doc.Terms))
	s.pending = append(s.pending, Event{Kind: EventSaved, Revision: doc.Revision, Path: s.path})
	return nil
}

func (s *Store) sameAsDisk(doc *Document) (bool, error) {
	onDisk, err := os.ReadFile(s.path)
	if err != nil {
		return false, err
	}
	encoded, err := encodeDocument(doc)
	if err != nil {
		return false, err
	}
	return bytes.Equal(onDisk, encoded), nil
}

// write replaces the document atomically via a temp file and rename.
func (s *Store) write(doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".annotations-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing annotation document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing annotation document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing annotation document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replacing annotation document: %w", err)
	}
	return nil
}

// Subscribe registers fn for document events. The returned func removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(e Event) {
	s.subsMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Restore replaces the document with a backup. The current document is
// backed up first so a restore can itself be undone.
func (s *Store) Restore(ctx context.Context, name string) (*Document, error) {
	raw, err := s.readBackup(name)
	if err != nil {
		return nil, annerrors.New(annerrors.NotFound, fmt.Sprintf("backup %s", name), err)
	}
	restored, _, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	revision := int64(0)
	if current, err := s.readRaw(); err == nil {
		if _, err := s.writeBackup(current, "pre_restore"); err != nil {
			return nil, err
		}
		if doc, _, err := decodeDocument(current); err == nil {
			revision = doc.Revision
		}
	} else if !annerrors.Is(err, annerrors.StorageMissing) {
		return nil, err
	}

	restored.Revision = revision + 1
	if err := s.write(restored); err != nil {
		return nil, err
	}
	s.logger.Info("Restored annotation document", "backup", name, "revision", restored.Revision)
	s.pending = append(s.pending, Event{Kind: EventRestored, Revision: restored.Revision, Path: s.path})
	return restored, nil
}
