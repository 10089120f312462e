// Package workspace is the environment around the annotation store: where
// the workspace root is and how source files are read.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	annerrors "annot/internal/errors"
	"annot/internal/paths"
	"annot/internal/slogutil"
)

// Workspace is a directory tree annot works in.
type Workspace struct {
	// Root is the directory holding .annot, or the start directory when none exists.
	Root string
	// Initialized reports whether Root holds a .annot directory.
	Initialized bool

	fs     afs.Service
	logger *slog.Logger
}

// Discover finds the workspace enclosing start.
func Discover(start string, logger *slog.Logger) (*Workspace, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, annerrors.New(annerrors.InvalidArgument, "invalid start directory", err)
	}
	root, err := paths.FindRoot(abs)
	initialized := true
	if errors.Is(err, paths.ErrNoWorkspace) {
		root, initialized = abs, false
	} else if err != nil {
		return nil, err
	}
	ws := Open(root, logger)
	ws.Initialized = initialized
	return ws, nil
}

// Open uses root as the workspace without searching.
func Open(root string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	info, err := os.Stat(paths.DataDir(root))
	return &Workspace{
		Root:        root,
		Initialized: err == nil && info.IsDir(),
		fs:          afs.New(),
		logger:      logger,
	}
}

// DataDir is the workspace's .annot directory.
func (w *Workspace) DataDir() string {
	return paths.DataDir(w.Root)
}

// Init creates the .annot directory.
func (w *Workspace) Init() error {
	if _, err := paths.EnsureDataDir(w.Root); err != nil {
		return annerrors.New(annerrors.InternalError, "failed to create workspace", err)
	}
	w.Initialized = true
	return nil
}

// Resolve turns a path relative to the root into an absolute one. URLs are
// returned as given.
func (w *Workspace) Resolve(path string) string {
	if isURL(path) {
		return path
	}
	return paths.Absolute(path, w.Root)
}

// Rel shows path relative to the root when it lies inside it.
func (w *Workspace) Rel(path string) string {
	return paths.Display(path, w.Root)
}

// ReadSource returns the current text of a source file. location may be a
// path relative to the root, an absolute path or a URL.
func (w *Workspace) ReadSource(ctx context.Context, location string) (string, error) {
	target := w.Resolve(location)
	ok, err := w.fs.Exists(ctx, target)
	if err != nil {
		return "", annerrors.New(annerrors.InternalError, "failed to stat "+target, err)
	}
	if !ok {
		return "", annerrors.Newf(annerrors.NotFound, "source file %s does not exist", target)
	}
	data, err := w.fs.DownloadWithURL(ctx, target)
	if err != nil {
		return "", annerrors.New(annerrors.InternalError, "failed to read "+target, err)
	}
	w.logger.Debug("Read source", "location", target, "bytes", len(data))
	return string(data), nil
}

// WriteOutput stores data at location, creating parent directories.
func (w *Workspace) WriteOutput(ctx context.Context, location string, data []byte) error {
	target := w.Resolve(location)
	if !isURL(target) {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return annerrors.New(annerrors.InternalError, "failed to create output directory", err)
		}
	}
	if err := w.fs.Upload(ctx, target, 0644, bytes.NewReader(data)); err != nil {
		return annerrors.New(annerrors.InternalError, "failed to write "+target, err)
	}
	w.logger.Debug("Wrote output", "location", target, "bytes", len(data))
	return nil
}

func isURL(location string) bool {
	return strings.Contains(location, "://")
}
