package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch reports rewrites of the document file, from this process or any
// other, until ctx is done. Bursts are coalesced and fn is only called
// when the stored revision actually changed.
func (s *Store) Watch(ctx context.Context, fn func(Event)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Saves replace the file by rename, so watch the directory.
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	last := s.diskRevision()
	name := filepath.Base(s.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Document watcher error", "error", err.Error())
		case <-fire:
			fire = nil
			rev := s.diskRevision()
			if rev == last {
				continue
			}
			last = rev
			fn(Event{Kind: EventExternal, Revision: rev, Path: s.path})
		}
	}
}

// diskRevision is the revision on disk, or -1 when unreadable.
func (s *Store) diskRevision() int64 {
	raw, err := s.readRaw()
	if err != nil {
		return -1
	}
	doc, _, err := decodeDocument(raw)
	if err != nil {
		return -1
	}
	return doc.Revision
}
