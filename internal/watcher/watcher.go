// Package watcher re-checks source files as they change on disk.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event is a change to one repo-relative path.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler receives each debounced batch of events.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs int
	// IgnoreDirs are directory names that are never watched.
	IgnoreDirs []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 300,
		IgnoreDirs: []string{
			"node_modules", "dist", ".next", ".git", "coverage", "__pycache__",
			".venv", "vendor", "target", "build", ".thymus",
		},
	}
}

// Watcher watches a directory tree and reports batches of changes.
type Watcher struct {
	root    string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	ignore  map[string]bool
	// extra are files outside the tree (or inside ignored directories) that
	// are watched as well, such as the rules file.
	extra map[string]bool
}

// New creates a watcher for root.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}
	w := &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
		ignore:  make(map[string]bool, len(config.IgnoreDirs)),
		extra:   make(map[string]bool),
	}
	for _, d := range config.IgnoreDirs {
		w.ignore[d] = true
	}
	return w
}

// AddFile watches one extra file, even inside an ignored directory.
// Must be called before Run.
func (w *Watcher) AddFile(path string) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	w.extra[filepath.Clean(path)] = true
}

// IsIgnored reports whether any directory component of the repo-relative
// path rel is ignored.
func (w *Watcher) IsIgnored(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts[:len(parts)-1] {
		if w.ignore[p] {
			return true
		}
	}
	return false
}

// Run watches until ctx is done. Events are debounced into batches and
// handed to the handler; a batch still pending at shutdown is delivered.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	for path := range w.extra {
		// The parent directory is watched so that editors which replace the
		// file on save keep being noticed.
		if err := fsw.Add(filepath.Dir(path)); err != nil {
			w.logger.Warn("cannot watch file", "path", path, "error", err)
		}
	}

	batch := NewBatcher(time.Duration(w.config.DebounceMs)*time.Millisecond, func(events []Event) {
		if w.handler != nil {
			w.handler(events)
		}
	})
	defer batch.Flush()

	w.logger.Info("watching", "root", w.root, "debounceMs", w.config.DebounceMs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if e, ok := w.translate(fsw, ev); ok {
				batch.Add(e)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// translate turns an fsnotify event into a repo-relative Event. New
// directories are added to the watch as they appear.
func (w *Watcher) translate(fsw *fsnotify.Watcher, ev fsnotify.Event) (Event, bool) {
	path := filepath.Clean(ev.Name)
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return Event{}, false
	}
	rel = filepath.ToSlash(rel)

	var t EventType
	switch {
	case ev.Has(fsnotify.Create):
		t = EventCreate
	case ev.Has(fsnotify.Write):
		t = EventModify
	case ev.Has(fsnotify.Remove):
		t = EventDelete
	case ev.Has(fsnotify.Rename):
		t = EventRename
	default:
		return Event{}, false
	}

	if w.extra[path] {
		return Event{Type: t, Path: rel, Timestamp: time.Now()}, true
	}
	if strings.HasPrefix(rel, "../") || w.IsIgnored(rel) {
		return Event{}, false
	}

	if t == EventCreate {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignore[info.Name()] {
				if err := w.addTree(fsw, path); err != nil {
					w.logger.Warn("cannot watch directory", "path", rel, "error", err)
				}
			}
			return Event{}, false
		}
	}
	return Event{Type: t, Path: rel, Timestamp: time.Now()}, true
}

// addTree watches dir and every non-ignored directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignore[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Debug("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}
