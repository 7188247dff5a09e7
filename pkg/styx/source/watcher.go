package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"
)

// DefaultDebounce is how long the Watcher waits for writes to settle before
// re-parsing.
const DefaultDebounce = 100 * time.Millisecond

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Options
	Debounce time.Duration // DefaultDebounce if zero
	Logger   Logger        // NullLogger if nil
}

// Watcher re-parses a document whenever its file changes on disk.
//
// The file's directory is watched rather than the file itself so that
// editors which save by renaming a temporary file are still seen. Changes
// that leave the file's bytes identical are ignored.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	abs      string
	opts     Options
	debounce time.Duration
	logger   Logger
	onChange func(*File, error)

	reloading sync.Mutex // held for a whole load and notify

	mu         sync.Mutex
	timer      *time.Timer
	closed     bool
	lastDigest [32]byte
	seen       bool
	reloads    uint64
}

// NewWatcher creates a watcher for path. onChange is called with the result
// of every load that produced new content, including failed parses. Calls
// never overlap and stop once Close returns; onChange must not call Close.
func NewWatcher(path string, cfg WatchConfig, onChange func(*File, error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		path:     path,
		abs:      filepath.Clean(abs),
		opts:     cfg.Options,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		onChange: onChange,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = NullLogger()
	}
	return w, nil
}

// Start loads the file once and then begins watching for changes. The
// watcher stops when ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.abs)
	if err := w.watcher.Add(dir); err != nil {
		w.logError("failed to watch %s: %v", dir, err)
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logInfo("watching: %s", w.path)

	w.reload()

	go w.eventLoop(ctx)
	return nil
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.stopTimer()
				return
			}
			if filepath.Clean(event.Name) != w.abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// schedule arranges a reload once writes have been quiet for the debounce
// interval.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// reload reads and parses the file, skipping content already seen.
func (w *Watcher) reload() {
	w.reloading.Lock()
	defer w.reloading.Unlock()
	if w.isClosed() {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		// A rename-save can briefly leave no file; the Create that follows
		// triggers another reload.
		if os.IsNotExist(err) {
			w.logInfo("file missing: %s", w.path)
			return
		}
		w.logError("reading %s: %v", w.path, err)
		w.notify(nil, fmt.Errorf("reading %s: %w", w.path, err))
		return
	}

	digest := blake2b.Sum256(data)
	w.mu.Lock()
	if w.seen && digest == w.lastDigest {
		w.mu.Unlock()
		return
	}
	w.seen = true
	w.lastDigest = digest
	w.reloads++
	w.mu.Unlock()

	f, err := LoadBytes(w.path, data, w.opts)
	if err != nil {
		w.logError("%v", err)
	} else {
		w.logInfo("reloaded: %s (%d entries)", w.path, len(f.Document.Entries))
	}
	w.notify(f, err)
}

func (w *Watcher) notify(f *File, err error) {
	if w.onChange != nil && !w.isClosed() {
		w.onChange(f, err)
	}
}

func (w *Watcher) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Reloads returns how many distinct versions of the file have been loaded.
func (w *Watcher) Reloads() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Close stops the watcher and waits for a reload in progress to finish.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.reloading.Lock()
	w.reloading.Unlock()
	return err
}

func (w *Watcher) logInfo(format string, args ...any) {
	w.logger.LogLine("[WATCH] " + fmt.Sprintf(format, args...))
}

func (w *Watcher) logError(format string, args ...any) {
	w.logger.LogLine("[WATCH ERROR] " + fmt.Sprintf(format, args...))
}
