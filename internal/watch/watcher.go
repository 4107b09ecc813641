package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// ChangedHandler is called when a watched file has settled after a change.
type ChangedHandler func(path string)

// Watcher reports writes to a set of files. A burst of events on the same
// file (one editor save, a copy in progress) collapses into a single call
// once no event arrived for the debounce interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangedHandler
	debounce time.Duration

	mu       sync.Mutex
	watching map[string]*time.Timer // absPath -> pending notification
	closed   bool
}

// New creates a Watcher and starts its event loop.
func New(debounce time.Duration, onChange ChangedHandler) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		watching: make(map[string]*time.Timer),
	}

	go w.watchLoop()

	return w, nil
}

// WatchFile starts watching a file. The file does not need to exist yet.
func (w *Watcher) WatchFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}

	w.mu.Lock()
	if _, ok := w.watching[absPath]; !ok {
		w.watching[absPath] = nil
	}
	w.mu.Unlock()

	// Watch the directory so editors that replace the file are seen.
	dir := filepath.Dir(absPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	return nil
}

// StopWatching stops watching a file and drops any pending notification.
func (w *Watcher) StopWatching(path string) {
	absPath, _ := filepath.Abs(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t := w.watching[absPath]; t != nil {
		t.Stop()
	}
	delete(w.watching, absPath)
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.watching {
		if t != nil {
			t.Stop()
		}
		w.watching[path] = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.schedule(absPath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Err(err).Msg("watcher: error")
		}
	}
}

func (w *Watcher) schedule(absPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, watched := w.watching[absPath]
	if !watched || w.closed {
		return
	}
	if t != nil {
		t.Stop()
	}
	w.watching[absPath] = time.AfterFunc(w.debounce, func() { w.fire(absPath) })
}

func (w *Watcher) fire(absPath string) {
	w.mu.Lock()
	_, watched := w.watching[absPath]
	if !watched || w.closed {
		w.mu.Unlock()
		return
	}
	w.watching[absPath] = nil
	w.mu.Unlock()

	zlog.Debug().Str("path", absPath).Msg("watcher: file changed")
	if w.onChange != nil {
		w.onChange(absPath)
	}
}
