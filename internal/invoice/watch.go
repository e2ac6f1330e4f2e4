package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a new file must stay quiet before it is emitted
const DefaultSettle = 250 * time.Millisecond

// Watcher emits invoice files that appear in a directory after it starts.
// Files already present are returned by Existing and never emitted.
type Watcher struct {
	dir      string
	settle   time.Duration
	fs       *fsnotify.Watcher
	logger   *zap.Logger
	existing []Source

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatcher starts watching dir (non-recursively)
func NewWatcher(dir string, settle time.Duration, logger *zap.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	// listed after Add so a file is either existing or announced by an event
	existing, err := Discover(dir)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		settle:   settle,
		fs:       fsw,
		logger:   logger,
		existing: existing,
		seen:     make(map[string]bool, len(existing)),
	}
	for _, src := range existing {
		w.seen[filepath.Clean(src.Path)] = true
	}
	return w, nil
}

// Existing returns the invoices present when the watcher started, in discovery order
func (w *Watcher) Existing() []Source {
	return append([]Source(nil), w.existing...)
}

// Watch emits each new invoice file once, after writes to it settle. The channel
// closes when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) <-chan Source {
	out := make(chan Source)
	ready := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(out)
		defer close(done)

		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.fs.Events:
				if !ok {
					return
				}
				path, ok := w.candidate(ev)
				if !ok {
					continue
				}
				if t, pending := timers[path]; pending {
					t.Reset(w.settle)
					continue
				}
				timers[path] = time.AfterFunc(w.settle, func() {
					select {
					case ready <- path:
					case <-done:
					}
				})

			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.logger.Warn("invoice watcher error", zap.Error(err))

			case path := <-ready:
				delete(timers, path)
				if !w.markSeen(path) {
					continue
				}
				w.logger.Debug("new invoice detected", zap.String("path", path))
				select {
				case out <- FromFile(path):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// candidate returns the cleaned path when ev may announce a new invoice
func (w *Watcher) candidate(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !IsImageFile(name) {
		return "", false
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	seen := w.seen[path]
	w.mu.Unlock()
	if seen {
		return "", false
	}

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// markSeen records path and reports whether it was new
func (w *Watcher) markSeen(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[path] {
		return false
	}
	w.seen[path] = true
	return true
}
