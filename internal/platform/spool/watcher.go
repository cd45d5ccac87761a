package spool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/URMC/urHL7/internal/platform/metrics"
)

// FileHandler processes one spool file.
type FileHandler func(ctx context.Context, path string) error

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Pattern is matched against file base names. Default "*.hl7".
	Pattern string

	// Debounce is how long a file must be quiet before it is handed off.
	// Default 250ms.
	Debounce time.Duration

	// ProcessExisting hands off files already present when Start runs.
	ProcessExisting bool

	// Logger receives handler failures. Nil discards them.
	Logger *zerolog.Logger
}

// DefaultWatcherOptions returns the defaults used when NewWatcher gets nil.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Pattern:         "*.hl7",
		Debounce:        250 * time.Millisecond,
		ProcessExisting: true,
	}
}

// Watcher hands newly created or written spool files to a handler once
// they stop changing. The handler runs on a single goroutine.
type Watcher struct {
	dir     string
	handler FileHandler
	opts    WatcherOptions
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	events   chan string
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher over dir. Call Start to begin.
func NewWatcher(dir string, handler FileHandler, opts *WatcherOptions) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("spool: nil file handler")
	}
	o := DefaultWatcherOptions()
	if opts != nil {
		o = *opts
		if o.Pattern == "" {
			o.Pattern = "*.hl7"
		}
		if o.Debounce <= 0 {
			o.Debounce = 250 * time.Millisecond
		}
	}
	if _, err := filepath.Match(o.Pattern, ""); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if o.Logger != nil {
		log = *o.Logger
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		opts:    o,
		log:     log,
		watcher: fw,
		events:  make(chan string, 256),
		done:    make(chan struct{}),
	}, nil
}

// Start watches the directory until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	var existing []string
	if w.opts.ProcessExisting {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() && w.matches(e.Name()) {
				existing = append(existing, filepath.Join(w.dir, e.Name()))
			}
		}
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx, existing)
	return nil
}

// Stop ends watching and waits for an in-flight handler to return.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *Watcher) matches(name string) bool {
	ok, _ := filepath.Match(w.opts.Pattern, filepath.Base(name))
	return ok
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			select {
			case w.events <- event.Name:
			default:
				w.log.Warn().Str("file", event.Name).Msg("spool event buffer full, dropping event")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Str("dir", w.dir).Msg("spool watcher error")
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context, initial []string) {
	defer w.wg.Done()

	for _, path := range initial {
		w.handle(ctx, path)
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		for _, p := range paths {
			w.handle(ctx, p)
		}
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.events:
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// removed before the debounce window closed
		return
	}
	err := w.handler(ctx, path)
	metrics.ObserveSpoolFile(err)
	if err != nil {
		w.log.Error().Err(err).Str("file", path).Msg("failed to process spool file")
		return
	}
	w.log.Debug().Str("file", path).Msg("spool file processed")
}
