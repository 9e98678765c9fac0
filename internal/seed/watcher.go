package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/storage"
)

// Watcher reloads seed files in a directory whenever they are created or
// written.
type Watcher struct {
	dir      string
	store    storage.CorpusStore
	logger   zerolog.Logger
	onReload func(path string, st Stats, err error)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// OnReload registers a callback invoked after every reload attempt.
func OnReload(fn func(path string, st Stats, err error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher for seed files in dir.
func NewWatcher(dir string, store storage.CorpusStore, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:    dir,
		store:  store,
		logger: zerolog.Nop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Existing files are not loaded; call Load first.
// Call Stop to clean up.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("seed watcher needs a directory: " + w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	w.logger.Info().Str("dir", w.dir).Msg("watching seed files")
	return nil
}

// Stop shuts down the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.once.Do(func() {
		w.cancel()
		_ = w.watcher.Close()
	})
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 && IsSeedFile(evt.Name) {
				w.reload(ctx, evt.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("seed watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context, path string) {
	st, err := LoadFile(ctx, w.store, path)
	if err != nil {
		// Editors often write a file in several steps; the next event retries.
		w.logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("seed reload failed")
	} else {
		w.logger.Info().Str("file", filepath.Base(path)).Int("qa", st.QA).Int("variations", st.Variations).Msg("seed file reloaded")
	}
	if w.onReload != nil {
		w.onReload(path, st, err)
	}
}
