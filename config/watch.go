package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errChan chan error
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher calling onChange with every successfully reloaded
// configuration. Invalid files are reported on Errors and otherwise ignored.
func NewWatcher(path string, onChange func(*Config)) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		debounce: 100 * time.Millisecond,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
		errChan:  make(chan error, 8),
	}
}

// Start begins watching the directory holding the file.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	// every scheduled reload holds a wg slot until it runs or is stopped
	var debounceTimer *time.Timer
	stopPending := func() {
		if debounceTimer != nil && debounceTimer.Stop() {
			w.wg.Done()
		}
	}
	defer stopPending()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			stopPending()
			w.wg.Add(1)
			debounceTimer = time.AfterFunc(w.debounce, func() {
				defer w.wg.Done()
				w.reload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}
	if w.ctx.Err() != nil {
		return
	}
	w.onChange(cfg)
}

func (w *Watcher) report(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

// Errors returns reload and watch errors. It is never closed.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Close stops watching. Once it returns onChange is not called again.
func (w *Watcher) Close() error {
	w.cancel()
	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
	}
	w.wg.Wait()
	return err
}
