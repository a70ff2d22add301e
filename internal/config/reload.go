package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a state root's config.yaml and config-orchestrators.yaml
// for edits and invokes onChange with the freshly reloaded global config.
// A bad edit (parse or validation failure) is logged and otherwise ignored;
// the previously loaded config stays in effect until a valid edit lands.
//
// Grounded on the teacher's internal/controller/filewatcher.Watcher event
// loop, collapsed from a generic fsnotify.Event stream into a single
// debounced reload callback since DireClaw only needs "config changed,
// reread it", not per-event metadata.
type Watcher struct {
	stateRoot string
	onChange  func(*Config)
	logger    *slog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a config watcher rooted at stateRoot. Call Start to
// begin watching; Stop to release resources.
func NewWatcher(stateRoot string, onChange func(*Config), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := fsw.Add(stateRoot); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		stateRoot: stateRoot,
		onChange:  onChange,
		logger:    logger.With(slog.String("component", "config.watcher")),
		fsw:       fsw,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start runs the watch loop in a goroutine until ctx is cancelled or Stop
// is called. Rapid bursts of events (e.g. an editor's write-then-rename)
// are debounced into a single reload.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop halts the watch loop and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}

const debounceWindow = 250 * time.Millisecond

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var pending *time.Timer
	reload := func() {
		path := GlobalConfigPath(w.stateRoot)
		cfg, err := Load(path)
		if err != nil {
			w.logger.Warn("config reload failed, keeping previous config", "path", path, "error", err)
			return
		}
		w.logger.Info("config reloaded", "path", path)
		w.onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevantConfigFile(event.Name) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func relevantConfigFile(name string) bool {
	base := filepath.Base(name)
	return base == "config.yaml" || base == "config-orchestrators.yaml"
}
