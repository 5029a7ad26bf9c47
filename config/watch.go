// Package config provides configuration types and utilities for axle's CLI
// and embedding applications. This file adds optional hot-reload support for
// long-running processes (the CLI's `--watch` flag).
package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-loads a config file and invokes onReload whenever the file
// changes, logging (rather than crashing an in-flight run) on a reload that
// fails to parse or validate.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	onReload func(*Config)
	done     chan struct{}
}

// Watch starts watching path for changes, calling onReload with the newly
// loaded Config each time the file is written. The first load has already
// happened by the time Watch is called (the caller loaded it via LoadConfig)
// so Watch only fires on subsequent changes.
func Watch(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{path: path, fsw: fsw, onReload: onReload, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(w.path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous configuration", "path", w.path, "error", err)
				continue
			}
			slog.Info("config: reloaded", "path", w.path)
			w.onReload(cfg)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("config: watcher error", "path", w.path, "error", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
