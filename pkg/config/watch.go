/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a YAML configuration file on write and hands the
// latest value to Current, the Go-native enrichment of the spec's
// "configuration map, written by the loader at startup" into a
// hot-reloadable source, the way the core's underlying config map
// could be updated by a running loader without restarting probes.
type Watcher struct {
	mu      sync.RWMutex
	current Config
	onError func(error)
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads path once, then watches it for writes, invoking
// onError for any reload or filesystem error (never fatal — the last
// successfully loaded configuration keeps applying).
func NewWatcher(path string, onError func(error)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		current: cfg,
		onError: onError,
		watcher: fw,
		done:    make(chan struct{}),
	}

	go w.run(path)
	return w, nil
}

func (w *Watcher) run(path string) {
	defer w.watcher.Close()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				if w.onError != nil {
					w.onError(err)
				}
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() {
	close(w.done)
}
