// Package signals implements file-based operator signals. Dropping a file
// into the signals directory reaches a running process without any admin
// endpoint: "reset-primary" returns model selection to the primary model,
// "stop" asks the process to shut down.
package signals

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	resetPrimaryFile = "reset-primary"
	stopFile         = "stop"
)

// Watcher monitors the signals directory under the given base directory.
type Watcher struct {
	signalsDir string
	onReset    func()

	mu         sync.RWMutex
	stopSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates the signals directory and starts watching it. onReset is
// called once per reset-primary signal; the signal file is consumed. When the
// filesystem watcher cannot be started the watcher still works through the
// polling checks in ShouldStop.
func NewWatcher(baseDir string, onReset func()) (*Watcher, error) {
	signalsDir := filepath.Join(baseDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		signalsDir: signalsDir,
		onReset:    onReset,
		done:       make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	if err := fsw.Add(signalsDir); err != nil {
		fsw.Close()
		return w, nil
	}
	w.watcher = fsw

	go w.watch()

	return w, nil
}

// watch reacts to signal files as they appear.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			switch filepath.Base(event.Name) {
			case resetPrimaryFile:
				log.Printf("[signals] reset-primary signal received")
				os.Remove(event.Name)
				if w.onReset != nil {
					w.onReset()
				}
			case stopFile:
				log.Printf("[signals] stop signal received")
				w.mu.Lock()
				w.stopSignal = true
				w.mu.Unlock()
			}
		case <-w.watcher.Errors:
			// Keep watching.
		}
	}
}

// ShouldStop reports whether a stop signal has been received. It also checks
// the file directly in case the watcher missed the event.
func (w *Watcher) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(w.signalsDir, stopFile)); err == nil {
		w.mu.Lock()
		w.stopSignal = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopSignal
}

// SendResetPrimary creates the reset-primary signal file.
func (w *Watcher) SendResetPrimary() error {
	path := filepath.Join(w.signalsDir, resetPrimaryFile)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendStop creates the stop signal file.
func (w *Watcher) SendStop() error {
	path := filepath.Join(w.signalsDir, stopFile)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (w *Watcher) ClearSignals() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopSignal = false
	os.Remove(filepath.Join(w.signalsDir, resetPrimaryFile))
	os.Remove(filepath.Join(w.signalsDir, stopFile))
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
