package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"
	"pkgbatch/internal/scan"

	"github.com/fsnotify/fsnotify"
)

// FileEvent is an arrival of a matching file detected by the watcher.
type FileEvent struct {
	Name      string // Base name inside the watched directory
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Watcher monitors one directory (non-recursively) and reports events for
// names the scanner would match.
type Watcher struct {
	directory string
	scanner   *scan.Scanner

	// Channel to receive file events
	events chan FileEvent

	// Channel to signal stop
	stopChan chan struct{}
	done     chan struct{}

	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
	stopped bool
}

// NewWatcher creates a watcher for dir. dir must be an existing directory.
func NewWatcher(dir string, scanner *scan.Scanner) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewFileError("cannot watch directory", dir, errors.DirectoryAccess, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("not a directory", dir, errors.DirectoryAccess, nil)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, errors.NewFileError("failed to add directory to watcher", dir, errors.DirectoryAccess, err)
	}

	return &Watcher{
		directory: dir,
		scanner:   scanner,
		events:    make(chan FileEvent, 256),
		fsWatcher: fsWatcher,
	}, nil
}

// Directory returns the watched directory.
func (w *Watcher) Directory() string {
	return w.directory
}

// Events returns the channel that delivers file events. It is closed by Stop.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Start begins the event loop. A stopped watcher cannot be restarted.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return errors.Newf("watcher for %s already running", w.directory)
	}
	if w.stopped {
		return errors.Newf("watcher for %s already stopped", w.directory)
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop()

	log.LogWithFields(log.F("directory", w.directory)).Info("watching directory")
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// Rename is reported for the old name, which is usually gone by
			// now; the new name arrives as Create.
			if !w.scanner.IsCandidate(event.Name) {
				continue
			}

			ev := FileEvent{
				Name:      filepath.Base(event.Name),
				Path:      event.Name,
				Op:        event.Op,
				Timestamp: time.Now(),
			}
			select {
			case w.events <- ev:
			default:
				log.LogWithFields(log.F("file", event.Name)).Warn("event channel is full, dropped event")
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

// Stop halts the event loop and closes the event channel.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.stopped {
		return
	}

	if w.running {
		close(w.stopChan)
	}
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("error closing fsnotify watcher")
	}
	if w.running {
		<-w.done
	}
	w.running = false
	w.stopped = true
	close(w.events)

	log.Debug("watcher stopped")
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}
