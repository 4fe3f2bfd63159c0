package scenario

import (
	"os"
	"sync"
	"time"
)

// FileWatcher polls modification times and calls onChange for each file that
// changed since the previous poll. Files that do not exist yet are picked up
// once they appear.
type FileWatcher struct {
	Paths    []string
	Interval time.Duration

	onChange  func(string)
	stopCh    chan struct{}
	stopOnce  sync.Once
	lastMTime map[string]time.Time
}

func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	return &FileWatcher{
		Paths:     paths,
		Interval:  interval,
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		lastMTime: make(map[string]time.Time),
	}
}

// Start primes the mtime cache synchronously, then polls in a goroutine.
func (w *FileWatcher) Start() {
	w.scan(true)
	ticker := time.NewTicker(w.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.scan(false)
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *FileWatcher) scan(prime bool) {
	for _, p := range w.Paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if prime {
			continue
		}
		if (!ok || mt.After(last)) && w.onChange != nil {
			w.onChange(p)
		}
	}
}
