package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatch feeds edits of a design source file into the scheduler's
// debounce path, so saving in an external editor behaves like any other
// parameter-change notification.
type FileWatch struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// WatchFile starts watching path. The parent directory is watched, not
// the file itself, because editors commonly replace files by rename.
func (s *Scheduler) WatchFile(path string) (*FileWatch, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	fw := &FileWatch{w: w, done: make(chan struct{})}
	go fw.loop(s, abs)
	return fw, nil
}

func (fw *FileWatch) loop(s *Scheduler, abs string) {
	defer close(fw.done)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			b, err := os.ReadFile(abs)
			if err != nil {
				// Transient during atomic saves; the next event retries.
				s.log.Debug().Err(err).Str("path", abs).Msg("watched file unreadable")
				continue
			}
			s.SetSource(string(b))
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// Close stops the watcher and waits for the loop to drain.
func (fw *FileWatch) Close() error {
	err := fw.w.Close()
	<-fw.done
	return err
}
