package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports asset names that changed under a set of directories.
// Names are delivered on Changes relative to the watched root they belong to.
type Watcher struct {
	Changes chan string

	fsw   *fsnotify.Watcher
	roots []string
	done  chan struct{}
}

// WatchDirs watches every directory below each root. It never touches the
// GPU; consumers drain Changes from the render loop.
func WatchDirs(roots ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		Changes: make(chan string, 64),
		fsw:     fsw,
		done:    make(chan struct{}),
	}

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		w.roots = append(w.roots, abs)
		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			return fsw.Add(p)
		})
		if err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.Changes)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := w.relative(ev.Name)
			Debug("Watch: %s %s", ev.Op, name)
			select {
			case w.Changes <- name:
			default:
				// a reload is already pending
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			Warn("Watch: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relative(p string) string {
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(p)
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
