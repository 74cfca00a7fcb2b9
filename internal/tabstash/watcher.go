package tabstash

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

// SlotWatcher reloads the in-memory collection when the slot file is
// replaced outside this process, e.g. by another instance or a manual
// import. It watches the parent directory because saves land via a
// tmp-file rename.
type SlotWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	logger   pslog.Logger
	done     chan struct{}
}

func WatchSlotFile(path string, onChange func(), logger pslog.Logger) (*SlotWatcher, error) {
	path = strings.TrimSpace(path)
	if path == "" || onChange == nil {
		return nil, ErrInvalidInput
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w := &SlotWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *SlotWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("slot file changed on disk, reloading", "path", w.path, "op", event.Op.String())
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("slot watcher error", "err", err)
		}
	}
}

func (w *SlotWatcher) Close() error {
	if w == nil || w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}
