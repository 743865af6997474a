package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads path with LoadFromPath whenever it is written and calls fn
// with the result. The directory is watched so editors that replace the
// file are seen. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return herrors.Wrap(err, herrors.ErrCodeConfigLoad, "create watcher")
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return herrors.Wrap(err, herrors.ErrCodeConfigLoad, "watch config directory").WithContext("path", path)
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		reload := func() { fn(LoadFromPath(path)) }

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fn(nil, herrors.Wrap(err, herrors.ErrCodeConfigLoad, "watching config"))
			}
		}
	}()
	return nil
}
