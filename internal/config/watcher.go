package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDebounce is the quiet period after a write before a config file is
// re-read, absorbing editors that write a file in several small bursts.
const ReloadDebounce = 250 * time.Millisecond

// Watch watches the directory containing path and calls onReload with the
// freshly parsed config whenever path changes, or with a non-nil error if
// the new revision fails to parse (the caller is expected to keep running
// on the previous config in that case). Watch returns once the watcher is
// established; the watch loop itself runs in a background goroutine until
// ctx is canceled.
func Watch(ctx context.Context, path string, onReload func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	clean := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		var timer *time.Timer
		reload := func() {
			cfg, err := Load(path)
			onReload(cfg, err)
		}
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != clean {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(ReloadDebounce, reload)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onReload(nil, fmt.Errorf("config: watch: %w", watchErr))
			}
		}
	}()
	return nil
}
