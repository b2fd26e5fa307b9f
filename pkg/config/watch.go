package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/noml-lang/noml-go/pkg/errs"
)

// debounce coalesces the write bursts editors produce on save.
const debounce = 100 * time.Millisecond

// Watch reloads the config whenever its source file changes on disk and
// calls onChange with the outcome. It blocks until the context is canceled.
// A reload failure is reported through onChange and watching continues; the
// previous values stay in place.
func (c *Config) Watch(ctx context.Context, onChange func(*Config, error)) error {
	if c.sourcePath == "" {
		return errs.NewValidationError("config has no source path to watch", "")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.NewInternalError("cannot create file watcher", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors that save via
	// rename would otherwise drop the watch.
	dir := filepath.Dir(c.sourcePath)
	if err := watcher.Add(dir); err != nil {
		return errs.NewIOError(dir, err)
	}

	target, _ := filepath.Abs(c.sourcePath)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if abs != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			err := c.Reload()
			onChange(c, err)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(c, errs.NewInternalError("file watcher error", werr))
		}
	}
}
