package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// watchIgnoreDirs are never watched.
var watchIgnoreDirs = map[string]bool{".git": true, "__pycache__": true, "node_modules": true}

// runWatch validates root, then re-validates after every burst of changes
// until the context is cancelled. The exit code is that of the last run.
func runWatch(cmd *cobra.Command, v *validator.Validator, root string, config *ValidateConfig) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := newPresenter(cmd)

	last := exitOK
	revalidate := func() error {
		err := runValidate(ctx, cmd, v, root, config)
		last = exitCodeFor(err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}

	if err := revalidate(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := addWatchDirs(ctx, watcher, root); err != nil {
		return err
	}

	events := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debouncedEvents, time.Duration(config.Debounce)*time.Millisecond)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if watchIgnoreDirs[filepath.Base(event.Name)] {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addWatchDirs(ctx, watcher, event.Name); err != nil {
							logger.G(ctx).WithError(err).Warn("failed to watch new directory")
						}
					}
				}
				select {
				case events <- FileEvent{Path: event.Name, Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.G(ctx).WithError(err).Error("error watching files")
			case <-ctx.Done():
				return
			}
		}
	}()

	p.Info("Watching for changes... Press Ctrl+C to stop")

	for {
		select {
		case event := <-debouncedEvents:
			logger.G(ctx).WithFields(map[string]interface{}{
				"file":      event.Path,
				"operation": event.Op.String(),
			}).Debug("change detected")

			p.Separator()
			p.Info(fmt.Sprintf("Change detected: %s (%s)", event.Path, event.Op))
			if err := revalidate(); err != nil {
				if errors.Is(err, validator.ErrSkillNotFound) {
					p.Error(err, "Skill directory removed")
					return err
				}
				p.Error(err, "Validation failed")
			}
		case <-ctx.Done():
			if last != exitOK {
				return &exitError{code: last, reported: true}
			}
			return nil
		}
	}
}

func addWatchDirs(ctx context.Context, watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && watchIgnoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return errors.Wrapf(watcher.Add(path), "failed to watch %s", path)
	})
}

// debounceFileEvents collapses a burst of events into one, delivered once no
// new event has arrived for delay. The last event of the burst is forwarded.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	timer := time.NewTimer(delay)
	timer.Stop()

	var (
		pending FileEvent
		armed   bool
	)

	for {
		select {
		case event, ok := <-input:
			if !ok {
				timer.Stop()
				return
			}
			pending = event
			armed = true
			timer.Reset(delay)
		case <-timer.C:
			if !armed {
				continue
			}
			armed = false
			select {
			case output <- pending:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
