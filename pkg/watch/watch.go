// Package watch reruns the build when project files change. It drives the
// build --watch loop: filesystem events are collected, debounced and folded
// into a single callback per burst.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"

	"github.com/elevans/imgal/pkg/buildlog"
)

// DefaultDebounce is the settle window applied after the last event before
// the callback fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a directory tree and invokes a callback after changes.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// New creates a watcher rooted at root. Paths matching any of the ignore
// patterns and dot-directories are not watched. A debounce of 0 selects
// DefaultDebounce.
func New(root string, ignore []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "failed to create filesystem watcher")
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		fsw:      fsw,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range w.ignore {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(path string) error {
	return filepath.WalkDir(path, func(sub string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if sub != path && w.ignored(sub) {
			return filepath.SkipDir
		}
		return w.fsw.Add(sub)
	})
}

// Run blocks until the context is cancelled, calling onChange after each
// debounced burst of events. Errors from the callback are logged, not
// fatal: the next change triggers another run.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}

			// new directories need their own watch
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						buildlog.Log(ctx).Warn().Err(err).Msgf("failed to watch %s", event.Name)
					}
				}
			}

			buildlog.Log(ctx).Debug().
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("file event")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			buildlog.Log(ctx).Warn().Err(err).Msg("watch error")

		case <-fire:
			timer = nil
			fire = nil

			if err := onChange(ctx); err != nil {
				buildlog.Log(ctx).Error().Err(err).Msg("rebuild failed")
			}
		}
	}
}
