// Package watcher feeds newly arriving recordings into analysis.
//
// Recorders and sync tools deliver files incrementally, so a path seen in a
// filesystem event is usually still being written. A file is handed to the
// handler only once its size has stayed unchanged for the configured settle
// time, and a cooldown window suppresses duplicate analysis when editors or
// copy tools touch a finished file again.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/tsalo/fieldscan/internal/audiofile"
	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// Handler processes one settled file and returns its result location.
type Handler func(ctx context.Context, path string) (string, error)

// pendingFile tracks a path whose size is still being observed.
type pendingFile struct {
	size      int64
	changedAt time.Time
}

// Watcher watches the input tree and dispatches settled audio files.
type Watcher struct {
	root       string
	settleTime time.Duration
	poll       time.Duration
	handler    Handler

	fsw      *fsnotify.Watcher
	cooldown *cache.Cache
	pending  map[string]*pendingFile // confined to the Run goroutine
}

// New creates a watcher over the configured input path. The input directory
// must exist; watch mode never creates it. Files already present are left
// alone (a batch scan covers those) — the watch handles new arrivals.
func New(settings *conf.Settings, handler Handler) (*Watcher, error) {
	root, err := filepath.Abs(settings.Input.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("path", settings.Input.Path).
			Build()
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf("watch path is not a directory: %s", root).
			Component("watcher").
			Category(errors.CategoryConfiguration).
			Build()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New(err).
			Component("watcher").
			Category(errors.CategorySystem).
			Build()
	}

	w := &Watcher{
		root:       root,
		settleTime: settings.Watch.SettleTime,
		poll:       settings.Watch.Poll,
		handler:    handler,
		fsw:        fsw,
		pending:    make(map[string]*pendingFile),
	}
	if w.settleTime <= 0 {
		w.settleTime = 10 * time.Second
	}
	if w.poll <= 0 {
		w.poll = 2 * time.Second
	}
	if settings.Watch.Cooldown > 0 {
		w.cooldown = cache.New(settings.Watch.Cooldown, 2*settings.Watch.Cooldown)
	}

	if err := w.addTree(root, false); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Run processes filesystem events until ctx is cancelled. Settled files are
// handled one at a time, in the order they settle; per-file failures are
// logged and never stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	log := GetLogger()
	log.Info("watching for new recordings",
		"path", w.root,
		"settle_time", w.settleTime.String(),
		"poll", w.poll.String())

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	defer func() {
		if err := w.fsw.Close(); err != nil {
			log.Warn("closing filesystem watcher failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped", "pending", len(w.pending))
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("filesystem watcher error", "error", err)

		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// handleEvent folds one filesystem event into the pending set.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// A directory can arrive fully populated (mv, rsync); watch it
			// and pick up every file already inside.
			if err := w.addTree(event.Name, true); err != nil {
				GetLogger().Warn("watching new directory failed", "path", event.Name, "error", err)
			}
			return
		}
		w.track(event.Name, info.Size())

	case event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
		w.track(event.Name, info.Size())

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// track records the latest observed size for a candidate file.
func (w *Watcher) track(path string, size int64) {
	if !audiofile.HasSupportedExtension(path) {
		return
	}
	p, ok := w.pending[path]
	if !ok {
		w.pending[path] = &pendingFile{size: size, changedAt: time.Now()}
		GetLogger().Debug("tracking new file", "path", path, "size", size)
		return
	}
	if p.size != size {
		p.size = size
		p.changedAt = time.Now()
	}
}

// sweep dispatches every pending file whose size has been stable for the
// settle time. Growth observed during the sweep resets that file's clock.
func (w *Watcher) sweep(ctx context.Context) {
	now := time.Now()
	for path, p := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			// Deleted or moved away while pending.
			delete(w.pending, path)
			continue
		}
		if info.Size() != p.size {
			p.size = info.Size()
			p.changedAt = now
			continue
		}
		if now.Sub(p.changedAt) < w.settleTime {
			continue
		}

		delete(w.pending, path)
		w.process(ctx, path)
	}
}

// process runs one settled file through the handler, honoring the cooldown.
func (w *Watcher) process(ctx context.Context, path string) {
	log := GetLogger()

	if w.cooldown != nil {
		if _, seen := w.cooldown.Get(path); seen {
			log.Debug("skipping recently analyzed file", "path", path)
			return
		}
		w.cooldown.Set(path, struct{}{}, cache.DefaultExpiration)
	}

	location, err := w.handler(ctx, path)
	if err != nil {
		log.Error("analyzing settled file failed", "path", path, "error", err)
		return
	}
	log.Info("settled file analyzed", "path", path, "result", location)
}

// addTree watches dir and every directory below it. When enqueueFiles is
// set, files already present are tracked as pending so nothing that arrived
// with the directory is missed.
func (w *Watcher) addTree(dir string, enqueueFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			GetLogger().Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return errors.New(err).
					Component("watcher").
					Category(errors.CategorySystem).
					Context("path", path).
					Build()
			}
			return nil
		}
		if enqueueFiles {
			if info, err := d.Info(); err == nil {
				w.track(path, info.Size())
			}
		}
		return nil
	})
}
