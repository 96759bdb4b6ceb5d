// Package watcher reports debounced batches of changed project files.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"relink/internal/core/config"
	"relink/internal/shared/observability"
	"relink/internal/shared/util"

	"github.com/fsnotify/fsnotify"
)

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	root       string
	rules      *config.Rules
	extraNames map[string]bool
	ignored    []string
	debounce   time.Duration
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher watches root. Content files and route files trigger on every
// write; any other file triggers only when it appears, disappears or is
// renamed, since that changes which links resolve. extraFiles are absolute
// paths outside the content set (the rename map) that also trigger on write.
func NewWatcher(root string, rules *config.Rules, debounce time.Duration, extraFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || rules == nil {
		return nil, os.ErrInvalid
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	extra := make(map[string]bool, len(extraFiles))
	for _, f := range extraFiles {
		if abs, err := filepath.Abs(f); err == nil {
			extra[abs] = true
		}
	}
	for _, name := range rules.RouteFiles {
		extra[filepath.Join(absRoot, name)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:  fsw,
		root:       absRoot,
		rules:      rules,
		extraNames: extra,
		debounce:   debounce,
		onChange:   onChange,
		pending:    make(map[string]time.Time),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Ignore drops every event below dir. It must be called before Watch.
func (w *Watcher) Ignore(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		w.ignored = append(w.ignored, filepath.ToSlash(abs))
	}
}

func (w *Watcher) isIgnored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, dir := range w.ignored {
		if util.HasPathPrefix(slashed, dir) {
			return true
		}
	}
	return false
}

// Watch registers the project tree and any extra file directories, then
// starts delivering events.
func (w *Watcher) Watch() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	for path := range w.extraNames {
		dir := filepath.Dir(path)
		if util.HasPathPrefix(filepath.ToSlash(dir), filepath.ToSlash(w.root)) {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			slog.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.scheduleChange(event.Name)
						}
					}
					continue
				}
			}

			structural := event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
			if structural && w.inTree(event.Name) {
				w.scheduleChange(event.Name)
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write && w.relevant(event.Name) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := util.SortedStringKeys(w.pending)
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := util.RelSlash(w.root, path)
	if err != nil || util.EscapesRoot(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	if w.isIgnored(path) {
		return true
	}
	rel, ok := w.rel(path)
	if !ok {
		return true
	}
	return w.rules.ExcludedDir(rel, filepath.Base(path))
}

// inTree reports whether path is a non-excluded file under the root whose
// existence matters to link checking.
func (w *Watcher) inTree(path string) bool {
	if w.extraNames[path] {
		return true
	}
	if w.isIgnored(path) {
		return false
	}
	rel, ok := w.rel(path)
	if !ok {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".relink-") && strings.HasSuffix(base, ".tmp") {
		return false
	}
	for dir := util.SlashDir(rel); dir != ""; dir = util.SlashDir(dir) {
		if w.rules.ExcludedDir(dir, filepath.Base(dir)) {
			return false
		}
	}
	return true
}

// relevant reports whether writes to path can change link checking results.
func (w *Watcher) relevant(path string) bool {
	if w.extraNames[path] {
		return true
	}
	if !w.inTree(path) {
		return false
	}
	rel, _ := w.rel(path)
	base := filepath.Base(path)
	if w.rules.ExcludedFile(rel, base) {
		return false
	}
	_, ok := w.rules.FormatOf(base)
	return ok
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
