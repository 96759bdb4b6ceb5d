package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"relink/internal/core/config"
)

func newTestWatcher(t *testing.T, root string, extra []string) (*Watcher, chan []string) {
	t.Helper()
	changed := make(chan []string, 8)
	w, err := NewWatcher(root, config.MustDefaultRules(), 50*time.Millisecond, extra, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, changed
}

func waitFor(t *testing.T, changed chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), config.MustDefaultRules(), time.Millisecond, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher_ContentWrite(t *testing.T) {
	root := t.TempDir()
	page := filepath.Join(root, "index.html")
	if err := os.WriteFile(page, []byte("<a href=x>"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, changed := newTestWatcher(t, root, nil)
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(page, []byte("<a href=y>"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, page)
}

func TestWatcher_RemoveAssetTriggersChange(t *testing.T) {
	root := t.TempDir()
	asset := filepath.Join(root, "img", "logo.jpg")
	if err := os.MkdirAll(filepath.Dir(asset), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(asset, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w, changed := newTestWatcher(t, root, nil)
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(asset); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, asset)
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	w, changed := newTestWatcher(t, root, nil)
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(root, "pages")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, dir)

	page := filepath.Join(dir, "about.html")
	if err := os.WriteFile(page, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, page)
}

func TestWatcher_ExtraFileOutsideRoot(t *testing.T) {
	root := t.TempDir()
	mapFile := filepath.Join(t.TempDir(), "renames.yaml")
	if err := os.WriteFile(mapFile, []byte("a.html: b.html\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, changed := newTestWatcher(t, root, []string{mapFile})
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(mapFile, []byte("a.html: c.html\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, mapFile)
}

func TestWatcher_Filters(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root, nil)
	w.Ignore(filepath.Join(root, ".relink"))

	cases := []struct {
		path     string
		inTree   bool
		relevant bool
	}{
		{path: filepath.Join(root, "index.html"), inTree: true, relevant: true},
		{path: filepath.Join(root, "css", "site.css"), inTree: true, relevant: true},
		{path: filepath.Join(root, ".htaccess"), inTree: true, relevant: true},
		{path: filepath.Join(root, "img", "logo.jpg"), inTree: true, relevant: false},
		{path: filepath.Join(root, "node_modules", "x", "index.html"), inTree: false, relevant: false},
		{path: filepath.Join(root, ".relink-123.tmp"), inTree: false, relevant: false},
		{path: filepath.Join(root, ".relink", "history.db-wal"), inTree: false, relevant: false},
		{path: filepath.Join(root, ".relinked.html"), inTree: true, relevant: true},
		{path: filepath.Join(filepath.Dir(root), "elsewhere.html"), inTree: false, relevant: false},
	}
	for _, tc := range cases {
		if got := w.inTree(tc.path); got != tc.inTree {
			t.Errorf("inTree(%s) = %v, want %v", tc.path, got, tc.inTree)
		}
		if got := w.relevant(tc.path); got != tc.relevant {
			t.Errorf("relevant(%s) = %v, want %v", tc.path, got, tc.relevant)
		}
	}
}
