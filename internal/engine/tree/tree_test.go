package tree

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"relink/internal/core/config"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.html":          "<a href=\"about.html\">",
		"about.html":          "",
		"css/site.css":        "",
		"js/app.js":           "",
		"js/vendor.min.js":    "",
		"images/Logo.JPG":     "",
		"data/feed.json":      "{}",
		".git/HEAD":           "ref",
		"node_modules/x/a.js": "",
	})

	cfg := config.DefaultConfig()
	cfg.Project.ExcludeFiles = []string{"*.min.js"}
	rules, err := config.Compile(cfg)
	if err != nil {
		t.Fatal(err)
	}

	snap, err := Build(context.Background(), root, rules)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var got []string
	for _, f := range snap.ContentFiles() {
		got = append(got, f.Rel+":"+string(f.Format))
	}
	want := []string{
		"about.html:html",
		"css/site.css:css",
		"data/feed.json:json",
		"index.html:html",
		"js/app.js:js",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected content files:\n got %v\nwant %v", got, want)
	}

	if !snap.HasFile("js/vendor.min.js") {
		t.Error("excluded files must still exist as link targets")
	}
	if snap.HasFile(".git/HEAD") || snap.HasDir("node_modules") {
		t.Error("excluded directories must be skipped")
	}
	if !snap.HasFile("images/Logo.JPG") || snap.HasFile("images/logo.jpg") {
		t.Error("HasFile must be case-sensitive")
	}
	if !snap.HasDir("images") || !snap.HasDir("") {
		t.Error("expected directories to be indexed")
	}
	if m := snap.FoldMatches("IMAGES/logo.jpg"); !reflect.DeepEqual(m, []string{"images/Logo.JPG"}) {
		t.Errorf("unexpected fold matches %v", m)
	}
	if snap.Abs("css/site.css") != filepath.Join(snap.Root(), "css", "site.css") {
		t.Errorf("unexpected Abs %q", snap.Abs("css/site.css"))
	}
}

func TestBuildCanceled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.html": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, root, config.MustDefaultRules()); err == nil {
		t.Fatal("expected canceled context to abort the walk")
	}
}

func TestFold(t *testing.T) {
	if Fold("Image.PNG") != Fold("image.png") {
		t.Fatal("expected case-insensitive fold equality")
	}
	if Fold("pages/About.HTML") != "pages/about.html" {
		t.Fatalf("unexpected fold %q", Fold("pages/About.HTML"))
	}
}
