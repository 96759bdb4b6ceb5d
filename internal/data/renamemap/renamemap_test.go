package renamemap

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"relink/internal/core/errors"
)

func TestParseYAMLPreservesOrder(t *testing.T) {
	data := []byte(`
images/Logo.JPG: images/logo-1a2b.jpg
css/site.css: css/site-9f.css
/pages/About.html: pages/about.html
`)
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Entry{
		{Original: "images/Logo.JPG", Final: "images/logo-1a2b.jpg"},
		{Original: "css/site.css", Final: "css/site-9f.css"},
		{Original: "pages/About.html", Final: "pages/about.html"},
	}
	if got := m.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected entries:\n got %v\nwant %v", got, want)
	}
	if final, ok := m.Lookup("css/site.css"); !ok || final != "css/site-9f.css" {
		t.Fatalf("Lookup = %q, %v", final, ok)
	}
	if original, ok := m.Reverse("pages/about.html"); !ok || original != "pages/About.html" {
		t.Fatalf("Reverse = %q, %v", original, ok)
	}
	if _, ok := m.Lookup("images/logo.jpg"); ok {
		t.Fatal("Lookup must be case-sensitive")
	}
}

func TestParseJSON(t *testing.T) {
	m, err := Parse([]byte(`{"b.png": "b-1.png", "a.png": "a-1.png"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := m.Finals(); !reflect.DeepEqual(got, []string{"b-1.png", "a-1.png"}) {
		t.Fatalf("expected declaration order, got %v", got)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "DuplicateFinal", data: "a.png: x.png\nb.png: x.png\n"},
		{name: "DuplicateKeyAfterNormalize", data: "a.png: x.png\n/a.png: y.png\n"},
		{name: "EscapesRoot", data: "../a.png: a.png\n"},
		{name: "EmptyFinal", data: "a.png: \"\"\n"},
		{name: "Sequence", data: "- a.png\n- b.png\n"},
		{name: "NestedValue", data: "a.png:\n  final: b.png\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty map, got %d entries", m.Len())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renames.yaml")
	if err := os.WriteFile(path, []byte("Image.PNG: image.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Len())
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestIdentity(t *testing.T) {
	m := Identity([]string{"index.html", "/css/site.css", "index.html"})
	if m.Len() != 2 {
		t.Fatalf("expected duplicates to collapse, got %d", m.Len())
	}
	if final, ok := m.Lookup("css/site.css"); !ok || final != "css/site.css" {
		t.Fatalf("unexpected identity lookup %q, %v", final, ok)
	}
}

func TestNilMap(t *testing.T) {
	var m *Map
	if _, ok := m.Lookup("a"); ok {
		t.Fatal("nil map must not resolve")
	}
	if m.Len() != 0 || m.Finals() != nil {
		t.Fatal("nil map must be empty")
	}
}
