package assets

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, BlackFrame(4, 4)); err != nil {
		t.Fatal(err)
	}
}

func TestResolveExtensionGuess(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "castle.png"))
	r := &Resolver{Dirs: []string{dir}}

	got := r.Resolve("castle")
	if got.Generated || got.Path != filepath.Join(dir, "castle.png") {
		t.Fatalf("Resolve(castle) = %+v", got)
	}
}

func TestResolveStandardFallback(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "fallback.png"))
	r := &Resolver{Dirs: []string{dir}}

	got := r.Resolve("missing-thing")
	if got.Path != filepath.Join(dir, "fallback.png") {
		t.Fatalf("expected standard fallback, got %+v", got)
	}
}

func TestResolveAnyImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "zeta.png"))
	writePNG(t, filepath.Join(dir, "alpha.png"))
	r := &Resolver{Dirs: []string{dir}}

	got := r.Resolve("missing-thing")
	if got.Path != filepath.Join(dir, "alpha.png") {
		t.Fatalf("expected lexically first image, got %+v", got)
	}
}

func TestResolveBlackFrameLastResort(t *testing.T) {
	r := &Resolver{Dirs: []string{t.TempDir()}}
	got := r.Resolve("nothing")
	if !got.Generated || got.Path != BlackFrameRef {
		t.Fatalf("expected black frame sentinel, got %+v", got)
	}
}

func TestResolveQRScheme(t *testing.T) {
	r := &Resolver{}
	got := r.Resolve("qr:https://example.com")
	if !got.Generated || got.Path != "qr:https://example.com" {
		t.Fatalf("Resolve(qr:) = %+v", got)
	}
}

func TestSplitPDFRef(t *testing.T) {
	cases := []struct {
		ref  string
		file string
		page int
		ok   bool
	}{
		{"deck.pdf#3", "deck.pdf", 2, true},
		{"deck.pdf", "deck.pdf", 0, true},
		{"deck.PDF#1", "deck.PDF", 0, true},
		{"photo.png", "", 0, false},
		{"deck.pdf#x", "", 0, false},
	}
	for _, c := range cases {
		file, page, ok := splitPDFRef(c.ref)
		if file != c.file || page != c.page || ok != c.ok {
			t.Errorf("splitPDFRef(%q) = %q,%d,%v; want %q,%d,%v",
				c.ref, file, page, ok, c.file, c.page, c.ok)
		}
	}
}

func TestLoadImageQR(t *testing.T) {
	img, err := LoadImage(Resolved{Path: "qr:https://example.com", Generated: true}, 640, 360)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 360 {
		t.Fatalf("QR canvas bounds = %v", img.Bounds())
	}
	// Center of the code must contain at least one non-black pixel row.
	var lit bool
	for x := 0; x < 640 && !lit; x++ {
		r, g, b, _ := img.At(x, 180).RGBA()
		if r > 0x8000 && g > 0x8000 && b > 0x8000 {
			lit = true
		}
	}
	if !lit {
		t.Fatal("QR canvas has no white modules on the center row")
	}
}

func TestIsVideo(t *testing.T) {
	if !IsVideo("clip.MP4") || IsVideo("pic.png") {
		t.Fatal("IsVideo misclassifies")
	}
}
