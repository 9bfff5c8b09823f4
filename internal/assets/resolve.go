package assets

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension guesses tried when a reference has no usable extension or the
// exact name is missing from a search directory.
var (
	imageExts = []string{".png", ".jpg", ".jpeg", ".webp"}
	videoExts = []string{".mp4", ".mov", ".webm", ".mkv"}
)

// Standard fallback basenames looked up before giving up on a scene's
// visuals entirely.
var standardFallbacks = []string{"fallback", "default", "background"}

// Resolver locates visual assets across the configured directories and
// degrades through a fixed fallback chain. Every fallback step logs, so a
// missing-asset scene can be diagnosed from the render log alone.
type Resolver struct {
	Dirs []string // search order; Dirs[0] is the primary asset directory
}

// Resolved is the outcome of a lookup. Generated is true when the path
// points at nothing on disk and the visual must be synthesized (QR codes,
// black frames).
type Resolved struct {
	Path      string
	Generated bool // "qr:..." or black-frame sentinel
}

// Resolve walks the fallback chain for a visual reference:
// absolute path → search dirs with extension guessing → standard fallback
// names → any image in the primary directory → black frame.
func (r *Resolver) Resolve(ref string) Resolved {
	ref = strings.TrimSpace(ref)

	// Generated schemes never touch the filesystem.
	if strings.HasPrefix(ref, "qr:") {
		return Resolved{Path: ref, Generated: true}
	}
	// PDF page references resolve the file part only.
	if file, _, ok := splitPDFRef(ref); ok {
		if resolved := r.lookup(file); resolved != "" {
			return Resolved{Path: resolved + ref[len(file):]}
		}
		log.Printf("[!] PDF asset %q not found, falling through", ref)
	}

	if ref != "" {
		if filepath.IsAbs(ref) {
			if fileExists(ref) {
				return Resolved{Path: ref}
			}
			log.Printf("[!] Absolute asset path %q does not exist", ref)
		} else if resolved := r.lookup(ref); resolved != "" {
			return Resolved{Path: resolved}
		} else {
			log.Printf("[!] Asset %q not found in %v", ref, r.Dirs)
		}
	}

	for _, name := range standardFallbacks {
		if resolved := r.lookup(name); resolved != "" {
			log.Printf("[!] Using standard fallback asset %q for %q", resolved, ref)
			return Resolved{Path: resolved}
		}
	}

	if any := r.anyImage(); any != "" {
		log.Printf("[!] Using arbitrary image %q for %q", any, ref)
		return Resolved{Path: any}
	}

	log.Printf("[!] No asset available for %q, using black frame", ref)
	return Resolved{Path: BlackFrameRef, Generated: true}
}

// lookup tries the reference as-is and with guessed extensions in every
// search directory.
func (r *Resolver) lookup(ref string) string {
	for _, dir := range r.Dirs {
		exact := filepath.Join(dir, ref)
		if fileExists(exact) {
			return exact
		}
		if filepath.Ext(ref) != "" {
			continue
		}
		for _, ext := range append(append([]string{}, imageExts...), videoExts...) {
			guess := exact + ext
			if fileExists(guess) {
				return guess
			}
		}
	}
	return ""
}

// anyImage returns the lexically first image in the primary directory.
func (r *Resolver) anyImage() string {
	if len(r.Dirs) == 0 {
		return ""
	}
	entries, err := os.ReadDir(r.Dirs[0])
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, ie := range imageExts {
			if ext == ie {
				names = append(names, e.Name())
				break
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(r.Dirs[0], names[0])
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// splitPDFRef parses "deck.pdf#3" into file and zero-based page index.
func splitPDFRef(ref string) (file string, page int, ok bool) {
	i := strings.LastIndex(ref, "#")
	base := ref
	page = 0
	if i >= 0 {
		base = ref[:i]
		if _, err := fmt.Sscanf(ref[i+1:], "%d", &page); err != nil {
			return "", 0, false
		}
		if page > 0 {
			page-- // references are one-based
		}
	}
	if !strings.EqualFold(filepath.Ext(base), ".pdf") {
		return "", 0, false
	}
	return base, page, true
}

// IsVideo reports whether the resolved path is a video clip.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, ve := range videoExts {
		if ext == ve {
			return true
		}
	}
	return ext == ".avi"
}
