package captions

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const burnTimeout = 15 * time.Minute

// Burn writes the ASS document next to the video and re-encodes with the
// subtitles filter. This is the second encode pass; the first pass stays
// caption-free so a burn failure still leaves a usable video.
func Burn(ctx context.Context, doc *Doc, lines []Line, videoPath, outPath, encoder string, quality []string) error {
	if len(lines) == 0 {
		return fmt.Errorf("no caption lines to burn")
	}
	assPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".ass"
	if err := os.WriteFile(assPath, []byte(doc.Render(lines)), 0644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	defer os.Remove(assPath)

	ctx, cancel := context.WithTimeout(ctx, burnTimeout)
	defer cancel()

	log.Printf("[*] Burning %d caption lines into %s", len(lines), filepath.Base(outPath))

	args := []string{"-y",
		"-i", videoPath,
		"-vf", "subtitles=" + escapeFilterPath(assPath),
		"-c:v", encoder,
	}
	args = append(args, quality...)
	args = append(args, "-c:a", "copy", outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("burn subtitles: %w: %s", err, tail(string(out), 400))
	}
	return nil
}

// escapeFilterPath protects a filename inside a filter argument. Colons and
// quotes are filter syntax, and on Windows the drive colon would otherwise
// split the option.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, `:`, `\:`)
	p = strings.ReplaceAll(p, `'`, `\'`)
	return "'" + p + "'"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
