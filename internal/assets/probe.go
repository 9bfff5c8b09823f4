package assets

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/ivlev/script2video/internal/system"
)

const probeTimeout = 20 * time.Second

// AudioUsable reports whether a video clip's audio stream can survive the
// mix. A clip with no audio stream is fine (false, nil error); a clip whose
// audio decodes with errors must be stripped before amix or the whole mix
// fails mid-render.
func AudioUsable(ctx context.Context, path string) (bool, error) {
	if !system.HasAudioStream(path) {
		return false, nil
	}
	// Decode the head, then the last second, into the null muxer. Corrupt
	// trailing packets only surface when the tail is actually read.
	if err := nullDecode(ctx, path, "0", "3"); err != nil {
		log.Printf("[!] Audio head of %s fails to decode: %v", path, err)
		return false, nil
	}
	dur, err := system.GetAudioDuration(path)
	if err != nil {
		return false, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	tail := dur - 1.0
	if tail < 0 {
		tail = 0
	}
	if err := nullDecode(ctx, path, fmt.Sprintf("%.3f", tail), "2"); err != nil {
		log.Printf("[!] Audio tail of %s fails to decode: %v", path, err)
		return false, nil
	}
	return true, nil
}

func nullDecode(ctx context.Context, path, start, span string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-ss", start,
		"-t", span,
		"-i", path,
		"-map", "0:a:0",
		"-f", "null", "-",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, tail(string(out), 200))
	}
	if len(out) > 0 {
		return fmt.Errorf("decoder reported: %s", tail(string(out), 200))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
