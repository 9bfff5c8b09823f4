package tts

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/ivlev/script2video/internal/system"
)

// EdgeSynthesizer shells out to the edge-tts CLI. It asks for a subtitle
// sidecar with one word per cue, which gives us word-level timing for
// karaoke captions at no extra cost.
type EdgeSynthesizer struct {
	Command string // binary name, defaults to "edge-tts"
}

func (e *EdgeSynthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	bin := e.Command
	if bin == "" {
		bin = "edge-tts"
	}

	vttPath := req.Out + ".vtt"
	args := []string{
		"--voice", req.Voice,
		"--rate", formatRate(req.Rate),
		"--text", req.Text,
		"--write-media", req.Out,
		"--write-subtitles", vttPath,
		"--words-in-cue", "1",
	}
	if req.Pitch != "" {
		args = append(args, "--pitch", req.Pitch)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(string(out)))
	}

	dur, err := system.GetAudioDuration(req.Out)
	if err != nil {
		return Result{}, fmt.Errorf("edge-tts: probe output: %w", err)
	}

	res := Result{Path: req.Out, Duration: dur}
	if data, err := os.ReadFile(vttPath); err == nil {
		res.Words = ParseVTT(string(data))
		os.Remove(vttPath)
	}
	return res, nil
}

// formatRate converts a speed factor into the +N%/-N% form edge-tts wants.
func formatRate(rate float64) string {
	if rate <= 0 {
		rate = 1.0
	}
	pct := int(math.Round((rate - 1.0) * 100))
	return fmt.Sprintf("%+d%%", pct)
}
