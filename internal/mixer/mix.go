package mixer

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

const mixTimeout = 10 * time.Minute

// MusicLayer is one music source laid under the video: the global
// background track, or a block's local track delayed to its block start.
// The envelope silences each layer outside its own territory.
type MusicLayer struct {
	Path     string
	Envelope *Envelope
	Delay    float64 // seconds before the track starts
}

// Restrict returns a copy of the envelope that is muted everywhere outside
// [start, end). Local block music reuses the whole ducking algorithm this
// way, on its own stretch of the shared time axis.
func (e *Envelope) Restrict(start, end float64) *Envelope {
	out := *e
	out.Blocks = append([]BlockSpan{}, e.Blocks...)
	if start > 0 {
		out.Blocks = append(out.Blocks, BlockSpan{Interval: Interval{Start: 0, End: start}, Mute: true})
	}
	if end < e.Duration {
		out.Blocks = append(out.Blocks, BlockSpan{Interval: Interval{Start: end, End: e.Duration}, Mute: true})
	}
	return &out
}

// MixLayers lays every music layer under the already-assembled video in a
// single pass. Each track loops for as long as its envelope admits it, runs
// through its own ducking expression, and the lot is mixed against the
// narration track without re-encoding the video stream.
func MixLayers(ctx context.Context, videoPath string, layers []MusicLayer, outPath string) error {
	if len(layers) == 0 {
		return fmt.Errorf("mix: no music layers")
	}
	ctx, cancel := context.WithTimeout(ctx, mixTimeout)
	defer cancel()

	args := []string{"-y", "-i", videoPath}
	var chains []string
	labels := []string{"[0:a]"}
	for i, layer := range layers {
		args = append(args, "-stream_loop", "-1", "-i", layer.Path)
		chain := ""
		if layer.Delay > 0 {
			chain = fmt.Sprintf("adelay=%d:all=1,", int(layer.Delay*1000))
		}
		lbl := fmt.Sprintf("[m%d]", i)
		chains = append(chains, fmt.Sprintf("[%d:a]%s%s,apad%s",
			i+1, chain, layer.Envelope.VolumeFilter(), lbl))
		labels = append(labels, lbl)
	}
	filter := strings.Join(chains, ";") + fmt.Sprintf(
		";%samix=inputs=%d:duration=first:normalize=0[aout]",
		strings.Join(labels, ""), len(labels))

	log.Printf("[*] Mixing %d music layer(s) under the narration", len(layers))

	args = append(args,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outPath,
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mix music: %w: %s", err, tail(string(out), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
