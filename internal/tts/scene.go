package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/script2video/internal/system"
)

// SceneSynthesizer runs the full per-scene synthesis: segmentation, one
// engine call per spoken segment, explicit silence for pauses, and
// concatenation into a single normalized clip with merged word timings.
type SceneSynthesizer struct {
	Engine  Synthesizer
	TempDir string
}

// placeholderDuration is the silent clip substituted when synthesis fails;
// the scene still participates in the timeline.
const placeholderDuration = 1.0

// SynthesizeScene produces the narration clip for one scene. A failing
// engine call degrades to a silent placeholder instead of aborting the
// render.
func (s *SceneSynthesizer) SynthesizeScene(ctx context.Context, rawText string, base Request) (Result, error) {
	segments := Segmentize(rawText)
	if len(segments) == 0 {
		return s.silence(ctx, base.Out, placeholderDuration)
	}

	var parts []Result
	for i, seg := range segments {
		partPath := filepath.Join(s.TempDir, fmt.Sprintf("%s_seg%d.mp3", stem(base.Out), i))

		if seg.Pause > 0 {
			part, err := s.silence(ctx, partPath, seg.Pause)
			if err != nil {
				return Result{}, err
			}
			parts = append(parts, part)
			continue
		}

		req := base
		req.Text = seg.Text
		req.Rate = base.Rate * seg.RateMul
		req.Out = partPath
		if seg.Pitch != "" {
			req.Pitch = seg.Pitch
		}
		if seg.Style != "" {
			req.Style = seg.Style
		}

		part, err := s.Engine.Synthesize(ctx, req)
		if err != nil {
			log.Printf("[!] TTS failed for segment %q: %v, substituting silence", truncate(seg.Text, 40), err)
			part, err = s.silence(ctx, partPath, placeholderDuration)
			if err != nil {
				return Result{}, err
			}
		}
		parts = append(parts, part)
	}

	if len(parts) == 1 && parts[0].Path == base.Out {
		return parts[0], nil
	}
	return s.concat(ctx, parts, base.Out)
}

// concat joins segment clips in order, re-encoding to the standard stereo
// format so mismatched engine output cannot corrupt the timeline, and
// shifts every segment's word timings by the accumulated duration.
func (s *SceneSynthesizer) concat(ctx context.Context, parts []Result, out string) (Result, error) {
	listPath := filepath.Join(s.TempDir, stem(out)+"_concat.txt")
	var lines []string
	for _, p := range parts {
		abs, _ := filepath.Abs(p.Path)
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-ar", "44100", "-ac", "2", "-c:a", "libmp3lame", "-q:a", "4",
		out,
	)
	if o, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("tts concat: %w: %s", err, tail(string(o)))
	}

	res := Result{Path: out}
	offset := 0.0
	for _, p := range parts {
		for _, w := range p.Words {
			res.Words = append(res.Words, WordTiming{
				Word:  w.Word,
				Start: w.Start + offset,
				End:   w.End + offset,
			})
		}
		offset += p.Duration
	}
	res.Duration = offset

	// Prefer the measured duration of the joined file when it is sane;
	// mp3 frame padding can drift a few ms per segment.
	if dur, err := system.GetAudioDuration(out); err == nil && dur > 0 {
		res.Duration = dur
	}
	return res, nil
}

// silence writes a silent clip in the standard format via anullsrc.
func (s *SceneSynthesizer) silence(ctx context.Context, out string, dur float64) (Result, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", fmt.Sprintf("%.3f", dur),
		"-c:a", "libmp3lame", "-q:a", "4",
		out,
	)
	if o, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("tts silence: %w: %s", err, tail(string(o)))
	}
	return Result{Path: out, Duration: dur}, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 400 {
		s = s[len(s)-400:]
	}
	return s
}
