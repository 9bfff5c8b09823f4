package timeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/script2video/internal/assets"
	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/mixer"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/tts"
)

// minSceneDuration keeps degenerate scenes (empty narration, failed TTS)
// from producing zero-length clips that break the concat.
const minSceneDuration = 1.0

// Clip is one rendered scene on the final timeline.
type Clip struct {
	Path      string
	Start     float64 // absolute position, set by Append
	Duration  float64
	Narration float64 // spoken portion, excludes the trailing pause
	Words     []tts.WordTiming
	Scene     *script.Scene
}

// Timeline accumulates rendered clips and the bookkeeping the mixer and
// caption compiler need later: where narration is active and where each
// block's music policy applies.
type Timeline struct {
	Clips    []Clip
	Duration float64
	Voice    []mixer.Interval
	Blocks   []mixer.BlockSpan

	blockStart float64
	inBlock    bool
}

// Append places a clip at the current cursor and advances it. Narrated
// stretches are recorded as voice intervals for the ducking envelope.
func (tl *Timeline) Append(c Clip) {
	c.Start = tl.Duration
	tl.Clips = append(tl.Clips, c)
	if c.Narration > 0 {
		tl.Voice = append(tl.Voice, mixer.Interval{
			Start: c.Start,
			End:   c.Start + c.Narration,
		})
	}
	tl.Duration += c.Duration
}

// BeginBlock marks the start of a script block at the current cursor.
func (tl *Timeline) BeginBlock() {
	tl.blockStart = tl.Duration
	tl.inBlock = true
}

// EndBlock closes the current block with its music policy.
func (tl *Timeline) EndBlock(mute bool, volume float64) {
	if !tl.inBlock {
		return
	}
	tl.Blocks = append(tl.Blocks, mixer.BlockSpan{
		Interval: mixer.Interval{Start: tl.blockStart, End: tl.Duration},
		Mute:     mute,
		Volume:   volume,
	})
	tl.inBlock = false
}

// SceneDuration is the narration length plus the scripted pause, floored.
func SceneDuration(narration, pause float64) float64 {
	d := narration + pause
	if d < minSceneDuration {
		d = minSceneDuration
	}
	return d
}

// Assembler renders individual scenes into clips. One instance serves a
// whole render; scenes are built sequentially.
type Assembler struct {
	Cfg      *config.Config
	Resolver *assets.Resolver
	Encoder  string
	Quality  []string // encoder-specific quality args
	TempDir  string
}

// BuildScene runs a scene through the full per-scene pipeline: resolve the
// visual, render motion frames or normalize the video clip, mix the scene
// audio, and mux the two into one clip file.
func (a *Assembler) BuildScene(ctx context.Context, scene *script.Scene, narr tts.Result, idx int) (Clip, error) {
	duration := SceneDuration(narr.Duration, scene.Pause)

	var asset script.Asset
	if len(scene.Assets) > 0 {
		asset = scene.Assets[0]
	}
	res := a.Resolver.Resolve(asset.Ref)

	log.Printf("[>] Scene %d: %s (%.2fs)", idx+1, describe(asset.Ref), duration)

	visual := a.tempFile(idx, "visual.mp4")
	var err error
	var ownAudio *ownAudioSource
	if !res.Generated && assets.IsVideo(res.Path) {
		ownAudio, err = a.renderVideoScene(ctx, res.Path, asset, duration, visual)
	} else {
		err = a.renderImageScene(ctx, res, asset, duration, visual)
	}
	if err != nil {
		return Clip{}, fmt.Errorf("scene %d visual: %w", idx+1, err)
	}

	audio := a.tempFile(idx, "audio.m4a")
	if err := a.buildSceneAudio(ctx, scene, narr, ownAudio, duration, audio); err != nil {
		return Clip{}, fmt.Errorf("scene %d audio: %w", idx+1, err)
	}

	out := a.tempFile(idx, "scene.mp4")
	if err := a.mux(ctx, visual, audio, duration, out); err != nil {
		return Clip{}, fmt.Errorf("scene %d mux: %w", idx+1, err)
	}

	return Clip{
		Path:      out,
		Duration:  duration,
		Narration: narr.Duration,
		Words:     narr.Words,
		Scene:     scene,
	}, nil
}

// mux joins the silent visual with the mixed scene audio without touching
// the video stream again.
func (a *Assembler) mux(ctx context.Context, visual, audio string, duration float64, out string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", visual,
		"-i", audio,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy", "-c:a", "copy",
		"-t", ffSeconds(duration),
		out,
	)
	if o, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mux: %w: %s", err, tail(string(o), 300))
	}
	return nil
}

// Concat joins the scene clips with the concat demuxer. Every clip was
// encoded with the same settings, so this is a pure hard-cut remux.
func (a *Assembler) Concat(ctx context.Context, clips []Clip, out string) error {
	if len(clips) == 0 {
		return fmt.Errorf("concat: no clips")
	}
	list := filepath.Join(a.TempDir, "concat.txt")
	var b strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			abs = c.Path
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(list, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	log.Printf("[*] Concatenating %d scene clips", len(clips))
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	)
	if o, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("concat: %w: %s", err, tail(string(o), 300))
	}
	return nil
}

func (a *Assembler) tempFile(idx int, name string) string {
	return filepath.Join(a.TempDir, fmt.Sprintf("scene_%03d_%s", idx, name))
}

func describe(ref string) string {
	if ref == "" {
		return "(auto asset)"
	}
	return ref
}

func ffSeconds(d float64) string {
	return fmt.Sprintf("%.3f", d)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
