package render

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ivlev/script2video/internal/assets"
	"github.com/ivlev/script2video/internal/captions"
	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/mixer"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/system"
	"github.com/ivlev/script2video/internal/timeline"
	"github.com/ivlev/script2video/internal/tts"
)

const defaultMusicVolume = 0.40

var musicExts = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac"}

// Orchestrator drives a whole render: narration first, then scene visuals,
// concat, music mix and caption burn-in. Scenes render sequentially; the
// parallelism that matters lives inside ffmpeg.
type Orchestrator struct {
	Cfg      *config.Config
	Engine   tts.Synthesizer
	Progress ProgressSink
}

// Run renders the script to outPath and returns the path actually written,
// which differs from outPath when another render holds its lock.
func (o *Orchestrator) Run(ctx context.Context, sc *script.Script, outPath string) (string, error) {
	if o.Progress == nil {
		o.Progress = &LogSink{}
	}

	outPath, lock, err := acquireTarget(outPath)
	if err != nil {
		return "", err
	}
	defer lock.Unlock()
	defer os.Remove(lock.Path())

	tempDir := filepath.Join(tempRoot(o.Cfg), "script2video-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	encoder, quality := o.encoderArgs()
	log.Printf("[*] Rendering %q with %s (%dx%d@%d)",
		sc.Title, encoder, o.Cfg.Width, o.Cfg.Height, o.Cfg.FPS)

	scenes := flatten(sc)
	if len(scenes) == 0 {
		return "", fmt.Errorf("script has no scenes")
	}
	o.Progress.Start(2*len(scenes) + 3)

	// Stage 1: narration. Durations must exist before group motion can be
	// projected onto scene sub-intervals.
	narrations, durations, err := o.synthesizeAll(ctx, sc, scenes, tempDir)
	if err != nil {
		return "", err
	}
	resolveGroupMotion(scenes, durations)

	// Stage 2: per-scene visuals and audio.
	asm := &timeline.Assembler{
		Cfg:      o.Cfg,
		Resolver: &assets.Resolver{Dirs: o.Cfg.AssetDirs},
		Encoder:  encoder,
		Quality:  quality,
		TempDir:  tempDir,
	}
	var tl timeline.Timeline
	localMusic := make([]string, len(sc.Blocks))
	idx := 0
	for bi, block := range sc.Blocks {
		tl.BeginBlock()
		for _, scene := range block.Scenes {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("render cancelled: %w", err)
			}
			clip, err := asm.BuildScene(ctx, scene, narrations[idx], idx)
			if err != nil {
				return "", err
			}
			tl.Append(clip)
			o.Progress.Step("scene " + sceneName(scene, idx))
			idx++
		}
		// A block with its own music mutes the global track over its span,
		// exactly like an explicit "none".
		mute := strings.EqualFold(block.Music, "none")
		if !mute && block.Music != "" {
			localMusic[bi] = o.findBlockMusic(block.Music)
			mute = localMusic[bi] != ""
		}
		tl.EndBlock(mute, sc.EffectiveVolume(block))
	}

	// Stage 3: hard-cut concat.
	base := filepath.Join(tempDir, "base.mp4")
	if err := asm.Concat(ctx, tl.Clips, base); err != nil {
		return "", err
	}
	o.Progress.Step("concatenate")

	// Stage 4: background music, one pass for the global track plus every
	// block-local one.
	mixed := base
	if layers := o.musicLayers(sc, &tl, localMusic); len(layers) > 0 {
		withMusic := filepath.Join(tempDir, "mixed.mp4")
		if err := mixer.MixLayers(ctx, base, layers, withMusic); err != nil {
			return "", err
		}
		mixed = withMusic
	}
	o.Progress.Step("music mix")

	// Stage 5: captions. A burn failure is not fatal; the mixed video is
	// promoted to final instead.
	final := mixed
	if lines := o.compileCaptions(&tl); len(lines) > 0 {
		doc := o.captionDoc()
		captioned := filepath.Join(tempDir, "captioned.mp4")
		if err := captions.Burn(ctx, doc, lines, mixed, captioned, encoder, quality); err != nil {
			log.Printf("[!] Caption burn failed, delivering uncaptioned video: %v", err)
		} else {
			final = captioned
		}
	}
	o.Progress.Step("captions")

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := moveFile(final, outPath); err != nil {
		return "", fmt.Errorf("commit output: %w", err)
	}
	o.Progress.Done()
	log.Printf("[+++] Wrote %s (%.1fs)", outPath, tl.Duration)
	return outPath, nil
}

// synthesizeAll produces every scene's narration up front. A failed scene
// degrades to silence inside the synthesizer; only infrastructure errors
// surface here.
func (o *Orchestrator) synthesizeAll(ctx context.Context, sc *script.Script, scenes []*script.Scene, tempDir string) ([]tts.Result, []float64, error) {
	synth := &tts.SceneSynthesizer{Engine: o.Engine, TempDir: tempDir}
	narrations := make([]tts.Result, len(scenes))
	durations := make([]float64, len(scenes))

	for i, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("render cancelled: %w", err)
		}
		var res tts.Result
		var err error
		if scene.AudioFile != "" {
			res, err = prerecorded(scene.AudioFile)
		} else {
			res, err = synth.SynthesizeScene(ctx, scene.RawText, o.baseRequest(sc, scene))
		}
		if err != nil {
			return nil, nil, fmt.Errorf("narration for scene %d: %w", i+1, err)
		}
		narrations[i] = res
		durations[i] = timeline.SceneDuration(res.Duration, scene.Pause)
		o.Progress.Step("narration " + sceneName(scene, i))
	}
	return narrations, durations, nil
}

func (o *Orchestrator) baseRequest(sc *script.Script, scene *script.Scene) tts.Request {
	req := tts.Request{
		Voice: sc.Voice,
		Rate:  sc.Speed,
		Style: sc.Style,
		Pitch: scene.Pitch,
	}
	if scene.Voice != "" {
		req.Voice = scene.Voice
	}
	if scene.Speed > 0 {
		req.Rate = scene.Speed
	}
	if req.Rate <= 0 {
		req.Rate = 1.0
	}
	return req
}

func prerecorded(path string) (tts.Result, error) {
	dur, err := system.GetAudioDuration(path)
	if err != nil {
		return tts.Result{}, fmt.Errorf("pre-recorded narration %s: %w", path, err)
	}
	return tts.Result{Path: path, Duration: dur}, nil
}

// envelope builds a ducking envelope over the whole timeline at the given
// base volume.
func (o *Orchestrator) envelope(tl *timeline.Timeline, baseVolume float64) *mixer.Envelope {
	if baseVolume <= 0 {
		baseVolume = defaultMusicVolume
	}
	return &mixer.Envelope{
		Duration:   tl.Duration,
		Voice:      tl.Voice,
		BaseVolume: baseVolume,
		DuckRatio:  o.Cfg.DuckRatio,
		Attack:     o.Cfg.DuckAttack,
		Release:    o.Cfg.DuckRelease,
	}
}

// musicLayers gathers the global background track and each block's local
// one. The global envelope carries the block spans (mutes and volume
// overrides); a local layer instead restricts the plain ducking envelope to
// its own block and starts its track at the block boundary.
func (o *Orchestrator) musicLayers(sc *script.Script, tl *timeline.Timeline, localMusic []string) []mixer.MusicLayer {
	var layers []mixer.MusicLayer

	if global := o.findMusic(sc.Music); global != "" {
		env := o.envelope(tl, sc.MusicVolume)
		env.Blocks = tl.Blocks
		layers = append(layers, mixer.MusicLayer{Path: global, Envelope: env})
	} else if sc.Music != "" {
		log.Printf("[!] Music %q not found in %s, rendering without it", sc.Music, o.Cfg.MusicDir)
	}

	for bi, path := range localMusic {
		if path == "" {
			continue
		}
		span := tl.Blocks[bi]
		env := o.envelope(tl, span.Volume).Restrict(span.Start, span.End)
		layers = append(layers, mixer.MusicLayer{Path: path, Envelope: env, Delay: span.Start})
	}
	return layers
}

func (o *Orchestrator) compileCaptions(tl *timeline.Timeline) []captions.Line {
	tm := captions.Timing{
		Sync:       o.Cfg.CaptionSync,
		MinCueRate: o.Cfg.MinCueRate,
		MinCueDur:  o.Cfg.MinCueDur,
		MaxCueDur:  o.Cfg.MaxCueDur,
	}
	var lines []captions.Line
	for _, clip := range tl.Clips {
		lines = append(lines,
			captions.Compile(clip.Scene, clip.Start, clip.Narration, clip.Words, tm)...)
	}
	return lines
}

func (o *Orchestrator) captionDoc() *captions.Doc {
	font := o.Cfg.MainFont
	if font == "" {
		font = "Montserrat"
	}
	return &captions.Doc{
		Width:     o.Cfg.Width,
		Height:    o.Cfg.Height,
		Font:      font,
		TitleFont: o.Cfg.TitleFont,
		FontSize:  o.Cfg.Height / 24,
	}
}

// encoderArgs resolves the encoder and its quality knob into ffmpeg args.
func (o *Orchestrator) encoderArgs() (string, []string) {
	encoder := o.Cfg.VideoEncoder
	if encoder == "" {
		encoder, _ = system.GetBestH264Encoder()
	}
	q := o.Cfg.Quality
	if q <= 0 {
		q = system.DefaultQuality(encoder)
	}
	switch encoder {
	case "h264_videotoolbox":
		return encoder, []string{"-b:v", fmt.Sprintf("%dk", q*100)}
	case "h264_nvenc":
		return encoder, []string{"-cq", fmt.Sprintf("%d", q)}
	default:
		return encoder, []string{"-crf", fmt.Sprintf("%d", q), "-preset", "medium"}
	}
}

// acquireTarget locks the output path. A target already being rendered by
// another process shifts to a numbered sibling instead of blocking.
func acquireTarget(outPath string) (string, *flock.Flock, error) {
	candidate := outPath
	for n := 0; n < 10; n++ {
		lock := flock.New(candidate + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return "", nil, fmt.Errorf("lock %s: %w", candidate, err)
		}
		if ok {
			if candidate != outPath {
				log.Printf("[!] %s is locked by another render, writing %s", outPath, candidate)
			}
			return candidate, lock, nil
		}
		candidate = numberedSibling(outPath, n+1)
	}
	return "", nil, fmt.Errorf("no unlocked output path near %s", outPath)
}

func numberedSibling(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// findBlockMusic resolves a block's local track, logging the miss so the
// silent fallback to the global music is visible in the render log.
func (o *Orchestrator) findBlockMusic(ref string) string {
	path := o.findMusic(ref)
	if path == "" {
		log.Printf("[!] Block music %q not found in %s, falling back to the global track", ref, o.Cfg.MusicDir)
	}
	return path
}

func (o *Orchestrator) findMusic(ref string) string {
	if ref == "" {
		return ""
	}
	if fi, err := os.Stat(ref); err == nil && !fi.IsDir() {
		return ref
	}
	exact := filepath.Join(o.Cfg.MusicDir, ref)
	if fi, err := os.Stat(exact); err == nil && !fi.IsDir() {
		return exact
	}
	if filepath.Ext(ref) != "" {
		return ""
	}
	for _, ext := range musicExts {
		guess := exact + ext
		if fi, err := os.Stat(guess); err == nil && !fi.IsDir() {
			return guess
		}
	}
	return ""
}

func flatten(sc *script.Script) []*script.Scene {
	var scenes []*script.Scene
	for _, b := range sc.Blocks {
		scenes = append(scenes, b.Scenes...)
	}
	return scenes
}

func sceneName(s *script.Scene, idx int) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("#%d", idx+1)
}

func tempRoot(cfg *config.Config) string {
	if cfg.TempDir != "" {
		return cfg.TempDir
	}
	return os.TempDir()
}

// moveFile renames when possible and copies across filesystems. The copy
// goes through a sibling temp name so a crash never leaves a truncated
// final file.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	tmp := dst + ".partial"
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
