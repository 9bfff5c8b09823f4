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

	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/tts"
)

var sfxExts = []string{".mp3", ".wav", ".ogg", ".m4a", ".flac"}

// buildSceneAudio mixes the scene's audio layers into one track of exactly
// the scene duration: narration from t=0, each sound effect delayed to its
// word position, and optionally the video asset's own soundtrack underneath.
func (a *Assembler) buildSceneAudio(ctx context.Context, scene *script.Scene, narr tts.Result, own *ownAudioSource, duration float64, out string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	args := []string{"-y"}
	var chains []string
	var mixed []string
	input := 0

	addInput := func(pre []string, path string) int {
		args = append(args, pre...)
		args = append(args, "-i", path)
		i := input
		input++
		return i
	}

	const norm = "aformat=sample_rates=44100:channel_layouts=stereo"

	if narr.Path != "" {
		i := addInput(nil, narr.Path)
		chains = append(chains, fmt.Sprintf("[%d:a]%s,apad,atrim=0:%s[n]", i, norm, ffSeconds(duration)))
		mixed = append(mixed, "[n]")
	} else {
		args = append(args, "-f", "lavfi", "-t", ffSeconds(duration),
			"-i", "anullsrc=r=44100:cl=stereo")
		chains = append(chains, fmt.Sprintf("[%d:a]acopy[n]", input))
		input++
		mixed = append(mixed, "[n]")
	}

	for si, cue := range scene.SFX {
		path := a.findSFX(cue.Name)
		if path == "" {
			log.Printf("[!] SFX %q not found in %s, skipping", cue.Name, a.Cfg.SFXDir)
			continue
		}
		at := sfxOffsetSeconds(scene, narr, cue)
		i := addInput(nil, path)
		lbl := fmt.Sprintf("[s%d]", si)
		chains = append(chains, fmt.Sprintf(
			"[%d:a]volume=%.3f,%s,adelay=%d:all=1%s",
			i, cue.Volume, norm, int(at*1000), lbl))
		mixed = append(mixed, lbl)
	}

	if own != nil {
		var pre []string
		if own.Seek > 0 {
			pre = []string{"-ss", ffSeconds(own.Seek)}
		}
		i := addInput(pre, own.Path)
		chains = append(chains, fmt.Sprintf(
			"[%d:a]volume=%.3f,%s,atrim=0:%s[own]",
			i, own.Volume, norm, ffSeconds(duration)))
		mixed = append(mixed, "[own]")
	}

	filter := strings.Join(chains, ";")
	if len(mixed) > 1 {
		filter += fmt.Sprintf(";%samix=inputs=%d:duration=longest:normalize=0,atrim=0:%s[aout]",
			strings.Join(mixed, ""), len(mixed), ffSeconds(duration))
	} else {
		filter += fmt.Sprintf(";%satrim=0:%s[aout]", mixed[0], ffSeconds(duration))
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if o, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("scene audio mix: %w: %s", err, tail(string(o), 400))
	}
	return nil
}

// sfxOffsetSeconds converts a cue's word offset into seconds. Word timings
// give the exact position; without them the narration is assumed evenly
// paced.
func sfxOffsetSeconds(scene *script.Scene, narr tts.Result, cue script.SFXCue) float64 {
	if cue.Offset <= 0 {
		return 0
	}
	if cue.Offset < len(narr.Words) {
		return narr.Words[cue.Offset].Start
	}
	words := scene.WordCount()
	if words == 0 || narr.Duration <= 0 {
		return 0
	}
	at := narr.Duration / float64(words) * float64(cue.Offset)
	if at > narr.Duration {
		at = narr.Duration
	}
	return at
}

// findSFX locates a named effect in the SFX directory, guessing the
// extension when the cue gives a bare name.
func (a *Assembler) findSFX(name string) string {
	if name == "" {
		return ""
	}
	exact := filepath.Join(a.Cfg.SFXDir, name)
	if fi, err := os.Stat(exact); err == nil && !fi.IsDir() {
		return exact
	}
	if filepath.Ext(name) != "" {
		return ""
	}
	for _, ext := range sfxExts {
		guess := exact + ext
		if fi, err := os.Stat(guess); err == nil && !fi.IsDir() {
			return guess
		}
	}
	return ""
}
