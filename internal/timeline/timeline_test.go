package timeline

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/tts"
)

func TestSceneDurationFloor(t *testing.T) {
	if d := SceneDuration(0.3, 0.2); d != 1.0 {
		t.Fatalf("short scene duration = %v", d)
	}
	if d := SceneDuration(3.0, 0.5); math.Abs(d-3.5) > 1e-9 {
		t.Fatalf("duration = %v", d)
	}
}

func TestAppendAdvancesCursor(t *testing.T) {
	var tl Timeline
	tl.Append(Clip{Duration: 4, Narration: 3.5})
	tl.Append(Clip{Duration: 2, Narration: 1.8})

	if tl.Duration != 6 {
		t.Fatalf("total duration = %v", tl.Duration)
	}
	if tl.Clips[1].Start != 4 {
		t.Fatalf("second clip start = %v", tl.Clips[1].Start)
	}
	// Clips must tile the timeline with no gaps or overlaps.
	var cursor float64
	for i, c := range tl.Clips {
		if math.Abs(c.Start-cursor) > 1e-9 {
			t.Fatalf("clip %d starts at %v, cursor %v", i, c.Start, cursor)
		}
		cursor += c.Duration
	}
	if len(tl.Voice) != 2 || tl.Voice[1].Start != 4 || math.Abs(tl.Voice[1].End-5.8) > 1e-9 {
		t.Fatalf("voice intervals = %+v", tl.Voice)
	}
}

func TestAppendSkipsVoiceForSilentClip(t *testing.T) {
	var tl Timeline
	tl.Append(Clip{Duration: 2, Narration: 0})
	if len(tl.Voice) != 0 {
		t.Fatalf("silent clip produced voice interval: %+v", tl.Voice)
	}
}

func TestBlockSpans(t *testing.T) {
	var tl Timeline
	tl.BeginBlock()
	tl.Append(Clip{Duration: 5, Narration: 4})
	tl.EndBlock(false, 0.6)
	tl.BeginBlock()
	tl.Append(Clip{Duration: 3})
	tl.EndBlock(true, 0)

	if len(tl.Blocks) != 2 {
		t.Fatalf("blocks = %+v", tl.Blocks)
	}
	if tl.Blocks[0].Start != 0 || tl.Blocks[0].End != 5 || tl.Blocks[0].Volume != 0.6 {
		t.Fatalf("first block = %+v", tl.Blocks[0])
	}
	if tl.Blocks[1].Start != 5 || tl.Blocks[1].End != 8 || !tl.Blocks[1].Mute {
		t.Fatalf("second block = %+v", tl.Blocks[1])
	}
}

func TestSFXOffsetSeconds(t *testing.T) {
	scene := &script.Scene{Text: "uno dos tres cuatro"}
	narr := tts.Result{Duration: 4.0}

	// No timings: even pacing, 1 word per second.
	at := sfxOffsetSeconds(scene, narr, script.SFXCue{Offset: 2})
	if math.Abs(at-2.0) > 1e-9 {
		t.Fatalf("even-paced offset = %v", at)
	}

	// With timings the measured word start wins.
	narr.Words = []tts.WordTiming{
		{Start: 0, End: 0.5}, {Start: 0.6, End: 1.1},
		{Start: 2.5, End: 3.0}, {Start: 3.1, End: 3.6},
	}
	at = sfxOffsetSeconds(scene, narr, script.SFXCue{Offset: 2})
	if math.Abs(at-2.5) > 1e-9 {
		t.Fatalf("timed offset = %v", at)
	}

	if at = sfxOffsetSeconds(scene, narr, script.SFXCue{Offset: 0}); at != 0 {
		t.Fatalf("zero offset = %v", at)
	}
}

func TestFindSFXExtensionGuess(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "boom.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	a := &Assembler{Cfg: &config.Config{SFXDir: dir}}

	if got := a.findSFX("boom"); got != filepath.Join(dir, "boom.mp3") {
		t.Fatalf("findSFX(boom) = %q", got)
	}
	if got := a.findSFX("missing"); got != "" {
		t.Fatalf("findSFX(missing) = %q", got)
	}
}

func TestScaleFilter(t *testing.T) {
	a := &Assembler{Cfg: &config.Config{Width: 1080, Height: 1920}}
	cover := a.scaleFilter(false)
	if !strings.Contains(cover, "increase") || !strings.Contains(cover, "crop=1080:1920") {
		t.Fatalf("cover filter = %s", cover)
	}
	contain := a.scaleFilter(true)
	if !strings.Contains(contain, "decrease") || !strings.Contains(contain, "pad=1080:1920") {
		t.Fatalf("contain filter = %s", contain)
	}
}
