package captions

import (
	"math"
	"strings"
	"testing"

	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/tts"
)

func timings(pairs ...float64) []tts.WordTiming {
	var out []tts.WordTiming
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, tts.WordTiming{Start: pairs[i], End: pairs[i+1]})
	}
	return out
}

var testTiming = Timing{Sync: -0.15, MinCueRate: 3.0, MinCueDur: 0.7, MaxCueDur: 7.0}

func TestCompileWordTimedCue(t *testing.T) {
	scene := &script.Scene{
		Text: "uno dos tres cuatro",
		Subtitles: []script.SubtitleCue{
			{Text: "dos tres", Offset: 1, WordCount: 2, Y: 0.85},
		},
	}
	words := timings(0, 0.4, 0.5, 0.9, 1.0, 1.4, 1.5, 1.9)

	lines := Compile(scene, 10, 2.0, words, testTiming)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	l := lines[0]
	if math.Abs(l.Start-(10+0.5-0.15)) > 1e-6 {
		t.Errorf("start = %v", l.Start)
	}
	if math.Abs(l.End-(10+1.4-0.15)) > 1e-6 {
		t.Errorf("end = %v", l.End)
	}
	if l.Band != BandMain {
		t.Errorf("band = %v", l.Band)
	}
}

func TestCompileKaraokeRedistribution(t *testing.T) {
	// Spoken as three words, displayed as two: "veinticinco por ciento"
	// shown as "25 %". Durations split by display character length.
	scene := &script.Scene{
		Text: "sube veinticinco por ciento",
		Subtitles: []script.SubtitleCue{
			{Text: "hasta 25%", Offset: 1, WordCount: 3, Y: 0.85, Dynamic: true},
		},
	}
	words := timings(0, 0.3, 0.4, 1.0, 1.1, 1.3, 1.4, 2.0)

	lines := Compile(scene, 0, 2.0, words, testTiming)
	if len(lines) != 1 || len(lines[0].Words) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	total := lines[0].Words[0].Duration + lines[0].Words[1].Duration
	if math.Abs(total-(2.0-0.4)) > 1e-6 {
		t.Errorf("redistributed total = %v", total)
	}
	// "hasta" (5 runes) gets more than "25%" (3 runes).
	if lines[0].Words[0].Duration <= lines[0].Words[1].Duration {
		t.Errorf("durations not proportional: %+v", lines[0].Words)
	}
}

func TestCompileUniformFallback(t *testing.T) {
	scene := &script.Scene{
		Text: "uno dos tres cuatro cinco seis",
		Subtitles: []script.SubtitleCue{
			{Text: "tres cuatro", Offset: 2, WordCount: 2, Y: 0.85},
		},
	}
	lines := Compile(scene, 0, 2.0, nil, testTiming)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	// 6 words over 2s is 3 words/s; cue starts at word 2 = 0.667s, runs
	// 0.667s but is floored to MinCueDur.
	l := lines[0]
	if math.Abs(l.Start-(2.0/3.0-0.15)) > 1e-6 {
		t.Errorf("start = %v", l.Start)
	}
	if math.Abs((l.End-l.Start)-0.7) > 1e-6 {
		t.Errorf("duration = %v, want MinCueDur", l.End-l.Start)
	}
}

func TestCompileUniformFloorsReadingSpeed(t *testing.T) {
	// 12 words in 2s is 6 words/s. A 4-word cue paced at that rate would
	// flash for 0.67s; the reading-speed floor stretches it to 4 words at
	// 3 words/s = 1.33s.
	scene := &script.Scene{
		Text: "a b c d e f g h i j k l",
		Subtitles: []script.SubtitleCue{
			{Text: "e f g h", Offset: 4, WordCount: 4, Y: 0.85},
		},
	}
	lines := Compile(scene, 0, 2.0, nil, testTiming)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	l := lines[0]
	if math.Abs(l.Start-(4.0/6.0-0.15)) > 1e-6 {
		t.Errorf("start = %v, want word offset at the actual pace", l.Start)
	}
	if math.Abs((l.End-l.Start)-4.0/3.0) > 1e-6 {
		t.Errorf("duration = %v, want 4 words at the 3 words/s floor", l.End-l.Start)
	}
}

func TestCompileUniformSlowSceneKeepsPlacement(t *testing.T) {
	// 4 words over 4s is slower than the floor rate; the floor must not
	// pull the cue start earlier than its uniform position.
	scene := &script.Scene{
		Text: "uno dos tres cuatro",
		Subtitles: []script.SubtitleCue{
			{Text: "tres", Offset: 2, WordCount: 1, Y: 0.85},
		},
	}
	lines := Compile(scene, 0, 4.0, nil, testTiming)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	l := lines[0]
	if math.Abs(l.Start-(2.0-0.15)) > 1e-6 {
		t.Errorf("start = %v, want the uniform word position", l.Start)
	}
	if math.Abs((l.End-l.Start)-1.0) > 1e-6 {
		t.Errorf("duration = %v", l.End-l.Start)
	}
}

func TestCompileTitleBand(t *testing.T) {
	scene := &script.Scene{
		Text:      "uno",
		Subtitles: []script.SubtitleCue{{Text: "EL FIN", Offset: 0, WordCount: 1, Y: 0.15}},
	}
	lines := Compile(scene, 0, 1.0, timings(0, 0.5), testTiming)
	if len(lines) != 1 || lines[0].Band != BandTitle {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestClampOverlapsSameBandOnly(t *testing.T) {
	lines := []Line{
		{Start: 0, End: 5, Band: BandMain},
		{Start: 3, End: 8, Band: BandMain},
		{Start: 0, End: 10, Band: BandTitle},
	}
	clampOverlaps(lines)
	if lines[0].End != 3 {
		t.Errorf("first main line end = %v", lines[0].End)
	}
	if lines[2].End != 10 {
		t.Errorf("title line was clamped: %v", lines[2].End)
	}
}

func TestRenderKaraokeTags(t *testing.T) {
	doc := &Doc{Width: 1080, Height: 1920, Font: "Montserrat", FontSize: 64}
	out := doc.Render([]Line{{
		Start: 1.0, End: 2.5, Y: 0.85, Band: BandMain,
		Words: []Word{{Text: "hola", Duration: 0.6}, {Text: "mundo", Duration: 0.9}},
	}})
	if !strings.Contains(out, `{\k60}hola {\k90}mundo`) {
		t.Fatalf("karaoke tags missing:\n%s", out)
	}
	if !strings.Contains(out, "Dialogue: 0,0:00:01.00,0:00:02.50,Main") {
		t.Fatalf("dialogue timing wrong:\n%s", out)
	}
}

func TestRenderStylesAndEscaping(t *testing.T) {
	doc := &Doc{Width: 1080, Height: 1920, Font: "Montserrat", FontSize: 64}
	out := doc.Render([]Line{
		{Start: 0, End: 1, Y: 0.15, Band: BandTitle, Text: "cap {x}"},
	})
	if !strings.Contains(out, "Style: Title,Montserrat,76,&H0000D7FF") {
		t.Fatalf("title style missing:\n%s", out)
	}
	if !strings.Contains(out, ",Title,,0,0,0,,cap (x)") {
		t.Fatalf("braces not escaped:\n%s", out)
	}
}

func TestAssTime(t *testing.T) {
	if got := assTime(3723.456); got != "1:02:03.46" {
		t.Fatalf("assTime = %s", got)
	}
	if got := assTime(-1); got != "0:00:00.00" {
		t.Fatalf("negative assTime = %s", got)
	}
}
