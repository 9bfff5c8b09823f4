package captions

import (
	"sort"
	"strings"

	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/tts"
)

// Band selects one of the two caption styles. Cues anchored in the upper
// part of the frame render as titles; everything else is body text.
type Band int

const (
	BandMain Band = iota
	BandTitle
)

const titleBandThreshold = 0.6

// Word is one display word with its highlight duration for karaoke tags.
type Word struct {
	Text     string
	Duration float64 // seconds this word stays highlighted
}

// Line is a fully timed caption ready for ASS rendering. Times are absolute
// on the final video timeline.
type Line struct {
	Start     float64
	End       float64
	Y         float64 // vertical anchor as a fraction of frame height
	Band      Band
	Words     []Word // empty when no per-word timing is available
	Text      string
	Highlight bool
}

// Timing carries the tunables for cue placement.
type Timing struct {
	Sync       float64 // added to every cue start, typically negative
	MinCueRate float64 // words per second floor for the uniform fallback
	MinCueDur  float64
	MaxCueDur  float64
}

// Compile turns a scene's subtitle cues into timed caption lines. Word
// timings from the synthesizer take precedence; when the spoken word count
// diverges from the display text (phonetic spellings, numbers read as
// several words) the measured span is redistributed over the display words
// by character length. With no timings at all, cues fall back to a uniform
// pacing derived from the scene's narration rate.
func Compile(scene *script.Scene, sceneStart, narration float64, words []tts.WordTiming, tm Timing) []Line {
	var lines []Line
	for _, cue := range scene.Subtitles {
		line := compileCue(scene, cue, sceneStart, narration, words, tm)
		if line.End > line.Start {
			lines = append(lines, line)
		}
	}
	clampOverlaps(lines)
	return lines
}

func compileCue(scene *script.Scene, cue script.SubtitleCue, sceneStart, narration float64, words []tts.WordTiming, tm Timing) Line {
	line := Line{
		Y:         cue.Y,
		Text:      cue.Text,
		Highlight: cue.Highlight,
		Band:      BandMain,
	}
	if cue.Y < titleBandThreshold {
		line.Band = BandTitle
	}

	// Phonetic is how many words the engine actually speaks for this cue;
	// it sizes the timed span. WordCount only describes the display text.
	count := cue.Phonetic
	if count <= 0 {
		count = cue.WordCount
	}
	if count <= 0 {
		count = len(strings.Fields(cue.Text))
	}

	if cue.Offset+count <= len(words) && count > 0 {
		span := words[cue.Offset : cue.Offset+count]
		line.Start = sceneStart + span[0].Start + tm.Sync
		line.End = sceneStart + span[len(span)-1].End + tm.Sync
		if cue.Dynamic {
			line.Words = distribute(cue.Text, span)
		}
	} else {
		start, end := uniformSpan(scene, cue, count, narration, tm)
		line.Start = sceneStart + start + tm.Sync
		line.End = sceneStart + end + tm.Sync
	}
	if line.Start < sceneStart {
		line.Start = sceneStart
	}
	return line
}

// distribute maps measured word timings onto the display words. When the
// counts match it is one-to-one; otherwise the total span is split in
// proportion to each display word's character length.
func distribute(text string, span []tts.WordTiming) []Word {
	display := strings.Fields(text)
	if len(display) == 0 {
		return nil
	}
	out := make([]Word, len(display))

	if len(display) == len(span) {
		for i, w := range display {
			out[i] = Word{Text: w, Duration: span[i].End - span[i].Start}
		}
		return out
	}

	total := span[len(span)-1].End - span[0].Start
	var chars int
	for _, w := range display {
		chars += len([]rune(w))
	}
	if chars == 0 {
		chars = 1
	}
	for i, w := range display {
		out[i] = Word{Text: w, Duration: total * float64(len([]rune(w))) / float64(chars)}
	}
	return out
}

// uniformSpan positions a cue without word timings: the scene's words are
// assumed evenly paced, so the start falls at the cue's word offset along
// the narration. The duration is then stretched so the cue is never flashed
// faster than the minimum reading rate, and clamped to the hard bounds.
func uniformSpan(scene *script.Scene, cue script.SubtitleCue, count int, narration float64, tm Timing) (start, end float64) {
	totalWords := scene.WordCount()
	if totalWords == 0 || narration <= 0 {
		return 0, tm.MinCueDur
	}
	rate := float64(totalWords) / narration
	start = float64(cue.Offset) / rate
	dur := float64(count) / rate
	if tm.MinCueRate > 0 {
		if floor := float64(count) / tm.MinCueRate; dur < floor {
			dur = floor
		}
	}
	if dur < tm.MinCueDur {
		dur = tm.MinCueDur
	}
	if dur > tm.MaxCueDur {
		dur = tm.MaxCueDur
	}
	return start, start + dur
}

// clampOverlaps trims each line so it never runs into the next line of the
// same band.
func clampOverlaps(lines []Line) {
	byBand := map[Band][]*Line{}
	for i := range lines {
		byBand[lines[i].Band] = append(byBand[lines[i].Band], &lines[i])
	}
	for _, band := range byBand {
		sort.Slice(band, func(i, j int) bool { return band[i].Start < band[j].Start })
		for i := 0; i < len(band)-1; i++ {
			if band[i].End > band[i+1].Start {
				band[i].End = band[i+1].Start
			}
		}
	}
}
