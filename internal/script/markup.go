package script

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Inline markup recognized inside scene text. Tags never nest except the
// paired forms [SUB]...[/SUB] and emotion spans like [EPICO]...[/EPICO].
var (
	bracketRe   = regexp.MustCompile(`\[[^\[\]]*\]`)
	subInlineRe = regexp.MustCompile(`\[SUB:([^\]]*)\]`)
	subSpanRe   = regexp.MustCompile(`\[SUB\](.*?)\[/SUB\]`)
	sfxRe       = regexp.MustCompile(`\[SFX:([^\]]*)\]`)
	overlayRe   = regexp.MustCompile(`\[OVERLAY:([^\]]*)\]`)
	pauseRe     = regexp.MustCompile(`\[PAUSA:([0-9.]+)\]`)
	emotionRe   = regexp.MustCompile(`\[/?[A-ZÁÉÍÓÚÜÑ]+\]`)
)

// ExtractMarkup pulls subtitle, SFX and overlay directives out of raw scene
// text and returns the clean narration text. Cue offsets are word counts of
// the text preceding each tag, with every other bracketed marker stripped
// before counting.
func ExtractMarkup(raw string, scene *Scene) string {
	// Standalone [SUB: ...] tags annotate the words that follow them.
	for _, m := range subInlineRe.FindAllStringSubmatchIndex(raw, -1) {
		content := raw[m[2]:m[3]]
		cue := parseSubContent(content)
		cue.Offset = wordOffsetAt(raw, m[0])
		scene.Subtitles = append(scene.Subtitles, cue)
	}

	// Paired form: the enclosed text stays part of the narration.
	for _, m := range subSpanRe.FindAllStringSubmatchIndex(raw, -1) {
		inner := strings.TrimSpace(raw[m[2]:m[3]])
		scene.Subtitles = append(scene.Subtitles, SubtitleCue{
			Text:      inner,
			Offset:    wordOffsetAt(raw, m[0]),
			WordCount: countWords(inner),
			Phonetic:  countWords(inner),
			Y:         defaultCueY,
		})
	}

	for _, m := range sfxRe.FindAllStringSubmatch(raw, -1) {
		scene.SFX = append(scene.SFX, parseSFXContent(m[1]))
	}

	if m := overlayRe.FindStringSubmatch(raw); m != nil && len(scene.Assets) > 0 {
		scene.Assets[0].Overlay = strings.TrimSpace(m[1])
	}

	sort.SliceStable(scene.Subtitles, func(i, j int) bool {
		return scene.Subtitles[i].Offset < scene.Subtitles[j].Offset
	})
	sort.SliceStable(scene.SFX, func(i, j int) bool {
		return scene.SFX[i].Offset < scene.SFX[j].Offset
	})

	return CleanText(raw)
}

// defaultCueY places inline cues in the main (bottom) band.
const defaultCueY = 0.85

// CleanText strips every bracketed marker but keeps the narration words,
// including text enclosed in [SUB]..[/SUB] and emotion spans.
func CleanText(raw string) string {
	s := subInlineRe.ReplaceAllString(raw, " ")
	s = sfxRe.ReplaceAllString(s, " ")
	s = overlayRe.ReplaceAllString(s, " ")
	s = pauseRe.ReplaceAllString(s, " ")
	// Paired tags: drop the brackets, keep the inside.
	s = strings.ReplaceAll(s, "[SUB]", " ")
	s = strings.ReplaceAll(s, "[/SUB]", " ")
	s = emotionRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// wordOffsetAt counts narration words before byte position pos, ignoring
// all bracketed markers in the prefix.
func wordOffsetAt(raw string, pos int) int {
	prefix := raw[:pos]
	prefix = strings.ReplaceAll(prefix, "[SUB]", " ")
	prefix = strings.ReplaceAll(prefix, "[/SUB]", " ")
	prefix = bracketRe.ReplaceAllString(prefix, " ")
	return countWords(prefix)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// parseSubContent handles both "n | text" and "text | n" orderings.
func parseSubContent(content string) SubtitleCue {
	cue := SubtitleCue{Y: defaultCueY}
	parts := strings.SplitN(content, "|", 2)
	if len(parts) == 2 {
		a := strings.TrimSpace(parts[0])
		b := strings.TrimSpace(parts[1])
		if n, err := strconv.Atoi(a); err == nil {
			cue.WordCount = n
			cue.Text = b
		} else if n, err := strconv.Atoi(b); err == nil {
			cue.WordCount = n
			cue.Text = a
		} else {
			cue.Text = strings.TrimSpace(content)
		}
	} else {
		cue.Text = strings.TrimSpace(content)
	}
	if cue.WordCount == 0 {
		cue.WordCount = countWords(cue.Text)
	}
	cue.Phonetic = cue.WordCount
	return cue
}

// parseSFXContent parses "name | volume | offset_in_words". Malformed
// numeric fields fall back to 0.5 volume and offset 0.
func parseSFXContent(content string) SFXCue {
	cue := SFXCue{Volume: 0.5}
	parts := strings.Split(content, "|")
	cue.Name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
			cue.Volume = v
		}
	}
	if len(parts) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
			cue.Offset = n
		}
	}
	return cue
}

// NormalizeSpeed converts a document speed value into a float factor.
// Numeric values pass through, "+N%"/"-N%" become 1±N/100, anything else
// is neutral.
func NormalizeSpeed(v any) float64 {
	switch s := v.(type) {
	case nil:
		return 1.0
	case float64:
		if s > 0 {
			return s
		}
		return 1.0
	case int:
		if s > 0 {
			return float64(s)
		}
		return 1.0
	case string:
		t := strings.TrimSpace(s)
		if t == "" {
			return 1.0
		}
		if strings.HasSuffix(t, "%") {
			n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(t, "+"), "%"), 64)
			if err != nil {
				return 1.0
			}
			return 1.0 + n/100.0
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil && f > 0 {
			return f
		}
	}
	return 1.0
}
