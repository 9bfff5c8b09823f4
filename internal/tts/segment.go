package tts

import (
	"regexp"
	"strconv"
	"strings"
)

// Segment is one synthesis unit of a scene: either spoken text with its own
// delivery parameters, or an explicit pause. Segmentation drives timing:
// it determines the final duration and every offset captions and SFX rely
// on, even though the waveforms themselves come from the engine.
type Segment struct {
	Text    string
	Style   string
	RateMul float64 // multiplier applied on top of the scene rate
	Pitch   string  // overrides the scene pitch when non-empty
	Pause   float64 // > 0 marks a silence segment; Text is empty
}

var (
	segPauseRe   = regexp.MustCompile(`\[PAUSA:([0-9.]+)\]`)
	segEmotionRe = regexp.MustCompile(`\[([A-ZÁÉÍÓÚÜÑ]+)\](.*?)\[/([A-ZÁÉÍÓÚÜÑ]+)\]`)
	segMarkerRe  = regexp.MustCompile(`\[[^\[\]]*\]`)
)

// Delivery presets for the emotion tags. Unknown tags keep neutral
// delivery but still pass the lowercased tag as a style hint.
var stylePresets = map[string]Segment{
	"EPICO":   {Style: "epic", RateMul: 0.92, Pitch: "-2Hz"},
	"TRISTE":  {Style: "sad", RateMul: 0.85, Pitch: "-4Hz"},
	"ALEGRE":  {Style: "cheerful", RateMul: 1.08, Pitch: "+3Hz"},
	"SUSURRO": {Style: "whispering", RateMul: 0.90},
	"GRITO":   {Style: "shouting", RateMul: 1.05, Pitch: "+5Hz"},
}

// Segmentize splits tagged scene text into an ordered list of synthesis
// units. Emotion spans become styled segments, [PAUSA:n] becomes a silence
// segment, all other markers ([SUB], [SFX], [OVERLAY]) are stripped since
// they carry no audio.
func Segmentize(raw string) []Segment {
	var out []Segment
	rest := raw
	for rest != "" {
		pauseLoc := segPauseRe.FindStringSubmatchIndex(rest)
		emoLoc := segEmotionRe.FindStringSubmatchIndex(rest)

		// Take whichever tagged region comes first.
		switch {
		case pauseLoc != nil && (emoLoc == nil || pauseLoc[0] < emoLoc[0]):
			out = appendSpoken(out, rest[:pauseLoc[0]])
			if sec, err := strconv.ParseFloat(rest[pauseLoc[2]:pauseLoc[3]], 64); err == nil && sec > 0 {
				out = append(out, Segment{Pause: sec, RateMul: 1})
			}
			rest = rest[pauseLoc[1]:]
		case emoLoc != nil:
			out = appendSpoken(out, rest[:emoLoc[0]])
			tag := rest[emoLoc[2]:emoLoc[3]]
			inner := rest[emoLoc[4]:emoLoc[5]]
			out = appendStyled(out, inner, tag)
			rest = rest[emoLoc[1]:]
		default:
			out = appendSpoken(out, rest)
			rest = ""
		}
	}
	return out
}

func appendSpoken(segs []Segment, text string) []Segment {
	text = cleanSegmentText(text)
	if text == "" {
		return segs
	}
	return append(segs, Segment{Text: text, RateMul: 1})
}

func appendStyled(segs []Segment, text, tag string) []Segment {
	// [SUB]..[/SUB] is caption markup, not a delivery style.
	if tag == "SUB" {
		return appendSpoken(segs, text)
	}
	text = cleanSegmentText(text)
	if text == "" {
		return segs
	}
	seg := Segment{Text: text, Style: strings.ToLower(tag), RateMul: 1}
	if preset, ok := stylePresets[tag]; ok {
		seg.Style = preset.Style
		seg.RateMul = preset.RateMul
		seg.Pitch = preset.Pitch
	}
	return append(segs, seg)
}

func cleanSegmentText(text string) string {
	text = segMarkerRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
