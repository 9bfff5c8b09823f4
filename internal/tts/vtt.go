package tts

import (
	"regexp"
	"strconv"
	"strings"
)

// vttTimingRe matches cue lines like "00:00:01.234 --> 00:00:03.456".
var vttTimingRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})\.(\d{3})`)

// ParseVTT extracts word timings from a WEBVTT sidecar where each cue holds
// a single word (edge-tts --words-in-cue 1). Header, NOTE and metadata
// lines are skipped; cue payloads spanning several words are split evenly.
func ParseVTT(raw string) []WordTiming {
	var out []WordTiming
	lines := strings.Split(raw, "\n")
	for i := 0; i < len(lines); i++ {
		m := vttTimingRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		start := vttSeconds(m[1], m[2], m[3], m[4])
		end := vttSeconds(m[5], m[6], m[7], m[8])

		var payload []string
		for j := i + 1; j < len(lines); j++ {
			text := strings.TrimSpace(lines[j])
			if text == "" {
				break
			}
			payload = append(payload, strings.Fields(text)...)
			i = j
		}
		if len(payload) == 0 || end <= start {
			continue
		}

		per := (end - start) / float64(len(payload))
		for k, w := range payload {
			out = append(out, WordTiming{
				Word:  w,
				Start: start + float64(k)*per,
				End:   start + float64(k+1)*per,
			})
		}
	}
	return out
}

func vttSeconds(h, m, s, ms string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mmm, _ := strconv.Atoi(ms)
	return float64(hh)*3600 + float64(mm)*60 + float64(ss) + float64(mmm)/1000
}
