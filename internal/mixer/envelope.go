package mixer

import "sort"

// Interval is a half-open [Start, End) span in seconds on the final
// timeline.
type Interval struct {
	Start float64
	End   float64
}

// BlockSpan marks a script block's extent on the timeline along with its
// music policy for that stretch.
type BlockSpan struct {
	Interval
	Mute   bool    // block silences background music entirely
	Volume float64 // block-level music volume override, 0 means inherit
}

// Envelope describes the background-music gain over the whole video. It is
// pure: Gain can be sampled at any t for tests, and Expression compiles the
// same shape into an ffmpeg volume filter.
type Envelope struct {
	Duration   float64
	Blocks     []BlockSpan
	Voice      []Interval // narration spans that trigger ducking
	BaseVolume float64    // music volume outside any voice span
	DuckRatio  float64    // multiplier applied while voice is active
	Attack     float64    // seconds to ramp down before a voice span
	Release    float64    // seconds to ramp back up after a voice span
}

// Gain returns the music multiplier at time t. Overlapping influences
// combine by taking the minimum, so a mute window always wins and adjacent
// voice spans never pump the volume back up between words.
func (e *Envelope) Gain(t float64) float64 {
	base := e.BaseVolume
	for _, b := range e.Blocks {
		if t < b.Start || t >= b.End {
			continue
		}
		if b.Mute {
			return 0
		}
		if b.Volume > 0 {
			base = b.Volume
		}
	}

	gain := base
	ducked := base * e.DuckRatio
	for _, v := range e.Voice {
		g := e.spanGain(t, v, base, ducked)
		if g < gain {
			gain = g
		}
	}
	return gain
}

// spanGain evaluates one voice span's contribution: full duck inside the
// span, linear ramps across the attack and release windows, base outside.
func (e *Envelope) spanGain(t float64, v Interval, base, ducked float64) float64 {
	switch {
	case t >= v.Start && t < v.End:
		return ducked
	case e.Attack > 0 && t >= v.Start-e.Attack && t < v.Start:
		f := (v.Start - t) / e.Attack // 1 at attack start, 0 at span start
		return ducked + (base-ducked)*f
	case e.Release > 0 && t >= v.End && t < v.End+e.Release:
		f := (t - v.End) / e.Release
		return ducked + (base-ducked)*f
	default:
		return base
	}
}

// breakpoints returns every time where the envelope's piecewise shape
// changes slope, sorted and deduplicated, clamped to [0, Duration].
func (e *Envelope) breakpoints() []float64 {
	var ts []float64
	add := func(t float64) {
		if t > 0 && t < e.Duration {
			ts = append(ts, t)
		}
	}
	for _, b := range e.Blocks {
		add(b.Start)
		add(b.End)
	}
	for _, v := range e.Voice {
		add(v.Start - e.Attack)
		add(v.Start)
		add(v.End)
		add(v.End + e.Release)
	}
	sort.Float64s(ts)
	out := ts[:0]
	var prev float64 = -1
	for _, t := range ts {
		if t-prev > 1e-6 {
			out = append(out, t)
			prev = t
		}
	}
	return out
}
