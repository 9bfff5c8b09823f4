package mixer

import (
	"fmt"
	"math"
)

// Expression compiles the envelope into an ffmpeg volume expression,
// evaluated per frame:
//
//	volume='if(lt(t,2.7),0.40,if(lt(t,3.0),...))':eval=frame
//
// The gain between any two breakpoints is linear, so each segment is either
// a constant or a first-degree ramp in t.
func (e *Envelope) Expression() string {
	bps := e.breakpoints()
	if len(bps) == 0 {
		return fmt.Sprintf("%.4f", e.Gain(0))
	}

	starts := append([]float64{0}, bps...)
	ends := append(append([]float64{}, bps...), e.Duration)

	segs := make([]string, len(starts))
	for i := range starts {
		segs[i] = e.segmentExpr(starts[i], ends[i])
	}

	// Fold the segments into a nested if(lt(t, end), seg, rest) chain. The
	// final segment is the unconditional tail.
	expr := segs[len(segs)-1]
	for i := len(segs) - 2; i >= 0; i-- {
		expr = fmt.Sprintf("if(lt(t,%.4f),%s,%s)", ends[i], segs[i], expr)
	}
	return expr
}

func (e *Envelope) segmentExpr(t0, t1 float64) string {
	// Sample just inside the boundaries so ramp endpoints land on the
	// segment's own side of each breakpoint.
	eps := (t1 - t0) * 1e-4
	g0 := e.Gain(t0 + eps)
	g1 := e.Gain(t1 - eps)
	if math.Abs(g1-g0) < 1e-6 {
		return fmt.Sprintf("%.4f", g0)
	}
	slope := (g1 - g0) / (t1 - t0)
	return fmt.Sprintf("(%.4f+%.6f*(t-%.4f))", g0, slope, t0)
}

// VolumeFilter wraps the expression as a complete filter argument. The
// single quotes keep the graph parser from splitting on the expression's
// commas.
func (e *Envelope) VolumeFilter() string {
	return "volume='" + e.Expression() + "':eval=frame"
}
