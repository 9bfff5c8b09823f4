package motion

import (
	"fmt"
	"strings"
)

// Master-shot projection: a group of scenes shares one continuous motion
// arc. Each scene receives the sub-interval of the group range covered by
// its own time span, so the visible camera move never cuts at a scene
// boundary.

// ProjectZoom maps a group zoom range onto the [start, end] sub-interval
// (seconds into the group, out of total).
func ProjectZoom(zoom string, start, end, total float64) (string, error) {
	z0, z1, err := ParseZoom(zoom)
	if err != nil {
		return "", err
	}
	a, b := fraction(start, total), fraction(end, total)
	return FormatZoom(z0+(z1-z0)*a, z0+(z1-z0)*b), nil
}

// ProjectMove maps every pan component of a group move spec onto the
// scene's sub-interval. SHAKE and ROT pass through untouched: jitter is
// time-local, and a partial rotation range would bend the arc.
func ProjectMove(move string, start, end, total float64) (string, error) {
	if strings.TrimSpace(move) == "" {
		return "", nil
	}
	var spec Spec
	if err := parseMoveInto(&spec, move); err != nil {
		return "", err
	}

	a, b := fraction(start, total), fraction(end, total)
	var parts []string
	for _, m := range spec.Moves {
		axis := "HOR"
		if m.Axis == Vertical {
			axis = "VER"
		}
		from := m.From + (m.To-m.From)*a
		to := m.From + (m.To-m.From)*b
		parts = append(parts, fmt.Sprintf("%s:%.3f:%.3f", axis, from, to))
	}
	if spec.RotFrom != 0 || spec.RotTo != 0 {
		parts = append(parts, fmt.Sprintf("ROT:%.3f:%.3f", spec.RotFrom, spec.RotTo))
	}
	if spec.Shake {
		parts = append(parts, "SHAKE")
	}
	return strings.Join(parts, "+"), nil
}

func fraction(v, total float64) float64 {
	if total <= 0 {
		return 0
	}
	f := v / total
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
