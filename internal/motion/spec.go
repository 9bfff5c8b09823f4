package motion

import (
	"fmt"
	"strconv"
	"strings"
)

// Axis names a pan direction.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Move is one pan component: a 0-100 position interpolated over the clip
// and mapped onto the crop slack of its axis.
type Move struct {
	Axis Axis
	From float64
	To   float64
}

// Spec holds the parsed motion parameters for one asset.
type Spec struct {
	ZoomStart float64
	ZoomEnd   float64
	Moves     []Move
	RotFrom   float64 // degrees
	RotTo     float64
	Shake     bool
	Contain   bool // letterbox instead of crop
}

// DefaultSpec is a static full-frame cover shot.
func DefaultSpec() Spec {
	return Spec{ZoomStart: 1.0, ZoomEnd: 1.0}
}

// ParseSpec builds a Spec from the declarative zoom/move/fit strings.
func ParseSpec(zoom, move, fit string) (Spec, error) {
	s := DefaultSpec()
	s.Contain = strings.EqualFold(fit, "contain")

	if zoom != "" {
		z0, z1, err := ParseZoom(zoom)
		if err != nil {
			return s, err
		}
		s.ZoomStart, s.ZoomEnd = z0, z1
	}
	if move != "" {
		if err := parseMoveInto(&s, move); err != nil {
			return s, err
		}
	}
	return s, nil
}

// ParseZoom parses "start:end" scale factors; a single value holds steady.
func ParseZoom(zoom string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(zoom), ":")
	switch len(parts) {
	case 1:
		z, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || z <= 0 {
			return 0, 0, fmt.Errorf("motion: bad zoom %q", zoom)
		}
		return z, z, nil
	case 2:
		z0, err0 := strconv.ParseFloat(parts[0], 64)
		z1, err1 := strconv.ParseFloat(parts[1], 64)
		if err0 != nil || err1 != nil || z0 <= 0 || z1 <= 0 {
			return 0, 0, fmt.Errorf("motion: bad zoom %q", zoom)
		}
		return z0, z1, nil
	}
	return 0, 0, fmt.Errorf("motion: bad zoom %q", zoom)
}

// parseMoveInto parses '+'-joined components: HOR:a:b, VER:a:b, ROT:a:b
// and the bare SHAKE flag.
func parseMoveInto(s *Spec, move string) error {
	for _, part := range strings.Split(move, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		upper := strings.ToUpper(part)
		if upper == "SHAKE" {
			s.Shake = true
			continue
		}

		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return fmt.Errorf("motion: bad move component %q", part)
		}
		from, err0 := strconv.ParseFloat(fields[1], 64)
		to, err1 := strconv.ParseFloat(fields[2], 64)
		if err0 != nil || err1 != nil {
			return fmt.Errorf("motion: bad move component %q", part)
		}

		switch strings.ToUpper(fields[0]) {
		case "HOR":
			s.Moves = append(s.Moves, Move{Axis: Horizontal, From: from, To: to})
		case "VER":
			s.Moves = append(s.Moves, Move{Axis: Vertical, From: from, To: to})
		case "ROT":
			s.RotFrom, s.RotTo = from, to
		default:
			return fmt.Errorf("motion: unknown axis %q", fields[0])
		}
	}
	return nil
}

// FormatZoom renders a zoom range back into its string form.
func FormatZoom(z0, z1 float64) string {
	return fmt.Sprintf("%.4f:%.4f", z0, z1)
}
