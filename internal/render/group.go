package render

import (
	"log"

	"github.com/ivlev/script2video/internal/motion"
	"github.com/ivlev/script2video/internal/script"
)

// resolveGroupMotion projects each master shot's motion onto its member
// scenes. It needs every scene's real duration, so it runs once after
// narration synthesis and before any visual is rendered; nothing downstream
// ever sees a group again, only ordinary per-scene motion strings.
func resolveGroupMotion(scenes []*script.Scene, durations []float64) {
	totals := map[string]float64{}
	for i, s := range scenes {
		if s.Group != nil {
			totals[s.Group.ID] += durations[i]
		}
	}

	cursors := map[string]float64{}
	for i, s := range scenes {
		g := s.Group
		if g == nil {
			continue
		}
		start := cursors[g.ID]
		end := start + durations[i]
		cursors[g.ID] = end
		total := totals[g.ID]
		if total <= 0 {
			continue
		}

		if len(s.Assets) == 0 {
			s.Assets = append(s.Assets, script.Asset{})
		}
		a := &s.Assets[0]

		// A shared video clip keeps playing across the cut: each member
		// seeks to where the previous one left off.
		if a.Kind == script.KindVideo {
			a.Seek += start
		}

		if g.Zoom != "" {
			if z, err := motion.ProjectZoom(g.Zoom, start, end, total); err == nil {
				a.Zoom = z
			} else {
				log.Printf("[!] Group %s zoom %q: %v", g.ID, g.Zoom, err)
			}
		}
		if g.Move != "" {
			if m, err := motion.ProjectMove(g.Move, start, end, total); err == nil {
				a.Move = m
			} else {
				log.Printf("[!] Group %s move %q: %v", g.ID, g.Move, err)
			}
		}
		if a.Overlay == "" {
			a.Overlay = g.Overlay
		}
		if a.Fit == "" {
			a.Fit = g.Fit
		}
	}
}
