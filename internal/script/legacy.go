package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Legacy format: one scene per line, pipe-delimited columns
//
//	TITLE | ASSET | DIRECTIVE | TEXT | PAUSE
//
// with 3 to 5 columns tolerated. Directives combine FIT, ZOOM:a:b,
// HOR:a:b / VER:a:b and OVERLAY:name joined by '+'.

// convertLegacy reconstructs a structured document from legacy text.
func convertLegacy(text string) (*scriptDoc, error) {
	var scenes []sceneDoc
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sd, err := convertLine(line)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, sd)
	}
	if len(scenes) == 0 {
		return nil, errors.New("legacy document has no scene lines")
	}
	return &scriptDoc{
		Title:  "Imported script",
		Blocks: []blockDoc{{Title: "Main", Scenes: scenes}},
	}, nil
}

func convertLine(line string) (sceneDoc, error) {
	cols := splitColumns(line)
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	if len(cols) < 3 || len(cols) > 5 {
		return sceneDoc{}, fmt.Errorf("line %q: expected 3-5 columns, got %d", line, len(cols))
	}

	sd := sceneDoc{Title: cols[0]}
	rest := cols[2:]

	// A trailing numeric column is the pause.
	if len(cols) >= 4 {
		if p, err := strconv.ParseFloat(cols[len(cols)-1], 64); err == nil {
			sd.Pause = p
			rest = cols[2 : len(cols)-1]
		}
	}

	asset := assetDoc{ID: cols[1]}
	switch len(rest) {
	case 1:
		sd.Text = rest[0]
	case 2:
		applyDirective(&asset, rest[0])
		sd.Text = rest[1]
	default:
		return sceneDoc{}, fmt.Errorf("line %q: ambiguous columns", line)
	}

	if !isPlaceholder(asset.ID) || asset.Zoom != "" || asset.Move != "" {
		sd.Assets = []assetDoc{asset}
	}
	return sd, nil
}

// splitColumns splits on '|' outside bracketed markup, so inline tags like
// [SUB: 1 | Hola] survive the conversion intact.
func splitColumns(line string) []string {
	var cols []string
	depth := 0
	start := 0
	for i, r := range line {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				cols = append(cols, line[start:i])
				start = i + 1
			}
		}
	}
	return append(cols, line[start:])
}

// applyDirective parses the '+'-joined directive column onto an asset.
func applyDirective(a *assetDoc, directive string) {
	for _, part := range strings.Split(directive, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		upper := strings.ToUpper(part)
		switch {
		case upper == "FIT" || upper == "FIT:CONTAIN":
			a.Fit = "contain"
		case upper == "FIT:COVER":
			a.Fit = "cover"
		case strings.HasPrefix(upper, "ZOOM"):
			// ZOOM:a:b plus the ZOOM_IN/ZOOM_OUT aliases.
			if i := strings.Index(part, ":"); i >= 0 {
				a.Zoom = part[i+1:]
			}
		case strings.HasPrefix(upper, "HOR:") || strings.HasPrefix(upper, "VER:"):
			if a.Move == "" {
				a.Move = part
			} else {
				a.Move += "+" + part
			}
		case strings.HasPrefix(upper, "OVERLAY:"):
			a.Overlay = strings.TrimSpace(part[len("OVERLAY:"):])
		}
	}
}

// EncodeLegacy renders a script back into the pipe-delimited form, one
// scene per line. Block structure is not representable and is dropped.
func EncodeLegacy(s *Script) string {
	var b strings.Builder
	for _, block := range s.Blocks {
		for _, scene := range block.Scenes {
			assetRef := ""
			directive := ""
			if len(scene.Assets) > 0 {
				a := scene.Assets[0]
				assetRef = a.Ref
				directive = encodeDirective(a)
			}
			fmt.Fprintf(&b, "%s | %s | %s | %s | %g\n",
				scene.Title, assetRef, directive, scene.RawText, scene.Pause)
		}
	}
	return b.String()
}

func encodeDirective(a Asset) string {
	var parts []string
	if a.Zoom != "" {
		parts = append(parts, "ZOOM:"+a.Zoom)
	}
	if a.Move != "" {
		parts = append(parts, a.Move)
	}
	if a.Overlay != "" {
		parts = append(parts, "OVERLAY:"+a.Overlay)
	}
	if a.Fit == "contain" {
		parts = append(parts, "FIT")
	}
	return strings.Join(parts, " + ")
}
