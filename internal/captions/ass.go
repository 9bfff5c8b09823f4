package captions

import (
	"fmt"
	"math"
	"strings"
)

// Caption styles. ASS colors are &HAABBGGRR. Titles sweep to gold, body
// text to platinum; SecondaryColour is what a karaoke word shows before its
// \k timer fires.
const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes
WrapStyle: 0

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Title,%s,%d,&H0000D7FF,&H00FFFFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,1,8,40,40,%d,1
Style: Main,%s,%d,&H00E2E4E5,&H00FFFFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,4,2,2,40,40,%d,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// Doc renders caption lines into a complete ASS document.
type Doc struct {
	Width     int
	Height    int
	Font      string
	TitleFont string // defaults to Font
	FontSize  int
}

func (d *Doc) Render(lines []Line) string {
	var b strings.Builder
	titleFont := d.TitleFont
	if titleFont == "" {
		titleFont = d.Font
	}
	titleSize := d.FontSize * 12 / 10
	fmt.Fprintf(&b, assHeader,
		d.Width, d.Height,
		titleFont, titleSize, d.marginV(BandTitle),
		d.Font, d.FontSize, d.marginV(BandMain),
	)
	for _, line := range lines {
		b.WriteString(d.event(line))
	}
	return b.String()
}

func (d *Doc) event(line Line) string {
	style := "Main"
	if line.Band == BandTitle {
		style = "Title"
	}

	var text strings.Builder
	if override := d.override(line); override != "" {
		text.WriteString("{" + override + "}")
	}
	if len(line.Words) > 0 {
		for i, w := range line.Words {
			if i > 0 {
				text.WriteByte(' ')
			}
			fmt.Fprintf(&text, "{\\k%d}%s", centiseconds(w.Duration), escapeText(w.Text))
		}
	} else {
		text.WriteString(escapeText(line.Text))
	}

	return fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
		assTime(line.Start), assTime(line.End), style, text.String())
}

// override builds inline tags for off-default anchoring and highlight
// emphasis. Default band positions come from the style margins, so a cue at
// the band's stock Y needs no \pos at all.
func (d *Doc) override(line Line) string {
	var tags []string
	if line.Band == BandMain && math.Abs(line.Y-0.85) > 1e-3 ||
		line.Band == BandTitle && math.Abs(line.Y-0.15) > 1e-3 {
		an := 2
		if line.Band == BandTitle {
			an = 8
		}
		tags = append(tags,
			fmt.Sprintf("\\an%d", an),
			fmt.Sprintf("\\pos(%d,%d)", d.Width/2, int(line.Y*float64(d.Height))),
		)
	}
	if line.Highlight {
		tags = append(tags, "\\fscx112\\fscy112\\b1")
	}
	return strings.Join(tags, "")
}

// marginV positions each band's default anchor: titles 15% down from the
// top, body text 15% up from the bottom.
func (d *Doc) marginV(band Band) int {
	return int(0.15 * float64(d.Height))
}

func centiseconds(sec float64) int {
	cs := int(math.Round(sec * 100))
	if cs < 1 {
		cs = 1
	}
	return cs
}

// assTime formats seconds as H:MM:SS.CC.
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	cs := int(math.Round(sec * 100))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// escapeText neutralizes characters the ASS event parser treats specially.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.ReplaceAll(s, "\n", "\\N")
}
