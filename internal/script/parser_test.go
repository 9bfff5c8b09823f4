package script

import (
	"errors"
	"math"
	"testing"
)

func TestParseJSONDocument(t *testing.T) {
	doc := `{
		"title": "Demo",
		"voice": "es-ES-AlvaroNeural",
		"speed": "+10%",
		"background_music": "epic.mp3",
		"music_volume": 0.25,
		"blocks": [
			{
				"title": "Intro",
				"scenes": [
					{
						"title": "Opening",
						"text": "[SUB: 1 | Hola] Hola mundo",
						"pause": 0.5,
						"assets": [{"id": "bg.png", "zoom": "1.0:1.3", "move": "HOR:0:100"}]
					}
				]
			}
		]
	}`

	s, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if math.Abs(s.Speed-1.10) > 1e-9 {
		t.Errorf("Expected speed 1.10, got %f", s.Speed)
	}
	if len(s.Blocks) != 1 || len(s.Blocks[0].Scenes) != 1 {
		t.Fatalf("Expected 1 block with 1 scene, got %+v", s.Blocks)
	}

	scene := s.Blocks[0].Scenes[0]
	if scene.Text != "Hola mundo" {
		t.Errorf("Expected clean text %q, got %q", "Hola mundo", scene.Text)
	}
	if len(scene.Subtitles) != 1 {
		t.Fatalf("Expected 1 subtitle cue, got %d", len(scene.Subtitles))
	}
	cue := scene.Subtitles[0]
	if cue.Offset != 0 || cue.WordCount != 1 || cue.Text != "Hola" {
		t.Errorf("Unexpected cue: %+v", cue)
	}
	if scene.Assets[0].Zoom != "1.0:1.3" {
		t.Errorf("Expected zoom 1.0:1.3, got %q", scene.Assets[0].Zoom)
	}
}

func TestParseLegacyLine(t *testing.T) {
	line := "Intro | bg.png | ZOOM_IN:1.0:1.3 + HOR:0:100 | Hello | 0.5"

	s, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	scene := s.Blocks[0].Scenes[0]
	if scene.Title != "Intro" {
		t.Errorf("Expected title Intro, got %q", scene.Title)
	}
	if scene.Text != "Hello" {
		t.Errorf("Expected text Hello, got %q", scene.Text)
	}
	if scene.Pause != 0.5 {
		t.Errorf("Expected pause 0.5, got %f", scene.Pause)
	}
	if len(scene.Assets) != 1 {
		t.Fatalf("Expected 1 asset, got %d", len(scene.Assets))
	}
	a := scene.Assets[0]
	if a.Ref != "bg.png" || a.Zoom != "1.0:1.3" || a.Move != "HOR:0:100" {
		t.Errorf("Unexpected asset: %+v", a)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("this is not a script at all")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	text := "Intro | bg.png | ZOOM:1.0:1.3 + HOR:0:100 | Hello world | 0.5\n" +
		"Middle | clip.mp4 |  | [SUB: 2 | two words] Some more narration | 1\n" +
		"Outro | end.png | FIT | Goodbye | 0"

	first, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	second, err := Parse(EncodeLegacy(first))
	if err != nil {
		t.Fatalf("Re-parse failed: %v", err)
	}

	a := first.Blocks[0].Scenes
	b := second.Blocks[0].Scenes
	if len(a) != len(b) {
		t.Fatalf("Scene count changed: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text {
			t.Errorf("Scene %d text changed: %q vs %q", i, a[i].Text, b[i].Text)
		}
		if len(a[i].Assets) != len(b[i].Assets) {
			t.Fatalf("Scene %d asset count changed", i)
		}
		if len(a[i].Assets) > 0 && a[i].Assets[0].Ref != b[i].Assets[0].Ref {
			t.Errorf("Scene %d asset changed: %q vs %q", i, a[i].Assets[0].Ref, b[i].Assets[0].Ref)
		}
	}
}

func TestNormalizeSpeed(t *testing.T) {
	tests := []struct {
		in       any
		expected float64
	}{
		{"+10%", 1.10},
		{"-25%", 0.75},
		{1.5, 1.5},
		{"1.2", 1.2},
		{"garbage", 1.0},
		{nil, 1.0},
		{"", 1.0},
	}
	for _, tt := range tests {
		if got := NormalizeSpeed(tt.in); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("NormalizeSpeed(%v): expected %f, got %f", tt.in, tt.expected, got)
		}
	}
}

func TestSFXMalformedFields(t *testing.T) {
	scene := &Scene{}
	ExtractMarkup("Boom [SFX: thunder | loud | later] goes the sky", scene)

	if len(scene.SFX) != 1 {
		t.Fatalf("Expected 1 SFX cue, got %d", len(scene.SFX))
	}
	cue := scene.SFX[0]
	if cue.Name != "thunder" {
		t.Errorf("Expected name thunder, got %q", cue.Name)
	}
	if cue.Volume != 0.5 {
		t.Errorf("Malformed volume should fall back to 0.5, got %f", cue.Volume)
	}
	if cue.Offset != 0 {
		t.Errorf("Malformed offset should fall back to 0, got %d", cue.Offset)
	}
}

func TestGroupFlattening(t *testing.T) {
	doc := `{
		"title": "g",
		"blocks": [{
			"title": "B",
			"scenes": [
				{"title": "a", "text": "one"},
				{"title": "b", "text": "two", "assets": [{"id": "own.png"}]},
				{"title": "c", "text": "three"}
			],
			"groups": [{"master_asset": "wide.png", "scenes": [0, 1, 2], "zoom": "1.0:2.0", "move": "HOR:0:100"}]
		}]
	}`

	s, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	scenes := s.Blocks[0].Scenes
	if scenes[0].Assets[0].Ref != "wide.png" {
		t.Errorf("Scene without asset should inherit master, got %+v", scenes[0].Assets)
	}
	if scenes[1].Assets[0].Ref != "own.png" {
		t.Errorf("Scene with its own asset must keep it, got %+v", scenes[1].Assets)
	}
	for i, sc := range scenes {
		if sc.Group == nil {
			t.Fatalf("Scene %d missing group ref", i)
		}
		if sc.Group.Index != i || sc.Group.Count != 3 {
			t.Errorf("Scene %d group position: %+v", i, sc.Group)
		}
	}
}

func TestVolumeLock(t *testing.T) {
	vol := 0.8
	s := &Script{MusicVolume: 0.3}
	b := &Block{Volume: vol, HasVolume: true}

	if got := s.EffectiveVolume(b); got != 0.8 {
		t.Errorf("Expected block override 0.8, got %f", got)
	}
	s.LockVolume = true
	if got := s.EffectiveVolume(b); got != 0.3 {
		t.Errorf("Lock flag must force global volume, got %f", got)
	}
}
