package script

// Script is the root of the parsed scene graph. It is built once by Parse
// and never mutated during a render.
type Script struct {
	Title       string
	Voice       string
	Speed       float64 // normalized factor, 1.0 = neutral
	Style       string
	Music       string  // global background music reference
	MusicVolume float64 // default music volume
	LockVolume  bool    // force the global volume even when a block overrides it
	Blocks      []*Block
}

// Block groups consecutive scenes under one title and optional local music.
type Block struct {
	Title     string
	Music     string // override; empty inherits the script music
	Volume    float64
	HasVolume bool // distinguishes "0.0" from "unset"
	Scenes    []*Scene
}

// Scene is one narration segment with its visual, SFX and caption cues.
type Scene struct {
	Title     string
	Text      string // markup-stripped narration text, fed to TTS
	RawText   string // original text, kept for caption/segment extraction
	Voice     string
	Speed     float64
	Pitch     string
	Pause     float64 // silence appended after narration, seconds
	AudioFile string  // optional pre-recorded narration, used instead of TTS
	Assets    []Asset
	SFX       []SFXCue
	Subtitles []SubtitleCue
	Group     *GroupRef // nil unless the scene is part of a master shot
}

// AssetKind discriminates still images from video clips.
type AssetKind int

const (
	KindImage AssetKind = iota
	KindVideo
)

// Asset is a normalized visual reference. The document may spell the
// reference under synonym keys (id/type/src); normalization happens once
// in the parser and nothing downstream ever looks at raw keys again.
type Asset struct {
	Kind    AssetKind
	Ref     string  // path, bare name, "qr:<content>" or "file.pdf#N"
	Zoom    string  // "start:end" scale factors, e.g. "1.0:1.5"
	Move    string  // pan components joined by "+", e.g. "HOR:0:100"
	Overlay string  // looping overlay video reference
	Fit     string  // "cover" (default) or "contain"
	Volume  float64 // video assets: own-audio volume
	Seek    float64 // video assets: playback start offset, seconds
}

// SFXCue positions a named sound effect inside the scene by word offset.
type SFXCue struct {
	Name   string
	Volume float64
	Offset int // words into the narration
}

// SubtitleCue is a caption cue in the scene's word-count space.
type SubtitleCue struct {
	Text      string
	Offset    int     // index of the first covered word
	WordCount int     // words shown on screen
	Phonetic  int     // words the TTS engine pronounces for this cue
	Y         float64 // vertical position 0.0-1.0; < 0.6 routes to the title band
	Dynamic   bool    // karaoke word-by-word reveal
	Highlight bool    // boxed emphatic style
}

// GroupRef ties a scene to a master-shot group. The parser resolves group
// membership once; the renderer only projects the group's motion range onto
// the scene's sub-interval and never re-derives membership.
type GroupRef struct {
	ID      string
	Zoom    string
	Move    string
	Overlay string
	Fit     string
	Index   int // position of the scene inside the group
	Count   int // total scenes in the group
}

// WordCount reports the number of narration words in the clean text.
func (s *Scene) WordCount() int {
	return countWords(s.Text)
}

// EffectiveVolume returns the music volume a block contributes, honoring
// the script-level lock flag.
func (s *Script) EffectiveVolume(b *Block) float64 {
	if s.LockVolume || !b.HasVolume {
		return s.MusicVolume
	}
	return b.Volume
}
