package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrFormat reports a document that is neither valid JSON nor convertible
// from the legacy pipe-delimited form.
var ErrFormat = errors.New("script: unrecognized document format")

// FormatError wraps the decoding failure that made the document unusable.
type FormatError struct {
	Reason error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("script: bad document: %v", e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// Document shapes. Speed is `any` because the format allows both numeric
// factors and percentage strings; volume pointers distinguish 0 from unset.
type scriptDoc struct {
	Title       string     `json:"title"`
	Voice       string     `json:"voice"`
	Speed       any        `json:"speed"`
	Style       string     `json:"style"`
	Music       string     `json:"background_music"`
	MusicVolume *float64   `json:"music_volume"`
	LockVolume  bool       `json:"lock_volume"`
	Blocks      []blockDoc `json:"blocks"`
}

type blockDoc struct {
	Title  string     `json:"title"`
	Music  string     `json:"music"`
	Volume *float64   `json:"volume"`
	Scenes []sceneDoc `json:"scenes"`
	Groups []groupDoc `json:"groups"`
}

type sceneDoc struct {
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Voice     string     `json:"voice"`
	Speed     any        `json:"speed"`
	Pitch     string     `json:"pitch"`
	Pause     float64    `json:"pause"`
	Audio     string     `json:"audio"`
	Assets    []assetDoc `json:"assets"`
	SFX       []sfxDoc   `json:"sfx"`
	Subtitles []subDoc   `json:"subtitles"`
}

type assetDoc struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Src     string  `json:"src"`
	Zoom    string  `json:"zoom"`
	Move    string  `json:"move"`
	Overlay string  `json:"overlay"`
	Fit     string  `json:"fit"`
	Volume  float64 `json:"volume"`
	Seek    float64 `json:"sync_start"`
}

type sfxDoc struct {
	Type   string   `json:"type"`
	Name   string   `json:"name"`
	Volume *float64 `json:"volume"`
	Offset int      `json:"offset"`
}

type subDoc struct {
	Text      string   `json:"text"`
	Offset    int      `json:"offset"`
	Words     int      `json:"words"`
	Phonetic  int      `json:"phonetic"`
	Y         *float64 `json:"y"`
	Dynamic   bool     `json:"dynamic"`
	Highlight bool     `json:"highlight"`
}

type groupDoc struct {
	Master  string `json:"master_asset"`
	Scenes  []int  `json:"scenes"`
	Zoom    string `json:"zoom"`
	Move    string `json:"move"`
	Overlay string `json:"overlay"`
	Fit     string `json:"fit"`
}

// Parse converts a declarative document into a Script tree. JSON is the
// primary format; if decoding fails and the text carries the legacy pipe
// delimiter, the legacy converter reconstructs an equivalent tree.
func Parse(document string) (*Script, error) {
	trimmed := strings.TrimSpace(document)
	var doc scriptDoc
	jsonErr := json.Unmarshal([]byte(trimmed), &doc)
	if jsonErr == nil {
		return buildScript(&doc)
	}
	if strings.Contains(trimmed, "|") {
		converted, err := convertLegacy(trimmed)
		if err != nil {
			return nil, &FormatError{Reason: err}
		}
		return buildScript(converted)
	}
	return nil, &FormatError{Reason: jsonErr}
}

func buildScript(doc *scriptDoc) (*Script, error) {
	s := &Script{
		Title:       doc.Title,
		Voice:       doc.Voice,
		Speed:       NormalizeSpeed(doc.Speed),
		Style:       doc.Style,
		Music:       doc.Music,
		MusicVolume: 0.3,
		LockVolume:  doc.LockVolume,
	}
	if doc.MusicVolume != nil {
		s.MusicVolume = *doc.MusicVolume
	}

	for bi, bd := range doc.Blocks {
		block := &Block{
			Title: bd.Title,
			Music: bd.Music,
		}
		if bd.Volume != nil {
			block.Volume = *bd.Volume
			block.HasVolume = true
		}

		for _, sd := range bd.Scenes {
			scene := buildScene(&sd, s)
			block.Scenes = append(block.Scenes, scene)
		}

		for gi, gd := range bd.Groups {
			flattenGroup(block, gd, fmt.Sprintf("b%d-g%d", bi, gi))
		}

		s.Blocks = append(s.Blocks, block)
	}

	if len(s.Blocks) == 0 {
		return nil, &FormatError{Reason: errors.New("document has no blocks")}
	}
	return s, nil
}

func buildScene(sd *sceneDoc, root *Script) *Scene {
	scene := &Scene{
		Title:     sd.Title,
		RawText:   sd.Text,
		Voice:     sd.Voice,
		Speed:     NormalizeSpeed(sd.Speed),
		Pitch:     sd.Pitch,
		Pause:     sd.Pause,
		AudioFile: sd.Audio,
	}
	if scene.Voice == "" {
		scene.Voice = root.Voice
	}
	if sd.Speed == nil {
		scene.Speed = root.Speed
	}

	for _, ad := range sd.Assets {
		if a, ok := normalizeAsset(ad); ok {
			scene.Assets = append(scene.Assets, a)
		}
	}
	for _, fd := range sd.SFX {
		cue := SFXCue{Name: fd.Type, Volume: 0.5, Offset: fd.Offset}
		if cue.Name == "" {
			cue.Name = fd.Name
		}
		if fd.Volume != nil {
			cue.Volume = *fd.Volume
		}
		scene.SFX = append(scene.SFX, cue)
	}
	for _, sub := range sd.Subtitles {
		cue := SubtitleCue{
			Text:      sub.Text,
			Offset:    sub.Offset,
			WordCount: sub.Words,
			Phonetic:  sub.Phonetic,
			Y:         defaultCueY,
			Dynamic:   sub.Dynamic,
			Highlight: sub.Highlight,
		}
		if cue.WordCount == 0 {
			cue.WordCount = countWords(cue.Text)
		}
		if cue.Phonetic == 0 {
			cue.Phonetic = cue.WordCount
		}
		if sub.Y != nil {
			cue.Y = *sub.Y
		}
		scene.Subtitles = append(scene.Subtitles, cue)
	}

	// Inline markup wins over (and adds to) the structured fields.
	scene.Text = ExtractMarkup(sd.Text, scene)
	return scene
}

// Placeholder category names the legacy tooling wrote into asset slots.
// They mean "no asset here" and trigger the fallback chain downstream.
func isPlaceholder(ref string) bool {
	switch strings.ToLower(strings.TrimSpace(ref)) {
	case "", "video", "image":
		return true
	}
	return false
}

// normalizeAsset collapses the synonym keys of a raw asset record into one
// tagged struct. Returns false when there is no usable reference.
func normalizeAsset(ad assetDoc) (Asset, bool) {
	ref := ad.ID
	if isPlaceholder(ref) {
		ref = ad.Src
	}
	if isPlaceholder(ref) {
		ref = ad.Type
	}
	if isPlaceholder(ref) {
		return Asset{}, false
	}
	a := Asset{
		Kind:    inferKind(ref),
		Ref:     strings.TrimSpace(ref),
		Zoom:    ad.Zoom,
		Move:    ad.Move,
		Overlay: ad.Overlay,
		Fit:     normalizeFit(ad.Fit),
		Volume:  ad.Volume,
		Seek:    ad.Seek,
	}
	return a, true
}

func normalizeFit(fit string) string {
	if strings.EqualFold(strings.TrimSpace(fit), "contain") {
		return "contain"
	}
	return "cover"
}

func inferKind(ref string) AssetKind {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".mp4", ".mov", ".mkv", ".webm", ".avi":
		return KindVideo
	}
	return KindImage
}

// flattenGroup resolves a declared group into per-scene state: members
// inherit the master asset only when they have no valid asset of their own,
// and each gets a GroupRef so the motion engine can project the shared
// zoom/move arc onto its sub-interval.
func flattenGroup(block *Block, gd groupDoc, id string) {
	members := make([]*Scene, 0, len(gd.Scenes))
	for _, idx := range gd.Scenes {
		if idx >= 0 && idx < len(block.Scenes) {
			members = append(members, block.Scenes[idx])
		}
	}
	if len(members) == 0 {
		return
	}
	for i, scene := range members {
		if len(scene.Assets) == 0 && !isPlaceholder(gd.Master) {
			scene.Assets = append(scene.Assets, Asset{
				Kind: inferKind(gd.Master),
				Ref:  strings.TrimSpace(gd.Master),
				Fit:  normalizeFit(gd.Fit),
			})
		}
		scene.Group = &GroupRef{
			ID:      id,
			Zoom:    gd.Zoom,
			Move:    gd.Move,
			Overlay: gd.Overlay,
			Fit:     normalizeFit(gd.Fit),
			Index:   i,
			Count:   len(members),
		}
	}
}
