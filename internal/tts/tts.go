package tts

import (
	"context"
)

// Request describes one synthesis call to a TTS engine.
type Request struct {
	Text  string
	Voice string
	Rate  float64 // speed factor, 1.0 = neutral
	Pitch string  // engine pitch string, e.g. "+2Hz"
	Style string  // delivery style hint; engines may ignore it
	Out   string  // target audio path
}

// WordTiming is the spoken interval of one word, seconds from clip start.
type WordTiming struct {
	Word  string
	Start float64
	End   float64
}

// Result is the synthesized clip plus its measured duration and, when the
// engine supports it, word-level timing.
type Result struct {
	Path     string
	Duration float64
	Words    []WordTiming
}

// Synthesizer turns text into an audio file. The rendering core never
// touches waveforms itself; everything past segmentation is delegated.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}
