// Package tts converts text into wav audio files.
//
// The only production implementation is [OpenJTalk], which shells out to the
// Open JTalk binary. Synthesized files are owned by the caller: whoever
// receives a path from [Synthesizer.Synthesize] is responsible for deleting
// it after playback.
package tts

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the input contains nothing speakable (for
// example punctuation only). It is an expected outcome, not a failure;
// callers should skip playback without logging.
var ErrNoSpeech = errors.New("tts: no speakable phonemes")

// Params are the voice parameters for a single synthesis.
type Params struct {
	Speaker string
	Emotion string
	Effect  string
	Tone    int
	Speed   int
}

// Synthesizer produces a wav file for the given text and returns its path.
// The caller owns the returned file and must remove it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, p Params) (string, error)
}
