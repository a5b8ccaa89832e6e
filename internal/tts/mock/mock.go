// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to return a controlled wav path and to verify the text and
// parameters passed to the TTS backend.
//
//	s := &mock.Synthesizer{Path: "/tmp/out.wav"}
//	path, _ := s.Synthesize(ctx, "hello", params)
package mock

import (
	"context"
	"sync"

	"github.com/sabrina-ksks/shaberina/internal/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
	// Params are the voice parameters passed to Synthesize.
	Params tts.Params
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// Path is returned by Synthesize when Err is nil.
	Path string

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// PathFunc, if set, overrides Path and computes the result per call.
	PathFunc func(text string, p tts.Params) (string, error)

	// Calls records every call to Synthesize in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns the configured result.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, p tts.Params) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, SynthesizeCall{Ctx: ctx, Text: text, Params: p})
	if s.PathFunc != nil {
		return s.PathFunc(text, p)
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Path, nil
}

// Reset clears all recorded calls. Thread-safe.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = nil
}

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
