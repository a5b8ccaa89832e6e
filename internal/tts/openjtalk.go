package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sabrina-ksks/shaberina/internal/observe"
)

// noPhonemeMarker appears in Open JTalk's stderr when the input contains no
// speakable phonemes.
const noPhonemeMarker = "No phenome."

// OpenJTalk is a [Synthesizer] that invokes the Open JTalk binary. The
// binary, dictionary and voice models live under a single installation
// directory:
//
//	<dir>/open_jtalk
//	<dir>/dic
//	<dir>/htsvoice/<speaker>/<emotion>.htsvoice
type OpenJTalk struct {
	binary   string
	dicDir   string
	voiceDir string
	outDir   string

	log     *slog.Logger
	metrics *observe.Metrics
}

// Compile-time interface check.
var _ Synthesizer = (*OpenJTalk)(nil)

// OpenJTalkOption configures an [OpenJTalk].
type OpenJTalkOption func(*OpenJTalk)

// WithLogger sets the logger used for synthesis diagnostics.
func WithLogger(log *slog.Logger) OpenJTalkOption {
	return func(o *OpenJTalk) { o.log = log }
}

// WithMetrics enables synthesis latency instrumentation.
func WithMetrics(m *observe.Metrics) OpenJTalkOption {
	return func(o *OpenJTalk) { o.metrics = m }
}

// NewOpenJTalk creates a synthesizer rooted at the given Open JTalk
// installation directory, writing wav files into outDir. The output
// directory is created if missing.
func NewOpenJTalk(dir, outDir string, opts ...OpenJTalkOption) (*OpenJTalk, error) {
	o := &OpenJTalk{
		binary:   filepath.Join(dir, "open_jtalk"),
		dicDir:   filepath.Join(dir, "dic"),
		voiceDir: filepath.Join(dir, "htsvoice"),
		outDir:   outDir,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: create output dir: %w", err)
	}
	return o, nil
}

// Synthesize runs Open JTalk over text and returns the path of the produced
// wav file. The caller must remove the file after use. Returns [ErrNoSpeech]
// when the text contains nothing speakable.
func (o *OpenJTalk) Synthesize(ctx context.Context, text string, p Params) (string, error) {
	ctx, span := observe.StartSpan(ctx, "tts.synthesize")
	defer span.End()

	wavPath := filepath.Join(o.outDir, randomName(8)+".wav")

	start := time.Now()
	cmd := exec.CommandContext(ctx, o.binary, o.buildArgs(wavPath, p)...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if o.metrics != nil {
		o.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err == nil {
		return wavPath, nil
	}

	// A partial file may exist after a failed run.
	if rmErr := os.Remove(wavPath); rmErr != nil && !os.IsNotExist(rmErr) {
		o.log.Warn("failed to remove partial wav", "path", wavPath, "error", rmErr)
	}

	out := strings.TrimSpace(stderr.String())
	if strings.Contains(out, noPhonemeMarker) {
		return "", ErrNoSpeech
	}
	o.logStderr(out)
	return "", fmt.Errorf("tts: open_jtalk: %w", err)
}

// buildArgs assembles the Open JTalk command line for the given output path
// and parameters.
func (o *OpenJTalk) buildArgs(wavPath string, p Params) []string {
	// Half-tone shift scales linearly; the speech rate doubles every five
	// speed steps, with a slightly faster base rate for the sad voice.
	tone := 1.5 * float64(p.Tone)
	base := 1.1
	if p.Emotion == "sad" {
		base = 1.2
	}
	rate := base * math.Pow(math.Pow(2, 0.2), float64(p.Speed))

	args := []string{
		"-x", o.dicDir,
		"-m", filepath.Join(o.voiceDir, p.Speaker, p.Emotion+".htsvoice"),
		"-ow", wavPath,
		"-fm", formatFloat(tone),
		"-r", formatFloat(rate),
		"-g", "10",
	}
	switch p.Effect {
	case "robot":
		args = append(args, "-a", "0.4")
	case "whisper":
		args = append(args, "-u", "1.0")
	}
	return args
}

// logStderr relays Open JTalk diagnostics at their own severity. Lines look
// like "Warning: ..." or "Error: ...".
func (o *OpenJTalk) logStderr(out string) {
	if out == "" {
		return
	}
	for line := range strings.SplitSeq(out, "\n") {
		level, msg, found := strings.Cut(line, ": ")
		if !found {
			o.log.Error("open_jtalk", "message", line)
			continue
		}
		switch level {
		case "Warning":
			o.log.Warn("open_jtalk", "message", msg)
		default:
			o.log.Error("open_jtalk", "message", msg)
		}
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

const nameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomName returns n random alphanumeric characters.
func randomName(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = nameAlphabet[rand.IntN(len(nameAlphabet))]
	}
	return string(b)
}
