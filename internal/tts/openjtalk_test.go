package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"testing"
)

func newTestSynth(t *testing.T, dir string) *OpenJTalk {
	t.Helper()
	o, err := NewOpenJTalk(dir, t.TempDir())
	if err != nil {
		t.Fatalf("NewOpenJTalk: %v", err)
	}
	return o
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	o := newTestSynth(t, "/opt/openjtalk")

	t.Run("base layout", func(t *testing.T) {
		t.Parallel()
		args := o.buildArgs("/tmp/x.wav", Params{Speaker: "mei", Emotion: "normal", Effect: "none", Tone: 2, Speed: 0})

		argOf := func(flag string) string {
			i := slices.Index(args, flag)
			if i < 0 || i+1 >= len(args) {
				t.Fatalf("flag %s missing in %v", flag, args)
			}
			return args[i+1]
		}
		if got := argOf("-x"); got != filepath.Join("/opt/openjtalk", "dic") {
			t.Errorf("-x = %q", got)
		}
		if got := argOf("-m"); got != filepath.Join("/opt/openjtalk", "htsvoice", "mei", "normal.htsvoice") {
			t.Errorf("-m = %q", got)
		}
		if got := argOf("-ow"); got != "/tmp/x.wav" {
			t.Errorf("-ow = %q", got)
		}
		if got := argOf("-fm"); got != "3" {
			t.Errorf("-fm = %q, want \"3\"", got)
		}
		if got := argOf("-g"); got != "10" {
			t.Errorf("-g = %q, want \"10\"", got)
		}
	})

	t.Run("rate scaling", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			emotion string
			speed   int
			want    float64
		}{
			{"normal", 0, 1.1},
			{"sad", 0, 1.2},
			{"normal", 5, 1.1 * 2},
			{"happy", -5, 1.1 / 2},
		}
		for _, tt := range tests {
			args := o.buildArgs("/tmp/x.wav", Params{Speaker: "mei", Emotion: tt.emotion, Effect: "none", Speed: tt.speed})
			i := slices.Index(args, "-r")
			got, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				t.Fatalf("-r value %q: %v", args[i+1], err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("emotion=%s speed=%d: -r = %g, want %g", tt.emotion, tt.speed, got, tt.want)
			}
		}
	})

	t.Run("effects", func(t *testing.T) {
		t.Parallel()
		robot := o.buildArgs("/tmp/x.wav", Params{Speaker: "mei", Emotion: "normal", Effect: "robot"})
		if i := slices.Index(robot, "-a"); i < 0 || robot[i+1] != "0.4" {
			t.Errorf("robot effect args = %v, want -a 0.4", robot)
		}
		whisper := o.buildArgs("/tmp/x.wav", Params{Speaker: "mei", Emotion: "normal", Effect: "whisper"})
		if i := slices.Index(whisper, "-u"); i < 0 || whisper[i+1] != "1.0" {
			t.Errorf("whisper effect args = %v, want -u 1.0", whisper)
		}
		none := o.buildArgs("/tmp/x.wav", Params{Speaker: "mei", Emotion: "normal", Effect: "none"})
		if slices.Contains(none, "-a") || slices.Contains(none, "-u") {
			t.Errorf("effect none added voicing flags: %v", none)
		}
	})
}

// writeStubBinary creates a shell script standing in for open_jtalk. It
// writes stderrText to stderr and exits with the given code.
func writeStubBinary(t *testing.T, dir, stderrText string, exitCode int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binary requires a POSIX shell")
	}
	script := fmt.Sprintf("#!/bin/sh\ncat >/dev/null\nprintf '%%s' %q >&2\nexit %d\n", stderrText, exitCode)
	if err := os.WriteFile(filepath.Join(dir, "open_jtalk"), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestSynthesizeSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStubBinary(t, dir, "", 0)
	o := newTestSynth(t, dir)

	path, err := o.Synthesize(context.Background(), "こんにちは", Params{Speaker: "mei", Emotion: "normal", Effect: "none"})
	if err != nil {
		t.Fatalf("Synthesize() unexpected error: %v", err)
	}
	if filepath.Ext(path) != ".wav" {
		t.Errorf("path = %q, want .wav file", path)
	}
	if filepath.Dir(path) != o.outDir {
		t.Errorf("path %q not under output dir %q", path, o.outDir)
	}
}

func TestSynthesizeNoSpeech(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStubBinary(t, dir, "Error: No phenome.\n", 1)
	o := newTestSynth(t, dir)

	_, err := o.Synthesize(context.Background(), "．．．", Params{Speaker: "mei", Emotion: "normal", Effect: "none"})
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("Synthesize() error = %v, want ErrNoSpeech", err)
	}
}

func TestSynthesizeFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStubBinary(t, dir, "Error: dictionary not found\n", 1)
	o := newTestSynth(t, dir)

	_, err := o.Synthesize(context.Background(), "hello", Params{Speaker: "mei", Emotion: "normal", Effect: "none"})
	if err == nil {
		t.Fatal("Synthesize() expected error, got nil")
	}
	if errors.Is(err, ErrNoSpeech) {
		t.Fatal("generic failure reported as ErrNoSpeech")
	}
}

func TestSynthesizeMissingBinary(t *testing.T) {
	t.Parallel()

	o := newTestSynth(t, t.TempDir())
	if _, err := o.Synthesize(context.Background(), "hello", Params{Speaker: "mei", Emotion: "normal", Effect: "none"}); err == nil {
		t.Fatal("Synthesize() expected error for missing binary")
	}
}

func TestRandomName(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for range 50 {
		name := randomName(8)
		if len(name) != 8 {
			t.Fatalf("randomName(8) = %q, want 8 characters", name)
		}
		seen[name] = true
	}
	if len(seen) < 2 {
		t.Error("randomName produced no variation in 50 draws")
	}
}
