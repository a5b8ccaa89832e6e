package entity

import (
	"slices"
	"strings"
	"testing"
)

func TestUserConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     UserConfig
		wantErr []string
	}{
		{
			name: "valid",
			cfg:  UserConfig{Speaker: "mei", Emotion: "normal", Effect: "none", Tone: 0, Speed: 0},
		},
		{
			name: "valid extremes",
			cfg:  UserConfig{Speaker: "takumi", Emotion: "sad", Effect: "whisper", Tone: 5, Speed: -5},
		},
		{
			name:    "unknown speaker",
			cfg:     UserConfig{Speaker: "alice", Emotion: "normal", Effect: "none"},
			wantErr: []string{"speaker"},
		},
		{
			name:    "tone out of range",
			cfg:     UserConfig{Speaker: "mei", Emotion: "normal", Effect: "none", Tone: 6},
			wantErr: []string{"tone"},
		},
		{
			name:    "multiple violations reported together",
			cfg:     UserConfig{Speaker: "alice", Emotion: "bored", Effect: "echo", Tone: -9, Speed: 11},
			wantErr: []string{"speaker", "emotion", "effect", "tone", "speed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %v", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() = %v, missing %q", err, want)
				}
			}
		})
	}
}

func TestGuildConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     GuildConfig
		wantErr bool
	}{
		{name: "default is valid", cfg: DefaultGuild()},
		{name: "channel id target", cfg: GuildConfig{Prefix: "!", TargetChannel: "123456789012345678"}},
		{name: "empty prefix", cfg: GuildConfig{Prefix: "", TargetChannel: TargetAll}, wantErr: true},
		{name: "non-numeric target", cfg: GuildConfig{Prefix: ";", TargetChannel: "general"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatSigned(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{3, "+3"},
		{0, "0"},
		{-4, "-4"},
	}
	for _, tt := range tests {
		if got := FormatSigned(tt.n); got != tt.want {
			t.Errorf("FormatSigned(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestParseSigned(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-5, -1, 0, 2, 5} {
		got, err := ParseSigned(FormatSigned(n))
		if err != nil {
			t.Fatalf("ParseSigned(FormatSigned(%d)): %v", n, err)
		}
		if got != n {
			t.Errorf("ParseSigned(FormatSigned(%d)) = %d", n, got)
		}
	}
	if _, err := ParseSigned("loud"); err == nil {
		t.Error("ParseSigned(\"loud\") = nil error, want error")
	}
}

func TestRandomUserStaysInVocabulary(t *testing.T) {
	t.Parallel()

	sawEffect := map[string]bool{}
	for range 200 {
		cfg := RandomUser()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("RandomUser() produced invalid config %+v: %v", cfg, err)
		}
		if cfg.Speed != 0 {
			t.Fatalf("RandomUser() speed = %d, want 0", cfg.Speed)
		}
		sawEffect[cfg.Effect] = true
	}
	for _, e := range Effects {
		if !sawEffect[e] {
			t.Errorf("effect %q never produced in 200 draws", e)
		}
	}
}

func TestScopeIsValid(t *testing.T) {
	t.Parallel()

	if !ScopeUser.IsValid() || !ScopeGuild.IsValid() {
		t.Error("known scopes reported invalid")
	}
	if Scope("channel").IsValid() {
		t.Error("Scope(\"channel\").IsValid() = true")
	}
	if !slices.Contains([]string{"user", "guild"}, ScopeUser.String()) {
		t.Errorf("ScopeUser.String() = %q", ScopeUser.String())
	}
}
