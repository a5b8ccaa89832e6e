// Package entity defines the configuration records the bot keeps per user
// and per guild, together with their defaults and validation rules.
//
// Both record kinds are plain value structs with no reference fields, so an
// assignment is a full deep copy. Callers may freely mutate a returned record
// without affecting cached or persisted copies.
package entity

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Scope identifies which entity kind a configuration record belongs to.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeGuild Scope = "guild"
)

// IsValid reports whether s is a recognised scope.
func (s Scope) IsValid() bool {
	return s == ScopeUser || s == ScopeGuild
}

func (s Scope) String() string { return string(s) }

// Ref identifies an entity for store operations. Name is only persisted when
// a record is first created.
type Ref struct {
	ID   string
	Name string
}

// Voice parameter vocabularies, in the order surfaced to users.
var (
	Speakers = []string{"mei", "takumi"}
	Emotions = []string{"normal", "happy", "angry", "sad"}
	Effects  = []string{"none", "robot", "whisper"}
)

// Tone and speed bounds, inclusive. Both parameters share the same range.
const (
	ToneMin = -5
	ToneMax = 5
)

// TargetAll is the GuildConfig.TargetChannel value meaning "react in every
// text channel".
const TargetAll = "all"

// UserConfig is a user's voice configuration. A record is always fully
// populated; mutations replace the whole record rather than patching fields.
type UserConfig struct {
	Speaker string
	Emotion string
	Effect  string
	Tone    int
	Speed   int
}

// Validate checks every field and returns a joined error listing all
// violations found.
func (c UserConfig) Validate() error {
	var errs []error
	if !slices.Contains(Speakers, c.Speaker) {
		errs = append(errs, fmt.Errorf("speaker %q must be one of [%s]", c.Speaker, strings.Join(Speakers, ", ")))
	}
	if !slices.Contains(Emotions, c.Emotion) {
		errs = append(errs, fmt.Errorf("emotion %q must be one of [%s]", c.Emotion, strings.Join(Emotions, ", ")))
	}
	if !slices.Contains(Effects, c.Effect) {
		errs = append(errs, fmt.Errorf("effect %q must be one of [%s]", c.Effect, strings.Join(Effects, ", ")))
	}
	if c.Tone < ToneMin || c.Tone > ToneMax {
		errs = append(errs, fmt.Errorf("tone %d must be in [%d, %d]", c.Tone, ToneMin, ToneMax))
	}
	if c.Speed < ToneMin || c.Speed > ToneMax {
		errs = append(errs, fmt.Errorf("speed %d must be in [%d, %d]", c.Speed, ToneMin, ToneMax))
	}
	return errors.Join(errs...)
}

// GuildConfig is a guild's announcement configuration.
type GuildConfig struct {
	Prefix        string
	TargetChannel string
	AutoJoin      bool
	ReadAccess    bool
	ReadAuthor    bool
	ReadOutsider  bool
}

// Validate checks every field and returns a joined error listing all
// violations found. TargetChannel must be [TargetAll] or a numeric channel
// id.
func (c GuildConfig) Validate() error {
	var errs []error
	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	}
	if c.TargetChannel != TargetAll {
		if _, err := strconv.ParseUint(c.TargetChannel, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("target channel %q must be %q or a channel id", c.TargetChannel, TargetAll))
		}
	}
	return errors.Join(errs...)
}

// FormatSigned renders n with an explicit sign for positive values, the way
// tone and speed are surfaced and stored: "+2", "0", "-3".
func FormatSigned(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// ParseSigned parses an integer as produced by [FormatSigned]. A leading "+"
// is accepted.
func ParseSigned(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("entity: parse signed integer %q: %w", s, err)
	}
	return n, nil
}
