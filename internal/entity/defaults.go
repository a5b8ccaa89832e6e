package entity

import "math/rand/v2"

// DefaultGuild returns the configuration a guild starts with: ";" prefix,
// reacting in all channels, auto-join and access announcements on, author
// and outsider reading off.
func DefaultGuild() GuildConfig {
	return GuildConfig{
		Prefix:        ";",
		TargetChannel: TargetAll,
		AutoJoin:      true,
		ReadAccess:    true,
		ReadAuthor:    false,
		ReadOutsider:  false,
	}
}

// DefaultUser returns the fixed baseline voice: mei speaking normally with
// no effect. Used when a user resets their voice configuration.
func DefaultUser() UserConfig {
	return UserConfig{
		Speaker: "mei",
		Emotion: "normal",
		Effect:  "none",
		Tone:    0,
		Speed:   0,
	}
}

// RandomUser returns a freshly randomized user configuration. Speaker,
// emotion and tone are uniform over their ranges; the "none" effect is
// twice as likely as robot or whisper; speed is always 0.
func RandomUser() UserConfig {
	// Doubling up "none" gives it weight 2 of 4.
	effects := []string{"none", "none", "robot", "whisper"}
	return UserConfig{
		Speaker: Speakers[rand.IntN(len(Speakers))],
		Emotion: Emotions[rand.IntN(len(Emotions))],
		Effect:  effects[rand.IntN(len(effects))],
		Tone:    ToneMin + rand.IntN(ToneMax-ToneMin+1),
		Speed:   0,
	}
}
