package discord

import (
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/entity"
)

// newStateBot builds a Bot around an offline session with a seeded state
// cache. No gateway connection is made.
func newStateBot(t *testing.T) *Bot {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	s.State.User = &discordgo.User{ID: "bot-id", Username: "shaberina"}
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "g1",
		Channels: []*discordgo.Channel{
			{ID: "100", GuildID: "g1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			{ID: "200", GuildID: "g1", Name: "reading", Type: discordgo.ChannelTypeGuildText},
			{ID: "300", GuildID: "g1", Name: "lounge", Type: discordgo.ChannelTypeGuildVoice},
		},
		VoiceStates: []*discordgo.VoiceState{
			{UserID: "bot-id", ChannelID: "300", GuildID: "g1"},
			{UserID: "u1", ChannelID: "300", GuildID: "g1"},
			{UserID: "u2", ChannelID: "301", GuildID: "g1"},
		},
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	return &Bot{
		session:       s,
		log:           slog.Default(),
		defaultPrefix: ";",
	}
}

func TestResolveTextChannel(t *testing.T) {
	t.Parallel()
	b := newStateBot(t)

	tests := []struct {
		name    string
		arg     string
		wantID  string
		wantErr bool
	}{
		{name: "mention", arg: "<#200>", wantID: "200"},
		{name: "numeric id", arg: "100", wantID: "100"},
		{name: "plain name", arg: "general", wantID: "100"},
		{name: "hash name", arg: "#reading", wantID: "200"},
		{name: "voice channel rejected", arg: "lounge", wantErr: true},
		{name: "unknown", arg: "nonexistent", wantErr: true},
		{name: "foreign id", arg: "999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ch, err := b.resolveTextChannel("g1", tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveTextChannel(%q) expected error, got %v", tt.arg, ch.ID)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTextChannel(%q) unexpected error: %v", tt.arg, err)
			}
			if ch.ID != tt.wantID {
				t.Errorf("resolveTextChannel(%q) = %s, want %s", tt.arg, ch.ID, tt.wantID)
			}
		})
	}
}

func TestTargetAllows(t *testing.T) {
	t.Parallel()

	conf := entity.DefaultGuild()
	if !targetAllows(conf, "any-channel") {
		t.Error("targetAllows(all) = false")
	}

	conf.TargetChannel = "100"
	if !targetAllows(conf, "100") {
		t.Error("targetAllows(matching channel) = false")
	}
	if targetAllows(conf, "200") {
		t.Error("targetAllows(other channel) = true")
	}
}

func TestHumansInChannel(t *testing.T) {
	t.Parallel()
	b := newStateBot(t)

	// u1 shares the channel with the bot; the bot itself is not counted.
	if got := b.humansInChannel("g1", "300"); got != 1 {
		t.Errorf("humansInChannel(300) = %d, want 1", got)
	}
	if got := b.humansInChannel("g1", "301"); got != 1 {
		t.Errorf("humansInChannel(301) = %d, want 1", got)
	}
	if got := b.humansInChannel("g1", "302"); got != 0 {
		t.Errorf("humansInChannel(302) = %d, want 0", got)
	}
	if got := b.humansInChannel("missing", "300"); got != 0 {
		t.Errorf("humansInChannel(unknown guild) = %d, want 0", got)
	}
}

func TestIsOwner(t *testing.T) {
	t.Parallel()

	b := &Bot{ownerID: "42"}
	if !b.isOwner("42") {
		t.Error("isOwner(owner) = false")
	}
	if b.isOwner("7") {
		t.Error("isOwner(stranger) = true")
	}

	// No configured owner disables owner commands entirely.
	b = &Bot{}
	if b.isOwner("") {
		t.Error("isOwner with empty config = true")
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	m := &discordgo.Member{Nick: "ニック", User: &discordgo.User{Username: "account"}}
	if got := displayName(m); got != "ニック" {
		t.Errorf("displayName = %q, want nickname", got)
	}
	m.Nick = ""
	if got := displayName(m); got != "account" {
		t.Errorf("displayName = %q, want username", got)
	}
}
