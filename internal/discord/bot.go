// Package discord provides the Discord layer of the bot. It owns the
// discordgo.Session lifecycle, routes prefix commands to handlers, and
// implements the read-aloud message and voice state event paths.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/confstore"
	"github.com/sabrina-ksks/shaberina/internal/entity"
	"github.com/sabrina-ksks/shaberina/internal/observe"
	"github.com/sabrina-ksks/shaberina/internal/textnorm"
	"github.com/sabrina-ksks/shaberina/internal/tts"
	"github.com/sabrina-ksks/shaberina/internal/voice"
)

// maxReadRunes is the longest message the bot will read aloud.
const maxReadRunes = 100

// Config holds Discord bot settings.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// OwnerID is the user id allowed to run shutdown and notify. Empty
	// disables owner commands.
	OwnerID string
}

// Bot owns the Discord gateway connection, the per-guild voice sessions,
// and the command router.
type Bot struct {
	session *discordgo.Session
	conf    *confstore.Service
	synth   tts.Synthesizer
	voices  *voice.Manager
	router  *Router
	log     *slog.Logger
	metrics *observe.Metrics

	ownerID       string
	defaultPrefix string
	cueDir        string

	done         chan struct{}
	shutdownOnce sync.Once
	closeOnce    sync.Once
}

// Option configures a [Bot].
type Option func(*Bot)

// WithLogger sets the bot's logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bot) { b.log = log }
}

// WithMetrics enables command and session instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bot) { b.metrics = m }
}

// WithCueDir sets the directory holding the notification wav files.
func WithCueDir(dir string) Option {
	return func(b *Bot) { b.cueDir = dir }
}

// New creates a Bot, connects to the gateway, and registers event handlers.
func New(cfg Config, conf *confstore.Service, synth tts.Synthesizer, opts ...Option) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session:       session,
		conf:          conf,
		synth:         synth,
		router:        NewRouter(),
		log:           slog.Default(),
		ownerID:       cfg.OwnerID,
		defaultPrefix: entity.DefaultGuild().Prefix,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	voiceOpts := []voice.ManagerOption{voice.WithLogger(b.log)}
	if b.cueDir != "" {
		voiceOpts = append(voiceOpts, voice.WithCueDir(b.cueDir))
	}
	if b.metrics != nil {
		voiceOpts = append(voiceOpts, voice.WithMetrics(b.metrics))
	}
	b.voices = voice.NewManager(voice.NewDiscordJoiner(session), voiceOpts...)

	b.registerCommands()

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onVoiceStateUpdate)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onGuildDelete)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	return b, nil
}

// Voices returns the voice session manager, for shutdown coordination.
func (b *Bot) Voices() *voice.Manager {
	return b.voices
}

// Run blocks until ctx is cancelled or an owner issues the shutdown command.
func (b *Bot) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}
}

// Close disconnects from the gateway. Safe to call more than once.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
		b.log.Info("discord bot closed")
	})
	return closeErr
}

// requestShutdown unblocks Run.
func (b *Bot) requestShutdown() {
	b.shutdownOnce.Do(func() { close(b.done) })
}

func (b *Bot) reply(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		b.log.Warn("failed to send reply", "channel_id", channelID, "error", err)
	}
}

func (b *Bot) replyEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.log.Warn("failed to send embed", "channel_id", channelID, "error", err)
	}
}

// updatePresence refreshes the status line with the live session count.
func (b *Bot) updatePresence() {
	text := fmt.Sprintf("%shelp | %d/%dサーバー", b.defaultPrefix, b.voices.Len(), len(b.session.State.Guilds))
	if err := b.session.UpdateGameStatus(0, text); err != nil {
		b.log.Warn("failed to update presence", "error", err)
	}
}

// readText normalizes, synthesizes and plays text in the guild's session.
// Unspeakable text is silently skipped.
func (b *Bot) readText(ctx context.Context, sess *voice.Session, text string, cfg entity.UserConfig) error {
	text = textnorm.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	path, err := b.synth.Synthesize(ctx, text, tts.Params{
		Speaker: cfg.Speaker,
		Emotion: cfg.Emotion,
		Effect:  cfg.Effect,
		Tone:    cfg.Tone,
		Speed:   cfg.Speed,
	})
	if errors.Is(err, tts.ErrNoSpeech) {
		return nil
	}
	if err != nil {
		return err
	}
	return sess.Speak(ctx, path)
}

// greet reads a self-introduction in the freshly configured voice, if the
// guild has a live session.
func (b *Bot) greet(ctx context.Context, guildID, name string, cfg entity.UserConfig) {
	sess, ok := b.voices.Get(guildID)
	if !ok {
		return
	}
	if err := b.readText(ctx, sess, "どうも，"+name+"です．", cfg); err != nil {
		b.log.Warn("failed to read greeting", "guild_id", guildID, "error", err)
	}
}

// memberDisplayName returns the author's guild nickname, falling back to the
// account name.
func (b *Bot) memberDisplayName(guildID string, user *discordgo.User) string {
	if member, err := b.session.State.Member(guildID, user.ID); err == nil {
		if name := displayName(member); name != "" {
			return name
		}
	}
	return user.Username
}
