package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/sabrina-ksks/shaberina/internal/entity"
	"github.com/sabrina-ksks/shaberina/internal/observe"
	"github.com/sabrina-ksks/shaberina/internal/textnorm"
	"github.com/sabrina-ksks/shaberina/internal/voice"
)

// Voice state changes settle for a moment before the bot reacts, so that a
// user dragging through channels does not trigger join/leave churn.
const voiceDebounce = time.Second

// targetAllows reports whether the guild reacts to messages in channelID.
func targetAllows(conf entity.GuildConfig, channelID string) bool {
	return conf.TargetChannel == entity.TargetAll || conf.TargetChannel == channelID
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("logged in", "username", r.User.Username, "guilds", len(r.Guilds))
	b.updatePresence()
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.updatePresence()

	// GuildCreate also fires for every known guild at startup; only a
	// fresh invite gets the greeting.
	if time.Since(g.JoinedAt) > time.Minute {
		return
	}
	b.log.Info("invited to guild", "guild_id", g.ID, "guild_name", g.Name)
	if g.SystemChannelID == "" {
		return
	}
	b.replyEmbed(g.SystemChannelID, invitedEmbed(b.defaultPrefix))
}

func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	b.log.Info("removed from guild", "guild_id", g.ID)
	b.voices.Forget(context.Background(), g.ID)
	b.updatePresence()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx := context.Background()

	if m.GuildID == "" {
		b.onDirectMessage(ctx, m)
		return
	}

	conf, err := b.conf.FetchGuild(ctx, b.guildRef(m.GuildID))
	if err != nil {
		b.log.Error("failed to fetch guild config", "guild_id", m.GuildID, "error", err)
		return
	}

	// help always works under the default prefix, so a forgotten custom
	// prefix cannot lock a guild out.
	if strings.HasPrefix(m.Content, b.defaultPrefix+"help") {
		if !targetAllows(conf, m.ChannelID) {
			b.reply(m.ChannelID, fmt.Sprintf("<#%s>から操作してください．", conf.TargetChannel))
			return
		}
		_, args, _ := Parse(m.Content, b.defaultPrefix)
		b.dispatch(ctx, m, conf, "help", args)
		return
	}

	if strings.HasPrefix(m.Content, conf.Prefix) {
		if !targetAllows(conf, m.ChannelID) {
			return
		}
		name, args, ok := Parse(m.Content, conf.Prefix)
		if !ok {
			return
		}
		b.dispatch(ctx, m, conf, name, args)
		return
	}

	b.maybeReadAloud(ctx, m, conf)
}

// onDirectMessage handles DMs: owner commands work, everything else is
// declined.
func (b *Bot) onDirectMessage(ctx context.Context, m *discordgo.MessageCreate) {
	name, args, ok := Parse(m.Content, b.defaultPrefix)
	if !ok {
		return
	}
	if b.isOwner(m.Author.ID) && (name == "shutdown" || name == "sd" || name == "notify") {
		b.dispatch(ctx, m, entity.DefaultGuild(), name, args)
		return
	}
	b.reply(m.ChannelID, "DMでの操作には対応していません．")
}

func (b *Bot) dispatch(ctx context.Context, m *discordgo.MessageCreate, conf entity.GuildConfig, name string, args []string) {
	h, ok := b.router.Lookup(name)
	if !ok {
		b.reply(m.ChannelID, "コマンドが存在しません．")
		return
	}

	ctx, span := observe.StartSpan(ctx, "command."+name)
	defer span.End()
	log := observe.Logger(ctx)

	log.Info("command used", "command", name, "guild_id", m.GuildID, "user_id", m.Author.ID)
	if b.metrics != nil {
		b.metrics.RecordCommand(ctx, name)
	}

	ev := &Event{Message: m.Message, Guild: conf, Args: args}
	if err := h(ctx, ev); err != nil {
		log.Error("command failed", "command", name, "guild_id", m.GuildID, "error", err)
		b.reply(m.ChannelID, "エラーが発生しました．しばらく時間を空けてからお試しください．")
	}
}

// maybeReadAloud runs the read-aloud eligibility chain and, when it passes,
// synthesizes the message into the guild's voice session.
func (b *Bot) maybeReadAloud(ctx context.Context, m *discordgo.MessageCreate, conf entity.GuildConfig) {
	sess, ok := b.voices.Get(m.GuildID)
	if !ok {
		return
	}
	if !targetAllows(conf, m.ChannelID) {
		return
	}
	if !conf.ReadOutsider && !b.sharesChannel(m.GuildID, m.Author.ID, sess) {
		return
	}
	if utf8.RuneCountInString(m.Content) > maxReadRunes {
		b.reply(m.ChannelID, "文字数が多すぎます．")
		return
	}

	ctx, span := observe.StartSpan(ctx, "message.read")
	defer span.End()

	// The user config fetch and the markup rewrite are independent.
	var (
		cfg  entity.UserConfig
		text string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = b.conf.FetchUser(gctx, entity.Ref{ID: m.Author.ID, Name: m.Author.Username})
		return err
	})
	g.Go(func() error {
		text = textnorm.Rewrite(gctx, m.Content, newResolver(b.session, m.GuildID))
		if conf.ReadAuthor {
			text = textnorm.PrefixAuthor(text, b.memberDisplayName(m.GuildID, m.Author))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		b.log.Error("failed to prepare message for reading", "guild_id", m.GuildID, "error", err)
		return
	}

	if err := b.readText(ctx, sess, text, cfg); err != nil {
		b.log.Error("failed to read message", "guild_id", m.GuildID, "error", err)
		return
	}
	if b.metrics != nil {
		b.metrics.MessagesRead.Add(ctx, 1)
	}
}

// sharesChannel reports whether the user sits in the session's voice channel.
func (b *Bot) sharesChannel(guildID, userID string, sess *voice.Session) bool {
	vs, err := b.session.State.VoiceState(guildID, userID)
	return err == nil && vs != nil && vs.ChannelID == sess.ChannelID()
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	ctx := context.Background()

	beforeCh := ""
	beforeMute := false
	if vsu.BeforeUpdate != nil {
		beforeCh = vsu.BeforeUpdate.ChannelID
		beforeMute = vsu.BeforeUpdate.SelfMute
	}
	afterCh := vsu.ChannelID
	self := s.State.User != nil && vsu.UserID == s.State.User.ID

	conf, err := b.conf.FetchGuild(ctx, b.guildRef(vsu.GuildID))
	if err != nil {
		b.log.Error("failed to fetch guild config", "guild_id", vsu.GuildID, "error", err)
		return
	}

	switch {
	case beforeCh == "" && afterCh != "":
		b.onVoiceJoin(ctx, vsu, conf, self)

	case afterCh == "":
		b.onVoiceLeave(ctx, vsu, conf, beforeCh, self)

	case beforeCh != afterCh:
		b.onVoiceMove(ctx, vsu, conf, beforeCh, self)

	case vsu.SelfMute && !beforeMute:
		// Muting in place is the in-channel signal to summon the bot.
		if _, ok := b.voices.Get(vsu.GuildID); !ok && !self && conf.AutoJoin {
			b.autoJoin(ctx, vsu.GuildID, afterCh, 0)
		}
	}
}

func (b *Bot) onVoiceJoin(ctx context.Context, vsu *discordgo.VoiceStateUpdate, conf entity.GuildConfig, self bool) {
	if self {
		b.updatePresence()
		return
	}
	sess, ok := b.voices.Get(vsu.GuildID)
	if !ok {
		if vsu.SelfMute && conf.AutoJoin {
			b.autoJoin(ctx, vsu.GuildID, vsu.ChannelID, voiceDebounce)
		}
		return
	}
	if sess.ChannelID() == vsu.ChannelID && conf.ReadAccess {
		b.announceAccess(ctx, sess, vsu.GuildID, vsu.UserID, "入室")
	}
}

func (b *Bot) onVoiceLeave(ctx context.Context, vsu *discordgo.VoiceStateUpdate, conf entity.GuildConfig, beforeCh string, self bool) {
	if self {
		// The gateway already tore the connection down.
		b.voices.Forget(ctx, vsu.GuildID)
		b.updatePresence()
		return
	}
	sess, ok := b.voices.Get(vsu.GuildID)
	if !ok || sess.ChannelID() != beforeCh {
		return
	}
	if b.humansInChannel(vsu.GuildID, beforeCh) == 0 {
		time.Sleep(voiceDebounce)
		if err := b.voices.Leave(ctx, vsu.GuildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
			b.log.Warn("failed to leave empty channel", "guild_id", vsu.GuildID, "error", err)
		}
		b.updatePresence()
		return
	}
	if conf.ReadAccess {
		b.announceAccess(ctx, sess, vsu.GuildID, vsu.UserID, "退室")
	}
}

func (b *Bot) onVoiceMove(ctx context.Context, vsu *discordgo.VoiceStateUpdate, conf entity.GuildConfig, beforeCh string, self bool) {
	if self {
		return
	}
	sess, ok := b.voices.Get(vsu.GuildID)
	if !ok {
		if vsu.SelfMute && conf.AutoJoin {
			b.autoJoin(ctx, vsu.GuildID, vsu.ChannelID, voiceDebounce)
		}
		return
	}
	if sess.ChannelID() == beforeCh && b.humansInChannel(vsu.GuildID, beforeCh) == 0 {
		time.Sleep(voiceDebounce)
		if err := b.voices.Leave(ctx, vsu.GuildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
			b.log.Warn("failed to leave empty channel", "guild_id", vsu.GuildID, "error", err)
		}
		b.updatePresence()
	}
}

// autoJoin connects to a channel after an optional settle delay and plays
// the auto-join cue.
func (b *Bot) autoJoin(ctx context.Context, guildID, channelID string, delay time.Duration) {
	time.Sleep(delay)
	sess, err := b.voices.Join(ctx, guildID, channelID)
	if errors.Is(err, voice.ErrAlreadyConnected) {
		return
	}
	if err != nil {
		b.log.Warn("auto-join failed", "guild_id", guildID, "channel_id", channelID, "error", err)
		return
	}
	b.updatePresence()
	b.playCue(ctx, sess, voice.CueAutoJoin)
}

// announceAccess reads a join/leave announcement. The announcement voice is
// the user-scope default, which is freshly randomized on every draw.
func (b *Bot) announceAccess(ctx context.Context, sess *voice.Session, guildID, userID, action string) {
	name := userID
	if resolved, err := newResolver(b.session, guildID).UserName(ctx, userID); err == nil {
		name = resolved
	}
	text := name + "さんが" + action + "しました．"
	if err := b.readText(ctx, sess, text, entity.RandomUser()); err != nil {
		b.log.Warn("failed to read access announcement", "guild_id", guildID, "error", err)
	}
}

// humansInChannel counts users other than the bot in a voice channel.
func (b *Bot) humansInChannel(guildID, channelID string) int {
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return 0
	}
	selfID := ""
	if u := b.session.State.User; u != nil {
		selfID = u.ID
	}
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID && vs.UserID != selfID {
			n++
		}
	}
	return n
}

// guildRef builds a store reference with the guild's display name when the
// state cache has it.
func (b *Bot) guildRef(guildID string) entity.Ref {
	ref := entity.Ref{ID: guildID}
	if g, err := b.session.State.Guild(guildID); err == nil {
		ref.Name = g.Name
	}
	return ref
}
