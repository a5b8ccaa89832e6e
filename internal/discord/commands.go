package discord

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/sabrina-ksks/shaberina/internal/entity"
	"github.com/sabrina-ksks/shaberina/internal/textnorm"
	"github.com/sabrina-ksks/shaberina/internal/voice"
)

func (b *Bot) registerCommands() {
	r := b.router

	r.Register("help", b.cmdHelp)
	r.Register("join", b.cmdJoin)
	r.Register("leave", b.cmdLeave)

	r.Register("voice", b.cmdVoice)
	r.Register("speaker", b.userVocabCommand("話者", entity.Speakers,
		func(c entity.UserConfig) string { return c.Speaker },
		func(c *entity.UserConfig, v string) { c.Speaker = v },
		"speaker mei"))
	r.Register("emotion", b.userVocabCommand("感情", entity.Emotions,
		func(c entity.UserConfig) string { return c.Emotion },
		func(c *entity.UserConfig, v string) { c.Emotion = v },
		"emotion happy"))
	r.Register("effect", b.userVocabCommand("エフェクト", entity.Effects,
		func(c entity.UserConfig) string { return c.Effect },
		func(c *entity.UserConfig, v string) { c.Effect = v },
		"effect whisper"))
	r.Register("tone", b.userRangeCommand("トーン",
		func(c entity.UserConfig) int { return c.Tone },
		func(c *entity.UserConfig, v int) { c.Tone = v },
		"tone +2"))
	r.Register("speed", b.userRangeCommand("スピード",
		func(c entity.UserConfig) int { return c.Speed },
		func(c *entity.UserConfig, v int) { c.Speed = v },
		"speed -1"))

	r.Register("setting", b.cmdSetting)
	r.Register("prefix", b.cmdPrefix)
	r.Register("target_ch", b.cmdTargetChannel)
	r.Register("auto_join", b.guildBoolCommand("自動入室",
		func(c entity.GuildConfig) bool { return c.AutoJoin },
		func(c *entity.GuildConfig, v bool) { c.AutoJoin = v },
		"auto_join off"))
	r.Register("read_access", b.guildBoolCommand("入退室読み上げ",
		func(c entity.GuildConfig) bool { return c.ReadAccess },
		func(c *entity.GuildConfig, v bool) { c.ReadAccess = v },
		"read_access off"))
	r.Register("read_author", b.guildBoolCommand("送信者名読み上げ",
		func(c entity.GuildConfig) bool { return c.ReadAuthor },
		func(c *entity.GuildConfig, v bool) { c.ReadAuthor = v },
		"read_author on"))
	r.Register("read_outsider", b.guildBoolCommand("非参加者読み上げ",
		func(c entity.GuildConfig) bool { return c.ReadOutsider },
		func(c *entity.GuildConfig, v bool) { c.ReadOutsider = v },
		"read_outsider on"))

	r.Register("shutdown", b.cmdShutdown)
	r.Alias("sd", "shutdown")
	r.Register("notify", b.cmdNotify)
}

func (b *Bot) embedAuthor(name string) *discordgo.MessageEmbedAuthor {
	author := &discordgo.MessageEmbedAuthor{Name: name}
	if u := b.session.State.User; u != nil {
		author.IconURL = u.AvatarURL("")
	}
	return author
}

func userThumbnail(u *discordgo.User) *discordgo.MessageEmbedThumbnail {
	return &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")}
}

func (b *Bot) guildThumbnail(guildID string) *discordgo.MessageEmbedThumbnail {
	g, err := b.session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: g.IconURL("")}
}

func (b *Bot) cmdHelp(ctx context.Context, ev *Event) error {
	topic := textnorm.NormalizeArg(ev.Arg(0))
	if topic != "voice" && topic != "setting" {
		topic = ""
	}
	b.replyEmbed(ev.Message.ChannelID, helpEmbed(ev.Guild.Prefix, topic))
	return nil
}

func (b *Bot) cmdJoin(ctx context.Context, ev *Event) error {
	guildID := ev.Message.GuildID
	vs, err := b.session.State.VoiceState(guildID, ev.Message.Author.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		b.reply(ev.Message.ChannelID, "ボイスチャンネルに入室してから呼び出してください．")
		return nil
	}

	sess, err := b.voices.Join(ctx, guildID, vs.ChannelID)
	if errors.Is(err, voice.ErrAlreadyConnected) {
		if sess.ChannelID() == vs.ChannelID {
			b.playCue(ctx, sess, voice.CueAlreadyJoined)
		}
		return nil
	}
	if err != nil {
		return err
	}
	b.updatePresence()
	b.playCue(ctx, sess, voice.CueJoin)
	return nil
}

func (b *Bot) cmdLeave(ctx context.Context, ev *Event) error {
	guildID := ev.Message.GuildID
	sess, ok := b.voices.Get(guildID)
	if !ok {
		b.reply(ev.Message.ChannelID, "ボイスチャンネルに入室していません．")
		return nil
	}
	b.playCue(ctx, sess, voice.CueLeave)
	if err := b.voices.Leave(ctx, guildID); err != nil && !errors.Is(err, voice.ErrNotConnected) {
		return err
	}
	b.updatePresence()
	return nil
}

// playCue plays a notification sound, tolerating a missing cue file.
func (b *Bot) playCue(ctx context.Context, sess *voice.Session, name string) {
	if err := sess.PlayCue(ctx, name); err != nil {
		b.log.Warn("failed to play cue", "cue", name, "error", err)
	}
}

func (b *Bot) cmdVoice(ctx context.Context, ev *Event) error {
	author := ev.Message.Author
	cur, err := b.conf.FetchUser(ctx, entity.Ref{ID: author.ID, Name: author.Username})
	if err != nil {
		return err
	}
	name := b.memberDisplayName(ev.Message.GuildID, author)

	switch textnorm.NormalizeArg(ev.Arg(0)) {
	case "reset":
		next := entity.DefaultUser()
		if next == cur {
			b.reply(ev.Message.ChannelID, "すでにボイス設定はリセットされています．")
			return nil
		}
		if err := b.conf.SetUser(ctx, author.ID, next); err != nil {
			return err
		}
		embed := voiceConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor("ボイス設定をリセットしました．")
		embed.Thumbnail = userThumbnail(author)
		b.replyEmbed(ev.Message.ChannelID, embed)
		b.greet(ctx, ev.Message.GuildID, name, next)

	case "random":
		next := entity.RandomUser()
		if err := b.conf.SetUser(ctx, author.ID, next); err != nil {
			return err
		}
		embed := voiceConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor("ボイス設定をランダムに変更しました．")
		embed.Thumbnail = userThumbnail(author)
		b.replyEmbed(ev.Message.ChannelID, embed)
		b.greet(ctx, ev.Message.GuildID, name, next)

	default:
		embed := voiceConfigEmbed(cur, nil)
		embed.Thumbnail = userThumbnail(author)
		b.replyEmbed(ev.Message.ChannelID, embed)
		b.greet(ctx, ev.Message.GuildID, name, cur)
	}
	return nil
}

// userVocabCommand builds a handler that sets one enumerated voice field.
func (b *Bot) userVocabCommand(label string, vocab []string, get func(entity.UserConfig) string, set func(*entity.UserConfig, string), example string) HandlerFunc {
	return func(ctx context.Context, ev *Event) error {
		arg := textnorm.NormalizeArg(ev.Arg(0))
		if !slices.Contains(vocab, arg) {
			b.reply(ev.Message.ChannelID, fmt.Sprintf("%sは [%s] から指定してください．\n例「%s%s」",
				label, strings.Join(vocab, ", "), ev.Guild.Prefix, example))
			return nil
		}

		author := ev.Message.Author
		cur, err := b.conf.FetchUser(ctx, entity.Ref{ID: author.ID, Name: author.Username})
		if err != nil {
			return err
		}
		if get(cur) == arg {
			b.reply(ev.Message.ChannelID, fmt.Sprintf("すでに%sは「%s」に設定されています．", label, arg))
			return nil
		}

		next := cur
		set(&next, arg)
		if err := b.conf.SetUser(ctx, author.ID, next); err != nil {
			return err
		}
		embed := voiceConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor(fmt.Sprintf("%sを「%s」に変更しました．", label, arg))
		embed.Thumbnail = userThumbnail(author)
		b.replyEmbed(ev.Message.ChannelID, embed)
		b.greet(ctx, ev.Message.GuildID, b.memberDisplayName(ev.Message.GuildID, author), next)
		return nil
	}
}

// userRangeCommand builds a handler that sets one numeric voice field.
func (b *Bot) userRangeCommand(label string, get func(entity.UserConfig) int, set func(*entity.UserConfig, int), example string) HandlerFunc {
	return func(ctx context.Context, ev *Event) error {
		usage := fmt.Sprintf("%sは [%s ~ %s] の範囲で指定してください．\n例「%s%s」",
			label, entity.FormatSigned(entity.ToneMin), entity.FormatSigned(entity.ToneMax), ev.Guild.Prefix, example)
		n, err := entity.ParseSigned(textnorm.NormalizeArg(ev.Arg(0)))
		if err != nil || n < entity.ToneMin || n > entity.ToneMax {
			b.reply(ev.Message.ChannelID, usage)
			return nil
		}

		author := ev.Message.Author
		cur, err := b.conf.FetchUser(ctx, entity.Ref{ID: author.ID, Name: author.Username})
		if err != nil {
			return err
		}
		if get(cur) == n {
			b.reply(ev.Message.ChannelID, fmt.Sprintf("すでに%sは「%s」に設定されています．", label, entity.FormatSigned(n)))
			return nil
		}

		next := cur
		set(&next, n)
		if err := b.conf.SetUser(ctx, author.ID, next); err != nil {
			return err
		}
		embed := voiceConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor(fmt.Sprintf("%sを「%s」に変更しました．", label, entity.FormatSigned(n)))
		embed.Thumbnail = userThumbnail(author)
		b.replyEmbed(ev.Message.ChannelID, embed)
		b.greet(ctx, ev.Message.GuildID, b.memberDisplayName(ev.Message.GuildID, author), next)
		return nil
	}
}

func (b *Bot) cmdSetting(ctx context.Context, ev *Event) error {
	cur := ev.Guild

	if textnorm.NormalizeArg(ev.Arg(0)) == "reset" {
		next := entity.DefaultGuild()
		if next == cur {
			b.reply(ev.Message.ChannelID, "すでにサーバー設定はリセットされています．")
			return nil
		}
		if err := b.conf.SetGuild(ctx, ev.Message.GuildID, next); err != nil {
			return err
		}
		embed := guildConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor("サーバー設定をリセットしました．")
		embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
		b.replyEmbed(ev.Message.ChannelID, embed)
		return nil
	}

	embed := guildConfigEmbed(cur, nil)
	embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
	b.replyEmbed(ev.Message.ChannelID, embed)
	return nil
}

func (b *Bot) cmdPrefix(ctx context.Context, ev *Event) error {
	arg := ev.Arg(0)
	if arg == "" {
		b.reply(ev.Message.ChannelID, fmt.Sprintf(
			"プレフィックスを指定してください．空白を含める場合は\"\"で囲ってください．\n例「%[1]sprefix !?」\n　「%[1]sprefix \"!s \"」",
			ev.Guild.Prefix))
		return nil
	}

	cur := ev.Guild
	if arg == cur.Prefix {
		b.reply(ev.Message.ChannelID, fmt.Sprintf("すでにプレフィックスは「%s」に設定されています．", arg))
		return nil
	}

	next := cur
	next.Prefix = arg
	if err := b.conf.SetGuild(ctx, ev.Message.GuildID, next); err != nil {
		return err
	}
	embed := guildConfigEmbed(cur, &next)
	embed.Author = b.embedAuthor(fmt.Sprintf("プレフィックスを「%s」に変更しました．", arg))
	embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
	b.replyEmbed(ev.Message.ChannelID, embed)
	return nil
}

var channelMention = regexp.MustCompile(`^<#(\d+)>$`)

// resolveTextChannel turns a channel argument (mention, id, or name) into a
// text channel of the given guild.
func (b *Bot) resolveTextChannel(guildID, arg string) (*discordgo.Channel, error) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("discord: guild %s not in state: %w", guildID, err)
	}

	var id string
	if m := channelMention.FindStringSubmatch(arg); m != nil {
		id = m[1]
	} else if _, err := strconv.ParseUint(arg, 10, 64); err == nil {
		id = arg
	}

	name := strings.TrimPrefix(arg, "#")
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if (id != "" && ch.ID == id) || (id == "" && ch.Name == name) {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("discord: no text channel matching %q in guild %s", arg, guildID)
}

func (b *Bot) cmdTargetChannel(ctx context.Context, ev *Event) error {
	arg := ev.Arg(0)
	if arg == "" {
		b.reply(ev.Message.ChannelID, fmt.Sprintf(
			"操作チャンネルを指定してください．all を指定すると全てのチャンネルに反応します．\n例「%[1]starget_ch #しゃべりな用」\n　「%[1]starget_ch all」",
			ev.Guild.Prefix))
		return nil
	}

	cur := ev.Guild
	if textnorm.NormalizeArg(arg) == entity.TargetAll {
		if cur.TargetChannel == entity.TargetAll {
			b.reply(ev.Message.ChannelID, "すでに操作チャンネルは「all」に設定されています．")
			return nil
		}
		next := cur
		next.TargetChannel = entity.TargetAll
		if err := b.conf.SetGuild(ctx, ev.Message.GuildID, next); err != nil {
			return err
		}
		embed := guildConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor("操作チャンネルを「all」に変更しました．")
		embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
		b.replyEmbed(ev.Message.ChannelID, embed)
		return nil
	}

	ch, err := b.resolveTextChannel(ev.Message.GuildID, arg)
	if err != nil {
		b.reply(ev.Message.ChannelID, "チャンネルが特定できませんでした．")
		return nil
	}
	if ch.ID == cur.TargetChannel {
		b.reply(ev.Message.ChannelID, fmt.Sprintf("すでに操作チャンネルは<#%s>に設定されています．", ch.ID))
		return nil
	}

	next := cur
	next.TargetChannel = ch.ID
	if err := b.conf.SetGuild(ctx, ev.Message.GuildID, next); err != nil {
		return err
	}
	embed := guildConfigEmbed(cur, &next)
	embed.Author = b.embedAuthor(fmt.Sprintf("操作チャンネルを「#%s」に変更しました．", ch.Name))
	embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
	b.replyEmbed(ev.Message.ChannelID, embed)
	return nil
}

// guildBoolCommand builds a handler that flips one on/off guild setting.
func (b *Bot) guildBoolCommand(label string, get func(entity.GuildConfig) bool, set func(*entity.GuildConfig, bool), example string) HandlerFunc {
	return func(ctx context.Context, ev *Event) error {
		arg := textnorm.NormalizeArg(ev.Arg(0))
		if arg != "on" && arg != "off" {
			b.reply(ev.Message.ChannelID, fmt.Sprintf("%sは on/off で指定してください．\n例「%s%s」", label, ev.Guild.Prefix, example))
			return nil
		}
		val := arg == "on"

		cur := ev.Guild
		if get(cur) == val {
			b.reply(ev.Message.ChannelID, fmt.Sprintf("すでに%sは「%s」に設定されています．", label, arg))
			return nil
		}

		next := cur
		set(&next, val)
		if err := b.conf.SetGuild(ctx, ev.Message.GuildID, next); err != nil {
			return err
		}
		embed := guildConfigEmbed(cur, &next)
		embed.Author = b.embedAuthor(fmt.Sprintf("%sを「%s」に変更しました．", label, arg))
		embed.Thumbnail = b.guildThumbnail(ev.Message.GuildID)
		b.replyEmbed(ev.Message.ChannelID, embed)
		return nil
	}
}

// isOwner reports whether the author may run operator commands.
func (b *Bot) isOwner(userID string) bool {
	return b.ownerID != "" && userID == b.ownerID
}

func (b *Bot) cmdShutdown(ctx context.Context, ev *Event) error {
	if !b.isOwner(ev.Message.Author.ID) {
		return nil
	}
	if textnorm.NormalizeArg(ev.Arg(0)) != "-y" {
		b.reply(ev.Message.ChannelID, fmt.Sprintf("シャットダウンするには「%sshutdown -y」を実行してください．", ev.Guild.Prefix))
		return nil
	}
	b.reply(ev.Message.ChannelID, "メンテナンスのためしばらく眠ります．おやすみなさい．")
	b.log.Info("shutdown requested by owner", "user_id", ev.Message.Author.ID)
	b.requestShutdown()
	return nil
}

func (b *Bot) cmdNotify(ctx context.Context, ev *Event) error {
	if !b.isOwner(ev.Message.Author.ID) {
		return nil
	}
	text := strings.Join(ev.Args, " ")
	if text == "" {
		b.reply(ev.Message.ChannelID, "お知らせの内容を指定してください．")
		return nil
	}

	targets, err := b.conf.GuildTargets(ctx)
	if err != nil {
		return err
	}
	embed := notifyEmbed(text)

	// One send per guild; failures are logged and only lower the count.
	var sent atomic.Int64
	total := len(b.session.State.Guilds)
	g, ctx := errgroup.WithContext(ctx)
	for _, guild := range b.session.State.Guilds {
		chID := notifyChannel(targets, guild)
		if chID == "" {
			b.log.Warn("no notify channel for guild", "guild_id", guild.ID)
			continue
		}
		guildID := guild.ID
		g.Go(func() error {
			if _, err := b.session.ChannelMessageSendEmbed(chID, embed, discordgo.WithContext(ctx)); err != nil {
				b.log.Warn("failed to send notice", "guild_id", guildID, "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := fmt.Sprintf("導入サーバーにお知らせを送信しました．(%d/%d)", sent.Load(), total)
	b.reply(ev.Message.ChannelID, result)
	b.log.Info("notice sent", "sent", sent.Load(), "guilds", total)
	return nil
}

// notifyChannel picks the channel a notice goes to: the guild's target
// channel when one is configured, otherwise its system channel.
func notifyChannel(targets map[string]string, g *discordgo.Guild) string {
	chID := targets[g.ID]
	if chID == "" || chID == entity.TargetAll {
		chID = g.SystemChannelID
	}
	return chID
}
