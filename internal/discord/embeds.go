package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sabrina-ksks/shaberina/internal/entity"
)

// embedColor is the pale cyan used by every embed the bot sends.
const embedColor = 0x9edfe8

// change renders a settings value for an embed: unchanged values appear as
// is, changed ones as "old　⇒　new".
func change(old, new string) string {
	if old != new {
		return old + "　⇒　" + new
	}
	return new
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func renderPrefix(p string) string {
	return "「" + p + "」"
}

func renderTarget(t string) string {
	if t == entity.TargetAll {
		return t
	}
	return "<#" + t + ">"
}

// voiceConfigEmbed renders a user's voice settings. When next is non-nil the
// embed shows the transition from cfg to next field by field.
func voiceConfigEmbed(cfg entity.UserConfig, next *entity.UserConfig) *discordgo.MessageEmbed {
	show := func(oldVal, newVal string) string { return oldVal }
	if next != nil {
		show = change
	} else {
		next = &cfg
	}
	return &discordgo.MessageEmbed{
		Color: embedColor,
		Title: "◆◇◆ボイス設定◆◇◆",
		Description: fmt.Sprintf(
			"**話者　　　**：%s\n"+
				"**感情　　　**：%s\n"+
				"**エフェクト**：%s\n"+
				"**トーン　　**：%s\n"+
				"**スピード　**：%s",
			show(cfg.Speaker, next.Speaker),
			show(cfg.Emotion, next.Emotion),
			show(cfg.Effect, next.Effect),
			show(entity.FormatSigned(cfg.Tone), entity.FormatSigned(next.Tone)),
			show(entity.FormatSigned(cfg.Speed), entity.FormatSigned(next.Speed)),
		),
	}
}

// guildConfigEmbed renders a guild's settings, optionally as a transition.
func guildConfigEmbed(cfg entity.GuildConfig, next *entity.GuildConfig) *discordgo.MessageEmbed {
	show := func(oldVal, newVal string) string { return oldVal }
	if next != nil {
		show = change
	} else {
		next = &cfg
	}
	return &discordgo.MessageEmbed{
		Color: embedColor,
		Title: "◆◇◆サーバー設定◆◇◆",
		Description: fmt.Sprintf(
			"**プレフィックス　**：%s\n"+
				"**操作チャンネル　**：%s\n"+
				"**自動入室　　　　**：%s\n"+
				"**入退室読み上げ　**：%s\n"+
				"**送信者名読み上げ**：%s\n"+
				"**非参加者読み上げ**：%s",
			show(renderPrefix(cfg.Prefix), renderPrefix(next.Prefix)),
			show(renderTarget(cfg.TargetChannel), renderTarget(next.TargetChannel)),
			show(onOff(cfg.AutoJoin), onOff(next.AutoJoin)),
			show(onOff(cfg.ReadAccess), onOff(next.ReadAccess)),
			show(onOff(cfg.ReadAuthor), onOff(next.ReadAuthor)),
			show(onOff(cfg.ReadOutsider), onOff(next.ReadOutsider)),
		),
	}
}

// helpEmbed renders the help page for topic: "" for the basics, "voice" for
// voice settings, "setting" for guild settings.
func helpEmbed(prefix, topic string) *discordgo.MessageEmbed {
	switch topic {
	case "voice":
		return &discordgo.MessageEmbed{
			Color: embedColor,
			Title: "◆◇◆ヘルプ～ボイス設定編～◆◇◆",
			Description: "__コマンド一覧__\n" +
				prefix + "voice：現在のボイス設定を表示する．\n" +
				prefix + "voice reset：ボイス設定をリセットする．\n" +
				prefix + "voice random：ボイス設定をランダムに変更する．\n" +
				prefix + "speaker ＿：話者を＿に変更する．\n" +
				prefix + "emotion ＿：感情を＿に変更する．\n" +
				prefix + "effect ＿：エフェクトを＿に変更する．\n" +
				prefix + "tone ＿：トーンを＿に変更する．\n" +
				prefix + "speed ＿：スピードを＿に変更する．\n\n" +
				"__パラメータの範囲__\n" +
				"話者　　　：[mei, takumi]\n" +
				"感情　　　：[normal, happy, angry, sad]\n" +
				"エフェクト：[none, robot, whisper]\n" +
				"トーン　　：[-5 ~ +5]\n" +
				"スピード　：[-5 ~ +5]",
		}
	case "setting":
		return &discordgo.MessageEmbed{
			Color: embedColor,
			Title: "◆◇◆ヘルプ～サーバー設定編～◆◇◆",
			Description: "__コマンド一覧__\n" +
				prefix + "setting：現在のサーバー設定を表示する．\n" +
				prefix + "setting reset：サーバー設定をリセットする．\n" +
				prefix + "prefix ＿：プレフィックスを＿に変更する．\n" +
				prefix + "target_ch ＿/all：操作チャンネルを＿/allに変更する．\n" +
				prefix + "auto_join on/off：自動入室を変更する．\n" +
				prefix + "read_access on/off：入退室読み上げを変更する．\n" +
				prefix + "read_author on/off：送信者名読み上げを変更する．\n" +
				prefix + "read_outsider on/off：非参加者読み上げを変更する．",
		}
	default:
		return &discordgo.MessageEmbed{
			Color: embedColor,
			Title: "◆◇◆ヘルプ～基本編～◆◇◆",
			Description: "読み上げbot「しゃべりな」です．ユーザーごとのボイス設定，自動入室などのサーバー設定に対応しています．\n\n" +
				"__基本操作__\n" +
				prefix + "join：ボイスチャンネルに入室する．\n" +
				prefix + "leave：ボイスチャンネルから退室する．\n" +
				"__ボイス設定__\n" +
				prefix + "voice：現在のボイス設定を表示する．\n" +
				prefix + "voice reset：ボイス設定をリセットする．\n" +
				prefix + "voice random：ボイス設定をランダムに変更する．\n" +
				"__サーバー設定__\n" +
				prefix + "setting：現在のサーバー設定を表示する．\n" +
				prefix + "setting reset：サーバー設定をリセットする．\n" +
				"__詳しいヘルプ__\n" +
				prefix + "help voice：ボイス設定の詳細を確認する．\n" +
				prefix + "help setting：サーバー設定の詳細を確認する．",
		}
	}
}

// invitedEmbed is the greeting posted when the bot joins a new guild.
func invitedEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: embedColor,
		Title: "◆◇◆◇◆はじめに◆◇◆◇◆",
		Description: "読み上げbot「しゃべりな」を導入いただきありがとうございます．自動入退室に対応しているため，コマンドを覚えなくてもそのままお使いいただけます．\n\n" +
			"__　特徴　__\n" +
			"☑ミュートに反応して自動入室\n" +
			"☑ユーザーごとの多様なボイス設定\n" +
			"☑便利なサーバー設定\n\n" +
			"より快適にお使いいただくために，以下のコマンドで操作チャンネルを登録していただくことを推奨します．\n" +
			"例「" + prefix + "target_ch #しゃべりな用」\n\n" +
			"その他，詳しい操作方法は「" + prefix + "help」をご確認ください．",
	}
}

// notifyEmbed wraps an operator announcement.
func notifyEmbed(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       "◆◇◆◇◆お知らせ◆◇◆◇◆",
		Description: text,
	}
}
