package discord

import (
	"strings"
	"testing"

	"github.com/sabrina-ksks/shaberina/internal/entity"
)

func TestChange(t *testing.T) {
	t.Parallel()

	if got := change("mei", "mei"); got != "mei" {
		t.Errorf("change(same) = %q", got)
	}
	if got := change("mei", "takumi"); got != "mei　⇒　takumi" {
		t.Errorf("change(differ) = %q", got)
	}
}

func TestRenderHelpers(t *testing.T) {
	t.Parallel()

	if got := onOff(true); got != "on" {
		t.Errorf("onOff(true) = %q", got)
	}
	if got := onOff(false); got != "off" {
		t.Errorf("onOff(false) = %q", got)
	}
	if got := renderPrefix("!"); got != "「!」" {
		t.Errorf("renderPrefix = %q", got)
	}
	if got := renderTarget(entity.TargetAll); got != "all" {
		t.Errorf("renderTarget(all) = %q", got)
	}
	if got := renderTarget("12345"); got != "<#12345>" {
		t.Errorf("renderTarget(id) = %q", got)
	}
}

func TestVoiceConfigEmbed(t *testing.T) {
	t.Parallel()

	cur := entity.UserConfig{Speaker: "mei", Emotion: "normal", Effect: "none", Tone: 2, Speed: 0}

	t.Run("display only", func(t *testing.T) {
		t.Parallel()
		embed := voiceConfigEmbed(cur, nil)
		if embed.Color != embedColor {
			t.Errorf("Color = %#x, want %#x", embed.Color, embedColor)
		}
		if embed.Title != "◆◇◆ボイス設定◆◇◆" {
			t.Errorf("Title = %q", embed.Title)
		}
		for _, want := range []string{"mei", "normal", "none", "+2", "0"} {
			if !strings.Contains(embed.Description, want) {
				t.Errorf("Description missing %q:\n%s", want, embed.Description)
			}
		}
		if strings.Contains(embed.Description, "⇒") {
			t.Error("display-only embed contains a change arrow")
		}
	})

	t.Run("transition", func(t *testing.T) {
		t.Parallel()
		next := cur
		next.Speaker = "takumi"
		embed := voiceConfigEmbed(cur, &next)
		if !strings.Contains(embed.Description, "mei　⇒　takumi") {
			t.Errorf("Description missing speaker transition:\n%s", embed.Description)
		}
		// Unchanged fields must not get an arrow.
		if strings.Count(embed.Description, "⇒") != 1 {
			t.Errorf("Description has stray arrows:\n%s", embed.Description)
		}
	})
}

func TestGuildConfigEmbed(t *testing.T) {
	t.Parallel()

	cur := entity.DefaultGuild()
	next := cur
	next.TargetChannel = "999"
	next.AutoJoin = false

	embed := guildConfigEmbed(cur, &next)
	if embed.Title != "◆◇◆サーバー設定◆◇◆" {
		t.Errorf("Title = %q", embed.Title)
	}
	for _, want := range []string{"「;」", "all　⇒　<#999>", "on　⇒　off"} {
		if !strings.Contains(embed.Description, want) {
			t.Errorf("Description missing %q:\n%s", want, embed.Description)
		}
	}
}

func TestHelpEmbed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic     string
		wantTitle string
		wantIn    string
	}{
		{"", "◆◇◆ヘルプ～基本編～◆◇◆", ";join"},
		{"voice", "◆◇◆ヘルプ～ボイス設定編～◆◇◆", ";speaker"},
		{"setting", "◆◇◆ヘルプ～サーバー設定編～◆◇◆", ";read_outsider"},
		{"bogus", "◆◇◆ヘルプ～基本編～◆◇◆", ";help voice"},
	}

	for _, tt := range tests {
		t.Run("topic "+tt.topic, func(t *testing.T) {
			t.Parallel()
			embed := helpEmbed(";", tt.topic)
			if embed.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", embed.Title, tt.wantTitle)
			}
			if !strings.Contains(embed.Description, tt.wantIn) {
				t.Errorf("Description missing %q", tt.wantIn)
			}
			if embed.Color != embedColor {
				t.Errorf("Color = %#x", embed.Color)
			}
		})
	}
}

func TestInvitedEmbed(t *testing.T) {
	t.Parallel()

	embed := invitedEmbed("!")
	if embed.Title != "◆◇◆◇◆はじめに◆◇◆◇◆" {
		t.Errorf("Title = %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "!target_ch") {
		t.Error("Description missing prefixed target_ch example")
	}
}

func TestNotifyEmbed(t *testing.T) {
	t.Parallel()

	embed := notifyEmbed("メンテナンスのお知らせ")
	if embed.Title != "◆◇◆◇◆お知らせ◆◇◆◇◆" {
		t.Errorf("Title = %q", embed.Title)
	}
	if embed.Description != "メンテナンスのお知らせ" {
		t.Errorf("Description = %q", embed.Description)
	}
}
