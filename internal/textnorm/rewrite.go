package textnorm

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

// Resolver turns mention ids into display names. Implementations that fail a
// lookup should return an error; the mention is then dropped with the rest
// of the markup.
type Resolver interface {
	UserName(ctx context.Context, id string) (string, error)
	RoleName(ctx context.Context, id string) (string, error)
	ChannelName(ctx context.Context, id string) (string, error)
}

var (
	userMentionPattern    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern    = regexp.MustCompile(`<@&(\d+)>`)
	channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)
	specialPattern        = regexp.MustCompile(`<.*>`)
	urlPattern            = regexp.MustCompile(`https?://[\w/:%#\$&\?\(\)~\.=\+\-]+`)
	laughterPattern       = regexp.MustCompile(`(w+|W+|ｗ+|Ｗ+|笑+|\(笑\)|（笑）)$`)
)

// emojiRanges covers the pictographic blocks stripped before synthesis.
var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1},
		{Lo: 0xFE0E, Hi: 0xFE0F, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1},
		{Lo: 0x1FB00, Hi: 0x1FBFF, Stride: 1},
	},
}

// Rewrite converts chat markup into speakable text: newlines become pauses,
// mentions become display names, remaining angle-bracket tokens and emoji
// are dropped, URLs collapse to a spoken marker, and trailing laughter gets
// its spoken form.
func Rewrite(ctx context.Context, text string, r Resolver) string {
	text = strings.ReplaceAll(text, "\n", "．")

	text = replaceMentions(ctx, text, userMentionPattern, r.UserName)
	text = replaceMentions(ctx, text, roleMentionPattern, r.RoleName)
	text = replaceMentions(ctx, text, channelMentionPattern, r.ChannelName)

	text = specialPattern.ReplaceAllString(text, "")
	text = stripEmoji(text)
	text = urlPattern.ReplaceAllString(text, "，URL，")
	text = laughterPattern.ReplaceAllString(text, "，藁．")
	return text
}

// PrefixAuthor prepends the author's name when there is something to read.
func PrefixAuthor(text, author string) string {
	if text == "" {
		return text
	}
	return author + "です，" + text
}

func replaceMentions(ctx context.Context, text string, pattern *regexp.Regexp, lookup func(context.Context, string) (string, error)) string {
	return pattern.ReplaceAllStringFunc(text, func(m string) string {
		id := pattern.FindStringSubmatch(m)[1]
		name, err := lookup(ctx, id)
		if err != nil {
			// Unresolvable mentions fall through to the markup strip.
			return m
		}
		return name
	})
}

// zeroWidthJoiner glues emoji sequences together and must go with them.
const zeroWidthJoiner = '\u200d'

func stripEmoji(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(emojiRanges, r) || r == zeroWidthJoiner {
			return -1
		}
		return r
	}, text)
}
