// Package textnorm prepares chat messages for speech synthesis: Unicode
// normalization tuned for the Japanese voice models, and chat-markup
// rewriting (mentions, URLs, emoji, trailing laughter).
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize canonicalizes text for the synthesizer: NFKC, uppercase, then
// everything widened to fullwidth. The voice dictionary expects fullwidth
// input; NFKC alone would narrow it.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ToUpper(text)
	text = width.Widen.String(text)
	// The fullwidth yen sign is not a width variant pair in all tables.
	return strings.ReplaceAll(text, "¥", "￥")
}

// NormalizeArg canonicalizes a command argument: NFKC then lower case, so
// fullwidth input like "ＲＥＳＥＴ" still matches.
func NormalizeArg(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
