package tally

import "strings"

// reactionAliases maps every raw reaction name GitHub hands out
// (plus the legacy thumbs_up/plus_one spellings) to one canonical
// emoji symbol. Canonical symbols never collide with alias text, so
// re-normalizing is a no-op.
var reactionAliases = map[string]string{
	"+1":          "👍",
	"thumbs_up":   "👍",
	"plus_one":    "👍",
	"-1":          "👎",
	"thumbs_down": "👎",
	"minus_one":   "👎",
	"laugh":       "😄",
	"confused":    "😕",
	"heart":       "❤️",
	"hooray":      "🎉",
	"rocket":      "🚀",
	"eyes":        "👀",
}

// NormalizeReaction maps a raw reaction identifier to its canonical
// emoji symbol. Matching is case-insensitive; unrecognized strings pass
// through lowercased.
func NormalizeReaction(reaction string) string {
	lower := strings.ToLower(reaction)
	if symbol, ok := reactionAliases[lower]; ok {
		return symbol
	}
	return lower
}
