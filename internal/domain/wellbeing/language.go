package wellbeing

import "strings"

// negativePhrases are expressions of frustration or self-doubt that count
// as a negative-language signal.
var negativePhrases = []string{
	"i can't",
	"i cant",
	"i cannot",
	"too hard",
	"waste of time",
	"give up",
	"giving up",
	"hate this",
	"i'm done",
	"im done",
	"pointless",
	"i'm stupid",
	"never going to",
}

// DetectNegativeLanguage reports whether text contains a known negative phrase.
func DetectNegativeLanguage(text string) bool {
	t := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, p := range negativePhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
