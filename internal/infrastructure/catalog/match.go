package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jee-coach/tutor/internal/domain/content"
)

// ResolveTopic maps free text typed by the student to a known topic.
// An exact case-insensitive match wins; otherwise the closest fuzzy match
// by edit distance is used.
func ResolveTopic(query string, topics []content.TopicRef) (content.TopicRef, bool) {
	q := strings.TrimSpace(query)
	if q == "" || len(topics) == 0 {
		return content.TopicRef{}, false
	}
	for _, t := range topics {
		if strings.EqualFold(t.Topic, q) {
			return t, true
		}
	}

	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Topic
	}
	ranks := fuzzy.RankFindNormalizedFold(q, names)
	if len(ranks) == 0 {
		return content.TopicRef{}, false
	}
	sort.Sort(ranks)
	return topics[ranks[0].OriginalIndex], true
}
