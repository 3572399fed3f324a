package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/pkg/logger"
)

// StaticTheory serves hand-written theory snippets, one per topic.
type StaticTheory struct {
	byTopic map[string]content.TheorySnippet
}

var _ content.TheoryProvider = (*StaticTheory)(nil)

type theoryFile struct {
	Snippets []yaml.Node `yaml:"snippets"`
}

// LoadTheory reads a theory file.
func LoadTheory(path string, log *logger.Logger) (*StaticTheory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theory file: %w", err)
	}
	return ParseTheory(data, log)
}

// ParseTheory decodes snippets, skipping invalid ones. A later snippet for
// the same topic replaces an earlier one.
func ParseTheory(data []byte, log *logger.Logger) (*StaticTheory, error) {
	if log == nil {
		log = logger.Nop()
	}
	var file theoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse theory file: %w", err)
	}

	t := &StaticTheory{byTopic: make(map[string]content.TheorySnippet, len(file.Snippets))}
	v := validatorInstance()
	for i := range file.Snippets {
		node := &file.Snippets[i]
		var s content.TheorySnippet
		if err := node.Decode(&s); err != nil {
			log.Warn("theory snippet rejected", logger.Int("line", node.Line), logger.Err(err))
			continue
		}
		if err := v.Struct(s); err != nil {
			log.Warn("theory snippet rejected",
				logger.Int("line", node.Line),
				logger.String("topic", s.Topic),
				logger.String("reason", describe(err)))
			continue
		}
		t.byTopic[topicKey(s.Topic)] = s
	}
	return t, nil
}

// FetchMicroTheory returns the snippet for topic. The question ID is not
// used; snippets are per topic.
func (t *StaticTheory) FetchMicroTheory(ctx context.Context, topic, _ string) (content.TheorySnippet, error) {
	if err := ctx.Err(); err != nil {
		return content.TheorySnippet{}, err
	}
	s, ok := t.byTopic[topicKey(topic)]
	if !ok {
		return content.TheorySnippet{}, shared.ErrTheoryUnavailable.Wrap(fmt.Errorf("no snippet for %q", topic))
	}
	return s, nil
}

// Len is the number of topics with a snippet.
func (t *StaticTheory) Len() int { return len(t.byTopic) }

func topicKey(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
