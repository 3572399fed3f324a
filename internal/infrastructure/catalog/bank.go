package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK
// ══════════════════════════════════════════════════════════════════════════════

// Rejection records a bank item that was dropped at load time.
type Rejection struct {
	Line   int
	ID     string
	Reason string
}

// Bank is a read-only question bank loaded from YAML.
//
//	questions:
//	  - id: kin-001
//	    topic: Kinematics
//	    ...
type Bank struct {
	questions []content.Question
	byID      map[string]int
	topics    []content.TopicRef
	rejected  []Rejection
}

var _ content.QuestionBank = (*Bank)(nil)

type bankFile struct {
	Questions []yaml.Node `yaml:"questions"`
}

// LoadBank reads a bank file.
func LoadBank(path string, log *logger.Logger) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(data, log)
}

// ParseBank decodes a bank. Each item is decoded and validated on its own;
// a bad item is skipped and recorded, never fatal.
func ParseBank(data []byte, log *logger.Logger) (*Bank, error) {
	if log == nil {
		log = logger.Nop()
	}
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	b := &Bank{byID: make(map[string]int)}
	v := validatorInstance()
	for i := range file.Questions {
		node := &file.Questions[i]
		var q content.Question
		if err := node.Decode(&q); err != nil {
			b.reject(node.Line, "", err.Error())
			continue
		}
		q.Difficulty = shared.Difficulty(strings.ToLower(string(q.Difficulty)))
		if err := v.Struct(q); err != nil {
			b.reject(node.Line, q.ID, describe(err))
			continue
		}
		if _, dup := b.byID[q.ID]; dup {
			b.reject(node.Line, q.ID, "duplicate id")
			continue
		}
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}

	for _, r := range b.rejected {
		log.Warn("question rejected",
			logger.Int("line", r.Line),
			logger.String("id", r.ID),
			logger.String("reason", r.Reason))
	}

	b.topics = lo.Uniq(lo.Map(b.questions, func(q content.Question, _ int) content.TopicRef {
		return content.TopicRef{Subject: q.Subject, Topic: q.Topic}
	}))
	slices.SortFunc(b.topics, func(a, c content.TopicRef) int {
		if n := strings.Compare(a.Subject, c.Subject); n != 0 {
			return n
		}
		return strings.Compare(a.Topic, c.Topic)
	})
	return b, nil
}

func (b *Bank) reject(line int, id, reason string) {
	b.rejected = append(b.rejected, Rejection{Line: line, ID: id, Reason: reason})
}

// FetchQuestion returns the most frequently asked unseen question for the
// subject, topic and difficulty. An empty subject matches any subject.
func (b *Bank) FetchQuestion(ctx context.Context, subject, topic string, d shared.Difficulty, exclude []string) (content.Question, error) {
	if err := ctx.Err(); err != nil {
		return content.Question{}, err
	}

	seen := lo.SliceToMap(exclude, func(id string) (string, struct{}) { return id, struct{}{} })
	candidates := lo.Filter(b.questions, func(q content.Question, _ int) bool {
		_, skip := seen[q.ID]
		return !skip && q.Difficulty == d && strings.EqualFold(q.Topic, topic) &&
			(subject == "" || strings.EqualFold(q.Subject, subject))
	})
	if len(candidates) == 0 {
		return content.Question{}, shared.ErrNoContentAvailable.Wrap(fmt.Errorf("%s/%s at %s", subject, topic, d))
	}

	best := lo.MaxBy(candidates, func(a, c content.Question) bool {
		if a.FrequencyScore != c.FrequencyScore {
			return a.FrequencyScore > c.FrequencyScore
		}
		return a.ID < c.ID
	})
	return cloneQuestion(best), nil
}

// Topics lists the subject/topic pairs in the bank.
func (b *Bank) Topics(ctx context.Context) ([]content.TopicRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(b.topics), nil
}

// Question looks a question up by ID.
func (b *Bank) Question(id string) (content.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return content.Question{}, false
	}
	return cloneQuestion(b.questions[i]), true
}

// Len is the number of accepted questions.
func (b *Bank) Len() int { return len(b.questions) }

// Rejected lists the items dropped at load time.
func (b *Bank) Rejected() []Rejection { return slices.Clone(b.rejected) }

func cloneQuestion(q content.Question) content.Question {
	q.Options = slices.Clone(q.Options)
	q.CommonMistakes = slices.Clone(q.CommonMistakes)
	q.Tags = slices.Clone(q.Tags)
	return q
}
