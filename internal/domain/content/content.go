// Package content defines the question and micro-theory contracts the
// session core consumes. Implementations live in infrastructure/catalog.
package content

import (
	"context"
	"strings"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// Question is one previously-asked exam question (PYQ).
type Question struct {
	ID               string            `yaml:"id" json:"id" validate:"required"`
	Text             string            `yaml:"text" json:"text" validate:"required"`
	Options          []string          `yaml:"options" json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer    string            `yaml:"correct_answer" json:"correct_answer" validate:"required"`
	Explanation      string            `yaml:"explanation" json:"explanation"`
	Year             int               `yaml:"year" json:"year" validate:"omitempty,gte=1978,lte=2100"`
	Subject          string            `yaml:"subject" json:"subject" validate:"required"`
	Topic            string            `yaml:"topic" json:"topic" validate:"required"`
	Subtopic         string            `yaml:"subtopic" json:"subtopic"`
	Difficulty       shared.Difficulty `yaml:"difficulty" json:"difficulty" validate:"required,oneof=easy medium hard"`
	FrequencyScore   float64           `yaml:"frequency_score" json:"frequency_score" validate:"gte=0,lte=1"`
	CommonMistakes   []string          `yaml:"common_mistakes" json:"common_mistakes"`
	SolutionApproach string            `yaml:"solution_approach" json:"solution_approach"`
	TimeExpectedSecs int               `yaml:"time_expected_secs" json:"time_expected_secs" validate:"gte=0"`
	Tags             []string          `yaml:"tags" json:"tags"`
}

// OptionLabel returns "A", "B", ... for the option at index i.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// IsCorrect reports whether answer matches the stored correct answer.
// The answer may be the option letter or the option text.
func (q Question) IsCorrect(answer string) bool {
	a := strings.TrimSpace(answer)
	if a == "" {
		return false
	}
	want := strings.TrimSpace(q.CorrectAnswer)
	if strings.EqualFold(a, want) {
		return true
	}
	// Letter answer against a text key, or text answer against a letter key.
	for i, opt := range q.Options {
		label := OptionLabel(i)
		matchesAnswer := strings.EqualFold(a, label) || strings.EqualFold(a, strings.TrimSpace(opt))
		matchesKey := strings.EqualFold(want, label) || strings.EqualFold(want, strings.TrimSpace(opt))
		if matchesAnswer && matchesKey {
			return true
		}
	}
	return false
}

// TheorySnippet is the short hand-off given to a stuck student.
type TheorySnippet struct {
	Topic           string `yaml:"topic" json:"topic" validate:"required"`
	Formula         string `yaml:"formula" json:"formula" validate:"required"`
	Analogy         string `yaml:"analogy" json:"analogy" validate:"required"`
	ApplicationHint string `yaml:"application_hint" json:"application_hint" validate:"required"`
}

// QuestionBank serves practice questions.
type QuestionBank interface {
	// FetchQuestion returns a question for subject and topic at difficulty
	// whose ID is not in exclude. It fails with shared.ErrNoContentAvailable
	// when the bank has nothing left or the only candidates are malformed.
	// Any other error means the bank itself could not be read.
	FetchQuestion(ctx context.Context, subject, topic string, d shared.Difficulty, exclude []string) (Question, error)

	// Topics lists the subject/topic pairs the bank can serve.
	Topics(ctx context.Context) ([]TopicRef, error)
}

// TheoryProvider serves micro-theory for a stuck student.
type TheoryProvider interface {
	FetchMicroTheory(ctx context.Context, topic, questionID string) (TheorySnippet, error)
}

// Lecture is one recorded lecture the student can watch alongside practice.
type Lecture struct {
	ID            string   `yaml:"id" json:"id" validate:"required"`
	Title         string   `yaml:"title" json:"title" validate:"required"`
	Subject       string   `yaml:"subject" json:"subject" validate:"required"`
	Topic         string   `yaml:"topic" json:"topic" validate:"required"`
	TotalMins     int      `yaml:"total_mins" json:"total_mins" validate:"required,gt=0"`
	KeyTimestamps []string `yaml:"key_timestamps" json:"key_timestamps"`
}

// LectureCatalog lists the recorded lectures on offer.
type LectureCatalog interface {
	Lectures() []Lecture
	Lecture(id string) (Lecture, bool)
}

// TopicRef names a topic and its subject.
type TopicRef struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}
