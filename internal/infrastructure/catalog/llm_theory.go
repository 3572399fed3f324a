package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jee-coach/tutor/internal/domain/content"
	"github.com/jee-coach/tutor/internal/domain/shared"
	"github.com/jee-coach/tutor/pkg/circuitbreaker"
	"github.com/jee-coach/tutor/pkg/logger"
	"github.com/jee-coach/tutor/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LLM THEORY PROVIDER
// ══════════════════════════════════════════════════════════════════════════════

// QuestionLookup resolves a question ID for prompt context. *Bank satisfies it.
type QuestionLookup interface {
	Question(id string) (content.Question, bool)
}

// LLMTheoryOptions configures an LLMTheory.
type LLMTheoryOptions struct {
	Questions   QuestionLookup
	Fallback    content.TheoryProvider
	Breaker     *circuitbreaker.CircuitBreaker
	Retrier     *retry.Retrier
	Logger      *logger.Logger
	Temperature float64
}

// LLMTheory asks a language model for a micro-theory snippet aimed at the
// question the student is stuck on. When the model fails, or its breaker
// is open, the fallback provider answers instead.
type LLMTheory struct {
	model       llms.Model
	questions   QuestionLookup
	fallback    content.TheoryProvider
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	log         *logger.Logger
	temperature float64
}

var _ content.TheoryProvider = (*LLMTheory)(nil)

// NewOpenAIModel builds the OpenAI chat model used for theory.
func NewOpenAIModel(apiKey, model string) (llms.Model, error) {
	llm, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return llm, nil
}

// NewLLMTheory wraps model.
func NewLLMTheory(model llms.Model, opts LLMTheoryOptions) *LLMTheory {
	t := &LLMTheory{
		model:       model,
		questions:   opts.Questions,
		fallback:    opts.Fallback,
		breaker:     opts.Breaker,
		retrier:     opts.Retrier,
		log:         opts.Logger,
		temperature: opts.Temperature,
	}
	if t.log == nil {
		t.log = logger.Nop()
	}
	t.log = t.log.Named("llm_theory")
	if t.breaker == nil {
		t.breaker = circuitbreaker.LLMBreaker(circuitbreaker.WithIsFailure(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}))
	}
	if t.retrier == nil {
		t.retrier = retry.LLMRetrier()
	}
	if t.temperature <= 0 {
		t.temperature = 0.3
	}
	return t
}

// FetchMicroTheory implements content.TheoryProvider. While the breaker is
// open the fallback answers without a model call.
func (t *LLMTheory) FetchMicroTheory(ctx context.Context, topic, questionID string) (content.TheorySnippet, error) {
	var snippet content.TheorySnippet
	rejected := false
	err := t.breaker.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		var err error
		snippet, err = retry.DoWithData(ctx, t.retrier, func(ctx context.Context) (content.TheorySnippet, error) {
			return t.generate(ctx, topic, questionID)
		})
		return err
	}, func(cause error) error {
		rejected = true
		t.log.Debug("model circuit open, using fallback theory", logger.String("topic", topic))
		var err error
		snippet, err = t.fallbackFor(ctx, topic, questionID, cause)
		return err
	})
	if err == nil {
		return snippet, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return content.TheorySnippet{}, ctxErr
	}
	if rejected {
		return content.TheorySnippet{}, err
	}

	counts := t.breaker.Counts()
	t.log.Warn("model theory failed",
		logger.String("topic", topic),
		logger.String("question_id", questionID),
		logger.String("circuit", t.breaker.State().String()),
		logger.Int("failures", counts.TotalFailures),
		logger.Int("requests", counts.Requests),
		logger.Err(err))
	return t.fallbackFor(ctx, topic, questionID, err)
}

func (t *LLMTheory) fallbackFor(ctx context.Context, topic, questionID string, cause error) (content.TheorySnippet, error) {
	if t.fallback == nil {
		return content.TheorySnippet{}, shared.ErrTheoryUnavailable.Wrap(cause)
	}
	return t.fallback.FetchMicroTheory(ctx, topic, questionID)
}

func (t *LLMTheory) generate(ctx context.Context, topic, questionID string) (content.TheorySnippet, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, t.model, t.prompt(topic, questionID),
		llms.WithTemperature(t.temperature))
	if err != nil {
		return content.TheorySnippet{}, retry.Retryable(fmt.Errorf("generate: %w", err))
	}
	s, err := parseSnippet(out, topic)
	if err != nil {
		return content.TheorySnippet{}, retry.Permanent(err)
	}
	return s, nil
}

func (t *LLMTheory) prompt(topic, questionID string) string {
	var b strings.Builder
	b.WriteString("You are a JEE coach. A student is stuck")
	fmt.Fprintf(&b, " on the topic %q.\n", topic)
	if t.questions != nil {
		if q, ok := t.questions.Question(questionID); ok {
			fmt.Fprintf(&b, "The question was:\n%s\n", q.Text)
			for i, opt := range q.Options {
				fmt.Fprintf(&b, "%s) %s\n", content.OptionLabel(i), opt)
			}
			if q.SolutionApproach != "" {
				fmt.Fprintf(&b, "Intended approach: %s\n", q.SolutionApproach)
			}
		}
	}
	b.WriteString("Do not solve the question. Give the smallest piece of theory that unblocks it.\n")
	b.WriteString(`Reply with only a JSON object: {"formula": "...", "analogy": "...", "application_hint": "..."}`)
	return b.String()
}

type snippetReply struct {
	Formula         string `json:"formula"`
	Analogy         string `json:"analogy"`
	ApplicationHint string `json:"application_hint"`
}

// parseSnippet extracts the JSON object from a model reply, tolerating
// code fences and surrounding prose.
func parseSnippet(reply, topic string) (content.TheorySnippet, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return content.TheorySnippet{}, errors.New("model reply has no JSON object")
	}

	var r snippetReply
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return content.TheorySnippet{}, fmt.Errorf("decode model reply: %w", err)
	}
	s := content.TheorySnippet{
		Topic:           topic,
		Formula:         strings.TrimSpace(r.Formula),
		Analogy:         strings.TrimSpace(r.Analogy),
		ApplicationHint: strings.TrimSpace(r.ApplicationHint),
	}
	if err := validatorInstance().Struct(s); err != nil {
		return content.TheorySnippet{}, fmt.Errorf("incomplete model reply: %s", describe(err))
	}
	return s, nil
}
