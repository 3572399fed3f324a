// Package catalog loads practice questions and micro-theory from YAML files
// and, when configured, asks a language model for theory. Items that fail
// validation are dropped at load time, so the session core only ever sees
// well-formed content.
package catalog

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jee-coach/tutor/internal/domain/content"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(questionKeyValidation, content.Question{})
	})
	return validate
}

// questionKeyValidation requires the answer key to name one of the options,
// by letter or by text.
func questionKeyValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(content.Question)
	if q.CorrectAnswer == "" || len(q.Options) == 0 {
		return
	}
	key := strings.TrimSpace(q.CorrectAnswer)
	for i, opt := range q.Options {
		if strings.EqualFold(key, content.OptionLabel(i)) || strings.EqualFold(key, strings.TrimSpace(opt)) {
			return
		}
	}
	sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correct_answer", "answerkey", "")
}

// describe turns a validator error into one line per failed field.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
