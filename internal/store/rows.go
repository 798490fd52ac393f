package store

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/question"
)

// formatFor rebuilds a question's Format from its stored kind and choices.
func formatFor(kind string, choices []question.Choice) (question.Format, error) {
	switch question.Kind(kind) {
	case question.KindSingleChoice:
		return question.SingleChoice{Choices: choices}, nil
	case question.KindOpenResponse:
		return question.OpenResponse{}, nil
	}
	return nil, errors.Errorf("unknown question kind %q", kind)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
